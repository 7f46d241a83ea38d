package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadops-api/internal/models"
)

// ResourceRepository reads bookable branch resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository builds the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ListByBranch returns the active resources of a branch.
func (r *ResourceRepository) ListByBranch(ctx context.Context, branchID string) ([]models.Resource, error) {
	const query = `SELECT id, branch_id, type, name, capacity FROM resources WHERE branch_id = $1 AND active = TRUE ORDER BY name ASC`
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, branchID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// FindByID returns one resource.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	const query = `SELECT id, branch_id, type, name, capacity FROM resources WHERE id = $1`
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

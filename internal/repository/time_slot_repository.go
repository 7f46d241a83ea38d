package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadops-api/internal/models"
)

const timeSlotSelect = `SELECT id, branch_id, name, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
FROM time_slot_templates`

// TimeSlotRepository reads branch time slot templates.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository builds the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListByBranch returns the active templates of a branch ordered by start time.
func (r *TimeSlotRepository) ListByBranch(ctx context.Context, branchID string) ([]models.TimeSlotTemplate, error) {
	const query = timeSlotSelect + ` WHERE branch_id = $1 AND active = TRUE ORDER BY start_time ASC, name ASC`
	var slots []models.TimeSlotTemplate
	if err := r.db.SelectContext(ctx, &slots, query, branchID); err != nil {
		return nil, fmt.Errorf("list time slot templates: %w", err)
	}
	return slots, nil
}

// FindByID returns one template.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlotTemplate, error) {
	const query = timeSlotSelect + ` WHERE id = $1`
	var slot models.TimeSlotTemplate
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, fmt.Errorf("find time slot template: %w", err)
	}
	return &slot, nil
}

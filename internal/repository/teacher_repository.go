package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/acadops-api/internal/models"
)

// TeacherRepository reads branch teachers and their declared unavailability.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository builds the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListActiveByBranch returns active teachers of a branch ordered by name.
func (r *TeacherRepository) ListActiveByBranch(ctx context.Context, branchID string) ([]models.Teacher, error) {
	const query = `SELECT id, branch_id, name, email, active FROM teachers WHERE branch_id = $1 AND active = TRUE ORDER BY name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, branchID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns one teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, branch_id, name, email, active FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// ListUnavailability returns declared weekly blocks for the teachers.
func (r *TeacherRepository) ListUnavailability(ctx context.Context, teacherIDs []string) ([]models.TeacherUnavailability, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT teacher_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
FROM teacher_unavailability WHERE teacher_id = ANY($1) ORDER BY teacher_id, day_of_week, start_time`
	var blocks []models.TeacherUnavailability
	if err := r.db.SelectContext(ctx, &blocks, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher unavailability: %w", err)
	}
	return blocks, nil
}

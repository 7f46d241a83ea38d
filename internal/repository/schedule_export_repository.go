package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadops-api/internal/models"
)

const exportColumns = `id, class_id, format, status, result_url, error_message, created_by, created_at, finished_at`

// ScheduleExportRepository persists session plan export jobs.
type ScheduleExportRepository struct {
	db *sqlx.DB
}

// NewScheduleExportRepository constructs the repository.
func NewScheduleExportRepository(db *sqlx.DB) *ScheduleExportRepository {
	return &ScheduleExportRepository{db: db}
}

// Create inserts a new export job row with generated defaults.
func (r *ScheduleExportRepository) Create(ctx context.Context, job *models.ScheduleExport) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_exports (` + exportColumns + `)
VALUES (:id, :class_id, :format, :status, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create schedule export: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ScheduleExportRepository) GetByID(ctx context.Context, id string) (*models.ScheduleExport, error) {
	const query = `SELECT ` + exportColumns + ` FROM schedule_exports WHERE id = $1`
	var job models.ScheduleExport
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get schedule export: %w", err)
	}
	return &job, nil
}

// UpdateExportParams defines the mutable fields.
type UpdateExportParams struct {
	Status       *models.ExportStatus
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ScheduleExportRepository) Update(ctx context.Context, id string, params UpdateExportParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE schedule_exports SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update schedule export: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *ScheduleExportRepository) ListQueued(ctx context.Context, limit int) ([]models.ScheduleExport, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + exportColumns + ` FROM schedule_exports WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.ScheduleExport
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued schedule exports: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ScheduleExportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ScheduleExport, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportColumns + ` FROM schedule_exports
WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ScheduleExport
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished schedule exports: %w", err)
	}
	return jobs, nil
}

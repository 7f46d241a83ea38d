package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadops-api/internal/models"
)

const draftColumns = `id, code, name, branch_id, course_id, modality, start_date, planned_end_date, weekdays, max_capacity, status, approval_status, rejection_reason, created_by, submitted_at, created_at, updated_at`

// DraftRepository persists class drafts and reads their courses.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository builds the repository.
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx starts a transaction on the underlying database.
func (r *DraftRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// Create inserts a new class draft.
func (r *DraftRepository) Create(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Status == "" {
		draft.Status = models.ClassStatusDraft
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	const query = `INSERT INTO class_drafts (` + draftColumns + `)
VALUES (:id, :code, :name, :branch_id, :course_id, :modality, :start_date, :planned_end_date, :weekdays, :max_capacity,
:status, :approval_status, :rejection_reason, :created_by, :submitted_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, draft); err != nil {
		return fmt.Errorf("create class draft: %w", err)
	}
	return nil
}

// FindByID returns a draft by id.
func (r *DraftRepository) FindByID(ctx context.Context, id string) (*models.ClassDraft, error) {
	const query = `SELECT ` + draftColumns + ` FROM class_drafts WHERE id = $1`
	var draft models.ClassDraft
	if err := r.db.GetContext(ctx, &draft, query, id); err != nil {
		return nil, fmt.Errorf("find class draft: %w", err)
	}
	return &draft, nil
}

// UpdateBasicInfo persists editable basic info fields.
func (r *DraftRepository) UpdateBasicInfo(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error {
	draft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_drafts SET code = :code, name = :name, branch_id = :branch_id, course_id = :course_id,
modality = :modality, start_date = :start_date, planned_end_date = :planned_end_date, weekdays = :weekdays,
max_capacity = :max_capacity, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, draft)
	if err != nil {
		return fmt.Errorf("update class draft: %w", err)
	}
	return requireAffected(res, "update class draft")
}

// UpdateLifecycleParams defines the lifecycle fields changed by submit and review.
type UpdateLifecycleParams struct {
	Status          models.ClassStatus
	ApprovalStatus  *models.ApprovalStatus
	RejectionReason *string
	SubmittedAt     *time.Time
}

// UpdateLifecycle changes status, approval status and review metadata.
func (r *DraftRepository) UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, id string, params UpdateLifecycleParams) error {
	const query = `UPDATE class_drafts SET status = $1, approval_status = $2, rejection_reason = $3,
submitted_at = COALESCE($4, submitted_at), updated_at = $5 WHERE id = $6`
	res, err := r.exec(exec).ExecContext(ctx, query, params.Status, params.ApprovalStatus, params.RejectionReason, params.SubmittedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update class lifecycle: %w", err)
	}
	return requireAffected(res, "update class lifecycle")
}

// Delete removes a draft; sessions cascade.
func (r *DraftRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM class_drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class draft: %w", err)
	}
	return requireAffected(res, "delete class draft")
}

// FindCourse returns the course a draft is built from.
func (r *DraftRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, hours_per_session, total_sessions FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

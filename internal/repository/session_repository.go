package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/acadops-api/internal/models"
)

const sessionColumns = `id, class_id, sequence, session_date, day_of_week, week_number, time_slot_id, resource_id, teacher_id, resource_override, created_at, updated_at`

// SessionRepository manages generated class sessions and their assignments.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository builds the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByClass returns the sessions of a class ordered by sequence.
func (r *SessionRepository) ListByClass(ctx context.Context, classID string) ([]models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM class_sessions WHERE class_id = $1 ORDER BY sequence ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns one session of a class.
func (r *SessionRepository) FindByID(ctx context.Context, classID, sessionID string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM class_sessions WHERE class_id = $1 AND id = $2`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, classID, sessionID); err != nil {
		return nil, fmt.Errorf("find class session: %w", err)
	}
	return &session, nil
}

// ReplaceForClass drops the existing sessions of the class and inserts the provided batch.
func (r *SessionRepository) ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, sessions []models.Session) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM class_sessions WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class sessions: %w", err)
	}
	const query = `INSERT INTO class_sessions (` + sessionColumns + `)
VALUES (:id, :class_id, :sequence, :session_date, :day_of_week, :week_number, :time_slot_id, :resource_id, :teacher_id,
:resource_override, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range sessions {
		session := &sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		session.ClassID = classID
		session.CreatedAt = now
		session.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, session); err != nil {
			return fmt.Errorf("insert class session: %w", err)
		}
	}
	return nil
}

// SetTimeSlotForWeekday assigns a time slot to every session of the weekday within the date range.
func (r *SessionRepository) SetTimeSlotForWeekday(ctx context.Context, exec sqlx.ExtContext, classID string, weekday models.Weekday, timeSlotID string, from, to time.Time) (int64, error) {
	const query = `UPDATE class_sessions SET time_slot_id = $1, updated_at = $2
WHERE class_id = $3 AND day_of_week = $4 AND session_date BETWEEN $5 AND $6`
	res, err := r.exec(exec).ExecContext(ctx, query, timeSlotID, time.Now().UTC(), classID, weekday, from, to)
	if err != nil {
		return 0, fmt.Errorf("set session time slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set session time slots rows affected: %w", err)
	}
	return affected, nil
}

// SetResource assigns a resource to one session. Override marks an individual resolution.
func (r *SessionRepository) SetResource(ctx context.Context, exec sqlx.ExtContext, sessionID, resourceID string, override bool) error {
	const query = `UPDATE class_sessions SET resource_id = $1, resource_override = $2, updated_at = $3 WHERE id = $4`
	res, err := r.exec(exec).ExecContext(ctx, query, resourceID, override, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("set session resource: %w", err)
	}
	return requireAffected(res, "set session resource")
}

// SetTeacher assigns teacherID to the listed sessions; a nil teacher clears them.
func (r *SessionRepository) SetTeacher(ctx context.Context, exec sqlx.ExtContext, sessionIDs []string, teacherID *string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	const query = `UPDATE class_sessions SET teacher_id = $1, updated_at = $2 WHERE id = ANY($3)`
	if _, err := r.exec(exec).ExecContext(ctx, query, teacherID, time.Now().UTC(), pq.Array(sessionIDs)); err != nil {
		return fmt.Errorf("set session teacher: %w", err)
	}
	return nil
}

// ListResourceBookings returns sessions of other live classes holding any of the resources within the date range.
func (r *SessionRepository) ListResourceBookings(ctx context.Context, excludeClassID string, resourceIDs []string, from, to time.Time) ([]models.ResourceBooking, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT s.id AS session_id, s.class_id, c.name AS class_name, c.approval_status, s.resource_id,
s.time_slot_id, to_char(t.start_time, 'HH24:MI') AS start_time, to_char(t.end_time, 'HH24:MI') AS end_time, s.session_date
FROM class_sessions s
JOIN class_drafts c ON c.id = s.class_id
JOIN time_slot_templates t ON t.id = s.time_slot_id
WHERE s.resource_id = ANY($1) AND s.class_id <> $2 AND s.session_date BETWEEN $3 AND $4 AND c.status <> 'CANCELLED'
ORDER BY s.session_date ASC`
	var bookings []models.ResourceBooking
	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(resourceIDs), excludeClassID, from, to); err != nil {
		return nil, fmt.Errorf("list resource bookings: %w", err)
	}
	return bookings, nil
}

// ListTeacherBookings returns sessions of other live classes taught by any of the teachers within the date range.
func (r *SessionRepository) ListTeacherBookings(ctx context.Context, excludeClassID string, teacherIDs []string, from, to time.Time) ([]models.TeacherBooking, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT s.id AS session_id, s.class_id, c.name AS class_name, s.teacher_id, s.session_date,
to_char(t.start_time, 'HH24:MI') AS start_time, to_char(t.end_time, 'HH24:MI') AS end_time
FROM class_sessions s
JOIN class_drafts c ON c.id = s.class_id
JOIN time_slot_templates t ON t.id = s.time_slot_id
WHERE s.teacher_id = ANY($1) AND s.class_id <> $2 AND s.session_date BETWEEN $3 AND $4 AND c.status <> 'CANCELLED'
ORDER BY s.session_date ASC`
	var bookings []models.TeacherBooking
	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(teacherIDs), excludeClassID, from, to); err != nil {
		return nil, fmt.Errorf("list teacher bookings: %w", err)
	}
	return bookings, nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/logger"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type draftReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassDraft, error)
}

type sessionLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.Session, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func loadDraft(ctx context.Context, drafts draftReader, id string) (*models.ClassDraft, error) {
	draft, err := drafts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class draft")
	}
	return draft, nil
}

func loadSessions(ctx context.Context, sessions sessionLister, classID string) ([]models.Session, error) {
	list, err := sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class sessions")
	}
	return list, nil
}

// withTx runs fn inside a transaction. Without a provider fn runs against the default connection.
func withTx(ctx context.Context, provider txProvider, fn func(exec sqlx.ExtContext) error) (err error) {
	if provider == nil {
		return fn(nil)
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

func emitAudit(ctx context.Context, recorder auditRecorder, log *zap.Logger, actor models.Actor, action, classID string, payload interface{}) {
	if recorder == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   models.AuditResourceClass,
		ResourceID: &classID,
		IPAddress:  "system",
		UserAgent:  "scheduling-pipeline",
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.NewValues = raw
		}
	}
	if err := recorder.CreateAuditLog(ctx, entry); err != nil {
		logger.FromContext(ctx, log).Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedWeekdays(p models.Pattern) []models.Weekday {
	days := make([]models.Weekday, 0, len(p))
	for d := range p {
		days = append(days, d)
	}
	return models.NewWeekdaySet(days...)
}

func strPtr(v string) *string {
	return &v
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/repository"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

type lifecycleStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassDraft, error)
	UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, id string, params repository.UpdateLifecycleParams) error
}

type pendingConflictCounter interface {
	Pending(draftID string) int
}

// ComputeReadiness aggregates per-session completeness into the submit decision.
func ComputeReadiness(draft *models.ClassDraft, sessions []models.Session, pendingConflicts int) models.Readiness {
	checks := models.ReadinessChecks{TotalSessions: len(sessions)}
	for _, session := range sessions {
		if session.TimeSlotID != nil {
			checks.SessionsWithTimeSlots++
		}
		if session.ResourceID != nil {
			checks.SessionsWithResources++
		}
		if session.TeacherID != nil {
			checks.SessionsWithTeachers++
		}
	}
	checks.SessionsWithoutTimeSlots = checks.TotalSessions - checks.SessionsWithTimeSlots
	checks.SessionsWithoutResources = checks.TotalSessions - checks.SessionsWithResources
	checks.SessionsWithoutTeachers = checks.TotalSessions - checks.SessionsWithTeachers
	checks.AllSessionsHaveTimeSlots = checks.TotalSessions > 0 && checks.SessionsWithoutTimeSlots == 0
	checks.AllSessionsHaveResources = checks.TotalSessions > 0 && checks.SessionsWithoutResources == 0
	checks.AllSessionsHaveTeachers = checks.TotalSessions > 0 && checks.SessionsWithoutTeachers == 0
	if checks.TotalSessions > 0 {
		assigned := checks.SessionsWithTimeSlots + checks.SessionsWithResources + checks.SessionsWithTeachers
		checks.CompletionPercentage = roundTo2(float64(assigned) / float64(3*checks.TotalSessions) * 100)
	}

	verdict := EvaluateLifecycle(draft.Status, draft.ApprovalStatus)
	errs := []string{}
	if checks.TotalSessions == 0 {
		errs = append(errs, "class has no sessions")
	}
	if !verdict.Editable {
		errs = append(errs, verdict.Reason)
	}
	if n := checks.SessionsWithoutTimeSlots; n > 0 && checks.TotalSessions > 0 {
		errs = append(errs, fmt.Sprintf("%d sessions have no time slot", n))
	}
	if n := checks.SessionsWithoutResources; n > 0 && checks.TotalSessions > 0 {
		errs = append(errs, fmt.Sprintf("%d sessions have no resource", n))
	}
	if n := checks.SessionsWithoutTeachers; n > 0 && checks.TotalSessions > 0 {
		errs = append(errs, fmt.Sprintf("%d sessions have no teacher", n))
	}
	if pendingConflicts > 0 {
		errs = append(errs, fmt.Sprintf("%d resource conflicts are still pending", pendingConflicts))
	}

	valid := checks.TotalSessions > 0 && verdict.Editable
	return models.Readiness{
		Valid: valid,
		CanSubmit: valid && checks.AllSessionsHaveTimeSlots && checks.AllSessionsHaveResources &&
			checks.AllSessionsHaveTeachers && len(errs) == 0,
		Errors: errs,
		Checks: checks,
	}
}

// ReadinessService gates submission and runs the approval review.
type ReadinessService struct {
	drafts    lifecycleStore
	sessions  sessionLister
	pending   pendingConflictCounter
	tx        txProvider
	audit     auditRecorder
	locker    *DraftLocker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReadinessService wires readiness dependencies. pending may be nil.
func NewReadinessService(drafts lifecycleStore, sessions sessionLister, pending pendingConflictCounter, tx txProvider, audit auditRecorder, locker *DraftLocker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReadinessService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewDraftLocker()
	}
	return &ReadinessService{
		drafts:    drafts,
		sessions:  sessions,
		pending:   pending,
		tx:        tx,
		audit:     audit,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate recomputes readiness from live data.
func (s *ReadinessService) Validate(ctx context.Context, draftID string) (*models.Readiness, error) {
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, draftID)
	if err != nil {
		return nil, err
	}
	readiness := ComputeReadiness(draft, sessions, s.pendingFor(draftID))
	return &readiness, nil
}

// Submit moves a ready draft to SCHEDULED pending approval. An unready draft is rejected unchanged.
func (s *ReadinessService) Submit(ctx context.Context, actor models.Actor, draftID string) (*dto.DraftResponse, error) {
	release, err := s.locker.TryLock(draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if err := guardMutation(draft, actor); err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, draftID)
	if err != nil {
		return nil, err
	}
	readiness := ComputeReadiness(draft, sessions, s.pendingFor(draftID))
	if !readiness.CanSubmit {
		s.metrics.RecordSubmission("blocked")
		verr := appErrors.Clone(appErrors.ErrValidation, "class is not ready for submission")
		verr.Fields = map[string]string{"readiness": strings.Join(readiness.Errors, "; ")}
		return nil, verr
	}

	pending := models.ApprovalPending
	submittedAt := s.now().UTC()
	params := repository.UpdateLifecycleParams{
		Status:         models.ClassStatusScheduled,
		ApprovalStatus: &pending,
		SubmittedAt:    &submittedAt,
	}
	if err := s.updateLifecycle(ctx, draftID, params); err != nil {
		return nil, err
	}
	draft.Status = params.Status
	draft.ApprovalStatus = params.ApprovalStatus
	draft.RejectionReason = nil
	draft.SubmittedAt = &submittedAt

	s.metrics.RecordSubmission("submitted")
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionSubmit, draftID, readiness.Checks)
	return toDraftResponse(draft, len(sessions)), nil
}

// Review approves or rejects a class awaiting approval. A rejection returns the class to an editable draft.
func (s *ReadinessService) Review(ctx context.Context, actor models.Actor, draftID string, req dto.ReviewRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid review payload")
	}
	if actor.Role != models.RoleCenterHead && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a center head may review classes")
	}
	release, err := s.locker.TryLock(draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.ClassStatusScheduled || draft.Approval() != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is not awaiting review")
	}

	var params repository.UpdateLifecycleParams
	outcome := "approved"
	switch req.Decision {
	case models.ReviewApprove:
		approved := models.ApprovalApproved
		params = repository.UpdateLifecycleParams{Status: models.ClassStatusScheduled, ApprovalStatus: &approved}
	default:
		rejected := models.ApprovalRejected
		reason := strings.TrimSpace(req.Reason)
		params = repository.UpdateLifecycleParams{Status: models.ClassStatusDraft, ApprovalStatus: &rejected, RejectionReason: &reason}
		outcome = "rejected"
	}
	if err := s.updateLifecycle(ctx, draftID, params); err != nil {
		return nil, err
	}
	draft.Status = params.Status
	draft.ApprovalStatus = params.ApprovalStatus
	draft.RejectionReason = params.RejectionReason

	sessions, err := loadSessions(ctx, s.sessions, draftID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSubmission(outcome)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionReview, draftID, map[string]interface{}{
		"decision": req.Decision,
		"reason":   req.Reason,
	})
	return toDraftResponse(draft, len(sessions)), nil
}

func (s *ReadinessService) updateLifecycle(ctx context.Context, draftID string, params repository.UpdateLifecycleParams) error {
	return withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if err := s.drafts.UpdateLifecycle(ctx, exec, draftID, params); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class draft not found")
			}
			return internalError(err, "failed to update class lifecycle")
		}
		return nil
	})
}

func (s *ReadinessService) pendingFor(draftID string) int {
	if s.pending == nil {
		return 0
	}
	return s.pending.Pending(draftID)
}

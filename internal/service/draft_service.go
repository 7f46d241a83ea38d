package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

type draftStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error
	FindByID(ctx context.Context, id string) (*models.ClassDraft, error)
	UpdateBasicInfo(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

type sessionBatchWriter interface {
	ListByClass(ctx context.Context, classID string) ([]models.Session, error)
	ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, sessions []models.Session) error
}

// cycleDiscarder drops conflict resolution state that refers to sessions being replaced.
type cycleDiscarder interface {
	Discard(draftID string)
}

// DraftService creates, edits and removes class drafts and generates their sessions.
type DraftService struct {
	drafts    draftStore
	sessions  sessionBatchWriter
	tx        txProvider
	audit     auditRecorder
	locker    *DraftLocker
	cycles    cycleDiscarder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDraftService wires draft dependencies. cycles may be nil.
func NewDraftService(drafts draftStore, sessions sessionBatchWriter, tx txProvider, audit auditRecorder, locker *DraftLocker, cycles cycleDiscarder, validate *validator.Validate, logger *zap.Logger) *DraftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewDraftLocker()
	}
	return &DraftService{
		drafts:    drafts,
		sessions:  sessions,
		tx:        tx,
		audit:     audit,
		locker:    locker,
		cycles:    cycles,
		validator: validate,
		logger:    logger,
	}
}

// Create validates basic info, persists the draft and generates its session batch.
func (s *DraftService) Create(ctx context.Context, actor models.Actor, req dto.CreateDraftRequest) (*dto.DraftResponse, error) {
	draft := &models.ClassDraft{CreatedBy: actor.UserID, Status: models.ClassStatusDraft}
	sessions, err := s.applyBasicInfo(ctx, draft, req.DraftBasicInfo)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if err := s.drafts.Create(ctx, exec, draft); err != nil {
			return internalError(err, "failed to create class draft")
		}
		if err := s.sessions.ReplaceForClass(ctx, exec, draft.ID, sessions); err != nil {
			return internalError(err, "failed to generate class sessions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionDraftCreate, draft.ID, map[string]interface{}{
		"code":     draft.Code,
		"sessions": len(sessions),
	})
	return toDraftResponse(draft, len(sessions)), nil
}

// Update replaces basic info. Schedule-shaping changes regenerate the sessions and drop their assignments.
func (s *DraftService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateDraftRequest) (*dto.DraftResponse, error) {
	release, err := s.locker.TryLock(id)
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, id)
	if err != nil {
		return nil, err
	}
	if err := guardMutation(draft, actor); err != nil {
		return nil, err
	}

	before := *draft
	sessions, err := s.applyBasicInfo(ctx, draft, req.DraftBasicInfo)
	if err != nil {
		return nil, err
	}
	regenerate := scheduleChanged(&before, draft)

	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if err := s.drafts.UpdateBasicInfo(ctx, exec, draft); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class draft not found")
			}
			return internalError(err, "failed to update class draft")
		}
		if !regenerate {
			return nil
		}
		if err := s.sessions.ReplaceForClass(ctx, exec, draft.ID, sessions); err != nil {
			return internalError(err, "failed to regenerate class sessions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	count := len(sessions)
	if regenerate {
		s.discardCycle(draft.ID)
	} else {
		existing, err := loadSessions(ctx, s.sessions, draft.ID)
		if err != nil {
			return nil, err
		}
		count = len(existing)
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionDraftUpdate, draft.ID, map[string]interface{}{
		"regenerated": regenerate,
		"sessions":    count,
	})
	return toDraftResponse(draft, count), nil
}

// Get returns the draft with its editability.
func (s *DraftService) Get(ctx context.Context, id string) (*dto.DraftResponse, error) {
	draft, err := loadDraft(ctx, s.drafts, id)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, id)
	if err != nil {
		return nil, err
	}
	return toDraftResponse(draft, len(sessions)), nil
}

// Delete removes an editable, unsubmitted draft. The removal is irreversible.
func (s *DraftService) Delete(ctx context.Context, actor models.Actor, id string) error {
	release, err := s.locker.TryLock(id)
	if err != nil {
		return err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, id)
	if err != nil {
		return err
	}
	if err := guardMutation(draft, actor); err != nil {
		return err
	}
	if err := withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if err := s.drafts.Delete(ctx, exec, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "class draft not found")
			}
			return internalError(err, "failed to delete class draft")
		}
		return nil
	}); err != nil {
		return err
	}
	s.discardCycle(id)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionDraftDelete, id, map[string]interface{}{"code": draft.Code})
	return nil
}

func (s *DraftService) discardCycle(id string) {
	if s.cycles != nil {
		s.cycles.Discard(id)
	}
}

// ListSessions returns the sessions grouped by week with a date range summary.
func (s *DraftService) ListSessions(ctx context.Context, id string) (*models.SessionPlan, error) {
	if _, err := loadDraft(ctx, s.drafts, id); err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, id)
	if err != nil {
		return nil, err
	}
	plan := GroupSessionsByWeek(id, sessions)
	return &plan, nil
}

func (s *DraftService) applyBasicInfo(ctx context.Context, draft *models.ClassDraft, info dto.DraftBasicInfo) ([]models.Session, error) {
	if err := s.validator.Struct(info); err != nil {
		return nil, appErrors.Validation(err, "invalid class basic info")
	}
	dates, err := info.ParseDates()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dates must use the YYYY-MM-DD format")
	}
	course, err := s.drafts.FindCourse(ctx, info.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError("courseId", "does not exist")
		}
		return nil, internalError(err, "failed to load course")
	}
	if course.TotalSessions <= 0 {
		return nil, fieldError("courseId", "course defines no sessions")
	}

	weekdays := models.NewWeekdaySet(info.Weekdays...)
	sessions := GenerateSessions(dates.Start, weekdays, course.TotalSessions)
	last := sessions[len(sessions)-1].Date

	end := last
	if dates.End != nil {
		if dates.End.Before(dates.Start) {
			return nil, fieldError("plannedEndDate", "must not be before startDate")
		}
		if dates.End.Before(last) {
			return nil, fieldError("plannedEndDate", fmt.Sprintf("must not be before the last session on %s", last.Format(dto.DateLayout)))
		}
		end = *dates.End
	}

	draft.Code = info.Code
	draft.Name = info.Name
	draft.BranchID = info.BranchID
	draft.CourseID = info.CourseID
	draft.Modality = info.Modality
	draft.StartDate = dates.Start
	draft.PlannedEndDate = end
	draft.Weekdays = weekdays
	draft.MaxCapacity = info.MaxCapacity
	return sessions, nil
}

// GenerateSessions walks calendar days from start and keeps days whose weekday is active until total sessions exist.
func GenerateSessions(start time.Time, weekdays models.WeekdaySet, total int) []models.Session {
	if len(weekdays) == 0 || total <= 0 {
		return nil
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	weekOrigin := day.AddDate(0, 0, -(int(models.WeekdayOf(day)) - 1))
	sessions := make([]models.Session, 0, total)
	for len(sessions) < total {
		wd := models.WeekdayOf(day)
		if weekdays.Contains(wd) {
			sessions = append(sessions, models.Session{
				Sequence:   len(sessions) + 1,
				Date:       day,
				DayOfWeek:  wd,
				WeekNumber: int(day.Sub(weekOrigin).Hours()/24)/7 + 1,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return sessions
}

// GroupSessionsByWeek groups sessions by week number preserving sequence order.
func GroupSessionsByWeek(classID string, sessions []models.Session) models.SessionPlan {
	plan := models.SessionPlan{ClassID: classID, TotalSessions: len(sessions), Weeks: []models.SessionWeek{}}
	index := make(map[int]int)
	for _, session := range sessions {
		if plan.FirstDate == nil || session.Date.Before(*plan.FirstDate) {
			d := session.Date
			plan.FirstDate = &d
		}
		if plan.LastDate == nil || session.Date.After(*plan.LastDate) {
			d := session.Date
			plan.LastDate = &d
		}
		pos, ok := index[session.WeekNumber]
		if !ok {
			plan.Weeks = append(plan.Weeks, models.SessionWeek{
				WeekNumber: session.WeekNumber,
				StartDate:  session.Date,
				EndDate:    session.Date,
			})
			pos = len(plan.Weeks) - 1
			index[session.WeekNumber] = pos
		}
		week := &plan.Weeks[pos]
		if session.Date.Before(week.StartDate) {
			week.StartDate = session.Date
		}
		if session.Date.After(week.EndDate) {
			week.EndDate = session.Date
		}
		week.Sessions = append(week.Sessions, session)
	}
	return plan
}

func scheduleChanged(before, after *models.ClassDraft) bool {
	if !before.StartDate.Equal(after.StartDate) || before.CourseID != after.CourseID {
		return true
	}
	if len(before.Weekdays) != len(after.Weekdays) {
		return true
	}
	for i := range before.Weekdays {
		if before.Weekdays[i] != after.Weekdays[i] {
			return true
		}
	}
	return false
}

func toDraftResponse(draft *models.ClassDraft, sessions int) *dto.DraftResponse {
	verdict := EvaluateLifecycle(draft.Status, draft.ApprovalStatus)
	return &dto.DraftResponse{
		ClassDraft: *draft,
		Editable:   verdict.Editable,
		LockReason: verdict.Reason,
		Sessions:   sessions,
	}
}

func fieldError(field, message string) error {
	err := appErrors.Clone(appErrors.ErrValidation, field+" "+message)
	err.Fields = map[string]string{field: message}
	return err
}

package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/logger"
)

const defaultWizardStateTTL = 7 * 24 * time.Hour

type wizardDrafts interface {
	Get(ctx context.Context, id string) (*dto.DraftResponse, error)
	ListSessions(ctx context.Context, id string) (*models.SessionPlan, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type wizardPatterns interface {
	CurrentPattern(ctx context.Context, draftID string, dim models.Dimension) (*dto.PatternCoverage, error)
}

type wizardResolution interface {
	State(ctx context.Context, draftID string) (*models.ResolutionSnapshot, error)
	Discard(draftID string)
}

type wizardReadiness interface {
	Validate(ctx context.Context, draftID string) (*models.Readiness, error)
}

type wizardStateStore interface {
	Save(ctx context.Context, userID string, state models.WizardState, ttl time.Duration) error
	Load(ctx context.Context, userID string) (*models.WizardState, error)
	Delete(ctx context.Context, userID string) error
}

// WizardFacts is the live data the step predicates are evaluated on.
type WizardFacts struct {
	Draft            *dto.DraftResponse
	Sessions         int
	TimeSlots        *dto.PatternCoverage
	Readiness        *models.Readiness
	PendingConflicts int
}

// WizardService orchestrates the six scheduling steps over a serialisable {draftId, currentStep} state.
type WizardService struct {
	drafts     wizardDrafts
	patterns   wizardPatterns
	resolution wizardResolution
	readiness  wizardReadiness
	states     wizardStateStore
	validator  *validator.Validate
	logger     *zap.Logger
	ttl        time.Duration
}

// NewWizardService wires the wizard orchestrator.
func NewWizardService(drafts wizardDrafts, patterns wizardPatterns, resolution wizardResolution, readiness wizardReadiness, states wizardStateStore, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *WizardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultWizardStateTTL
	}
	return &WizardService{
		drafts:     drafts,
		patterns:   patterns,
		resolution: resolution,
		readiness:  readiness,
		states:     states,
		validator:  validate,
		logger:     logger,
		ttl:        ttl,
	}
}

// EncodeWizardState renders the state as a URL-safe token.
func EncodeWizardState(state models.WizardState) string {
	raw, _ := json.Marshal(state)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeWizardState parses a token produced by EncodeWizardState.
func DecodeWizardState(token string) (models.WizardState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return models.WizardState{}, fmt.Errorf("decode wizard token: %w", err)
	}
	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.WizardState{}, fmt.Errorf("decode wizard token: %w", err)
	}
	if !state.CurrentStep.Valid() {
		return models.WizardState{}, fmt.Errorf("decode wizard token: invalid step %d", int(state.CurrentStep))
	}
	return state, nil
}

// EvaluateWizard computes completion and reachability of every step. Step n+1 is reachable only when steps
// 1..n are complete.
func EvaluateWizard(state models.WizardState, facts WizardFacts) models.WizardProgress {
	complete := map[models.WizardStep]bool{}
	reasons := map[models.WizardStep]string{}

	complete[models.StepBasicInfo] = facts.Draft != nil
	reasons[models.StepBasicInfo] = "create the class draft first"

	complete[models.StepSessionReview] = facts.Draft != nil && facts.Sessions > 0
	reasons[models.StepSessionReview] = "the class has no sessions"

	slotsAssignable := facts.TimeSlots != nil && len(facts.TimeSlots.NonAssignable) == 0
	complete[models.StepTimeSlots] = slotsAssignable && facts.Readiness != nil && facts.Readiness.Checks.AllSessionsHaveTimeSlots
	reasons[models.StepTimeSlots] = "every session needs a time slot"
	if facts.TimeSlots != nil && len(facts.TimeSlots.NonAssignable) > 0 {
		reasons[models.StepTimeSlots] = "some weekdays have no time slot matching the course duration"
	}

	complete[models.StepResources] = facts.Readiness != nil && facts.Readiness.Checks.AllSessionsHaveResources && facts.PendingConflicts == 0
	reasons[models.StepResources] = "every session needs a resource"
	if facts.PendingConflicts > 0 {
		reasons[models.StepResources] = fmt.Sprintf("%d resource conflicts are still pending", facts.PendingConflicts)
	}

	complete[models.StepTeachers] = facts.Readiness != nil && facts.Readiness.Checks.AllSessionsHaveTeachers
	reasons[models.StepTeachers] = "every session needs a teacher"

	submitted := false
	if facts.Draft != nil {
		approval := facts.Draft.Approval()
		submitted = approval == models.ApprovalPending || approval == models.ApprovalApproved
	}
	complete[models.StepSubmit] = submitted
	reasons[models.StepSubmit] = "the class has not been submitted"

	progress := models.WizardProgress{State: state, Token: EncodeWizardState(state)}
	reachable := true
	blocker := ""
	for _, step := range models.WizardSteps {
		status := models.WizardStepStatus{
			Step:      step,
			Name:      step.String(),
			Complete:  complete[step],
			Reachable: reachable,
		}
		if !reachable {
			status.Reason = blocker
		}
		progress.Steps = append(progress.Steps, status)
		if reachable && !complete[step] {
			reachable = false
			blocker = reasons[step]
		}
	}
	return progress
}

// Overview resolves the wizard state and gathers the data every step renders from. Reads run concurrently.
func (s *WizardService) Overview(ctx context.Context, actor models.Actor, token string) (*dto.WizardOverview, error) {
	state, err := s.resolveState(ctx, actor, token)
	if err != nil {
		return nil, err
	}
	overview, facts, err := s.gather(ctx, state)
	if err != nil {
		return nil, err
	}
	if overview.Draft == nil && state.DraftID != "" {
		state = models.WizardState{CurrentStep: models.StepBasicInfo}
	}
	overview.Progress = EvaluateWizard(state, facts)
	s.persist(ctx, actor, state)
	return overview, nil
}

// Navigate moves to req.Step, or to the next step when none is given. Moving back is always allowed; moving
// forward is re-validated against live data.
func (s *WizardService) Navigate(ctx context.Context, actor models.Actor, req dto.WizardNavigateRequest) (*models.WizardProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid wizard navigation")
	}
	state, err := s.resolveState(ctx, actor, req.Token)
	if err != nil {
		return nil, err
	}
	if req.DraftID != "" {
		state.DraftID = req.DraftID
	}
	target := req.Step
	if target == 0 {
		target = state.CurrentStep + 1
	}
	if !target.Valid() {
		return nil, fieldError("step", "is past the last wizard step")
	}

	_, facts, err := s.gather(ctx, state)
	if err != nil {
		return nil, err
	}
	if facts.Draft == nil {
		state.DraftID = ""
	}
	progress := EvaluateWizard(state, facts)
	if target > state.CurrentStep {
		status := progress.Steps[target-1]
		if !status.Reachable {
			return nil, fieldError("step", fmt.Sprintf("%s is not reachable yet: %s", target, status.Reason))
		}
	}

	state.CurrentStep = target
	progress = EvaluateWizard(state, facts)
	s.persist(ctx, actor, state)
	return &progress, nil
}

// Leave ends the wizard. DELETE irreversibly removes the draft; KEEP leaves it for later.
func (s *WizardService) Leave(ctx context.Context, actor models.Actor, req dto.WizardLeaveRequest) (*dto.WizardLeaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid wizard leave choice")
	}
	state, err := s.resolveState(ctx, actor, req.Token)
	if err != nil {
		return nil, err
	}
	out := &dto.WizardLeaveResponse{DraftID: state.DraftID}
	if req.Choice == models.LeaveDelete && state.DraftID != "" {
		if err := s.drafts.Delete(ctx, actor, state.DraftID); err != nil {
			return nil, err
		}
		if s.resolution != nil {
			s.resolution.Discard(state.DraftID)
		}
		out.Deleted = true
	}
	if s.states != nil {
		if err := s.states.Delete(ctx, actor.UserID); err != nil {
			logger.FromContext(ctx, s.logger).Warn("failed to clear wizard state", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}
	return out, nil
}

func (s *WizardService) resolveState(ctx context.Context, actor models.Actor, token string) (models.WizardState, error) {
	if token != "" {
		state, err := DecodeWizardState(token)
		if err != nil {
			return models.WizardState{}, fieldError("token", "is not a valid wizard state")
		}
		return state, nil
	}
	if s.states != nil {
		if saved, err := s.states.Load(ctx, actor.UserID); err == nil && saved != nil && saved.CurrentStep.Valid() {
			return *saved, nil
		}
	}
	return models.WizardState{CurrentStep: models.StepBasicInfo}, nil
}

func (s *WizardService) persist(ctx context.Context, actor models.Actor, state models.WizardState) {
	if s.states == nil || actor.UserID == "" {
		return
	}
	if err := s.states.Save(ctx, actor.UserID, state, s.ttl); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to save wizard state", zap.String("user_id", actor.UserID), zap.Error(err))
	}
}

func (s *WizardService) gather(ctx context.Context, state models.WizardState) (*dto.WizardOverview, WizardFacts, error) {
	overview := &dto.WizardOverview{}
	if state.DraftID == "" {
		return overview, WizardFacts{}, nil
	}

	draft, err := s.drafts.Get(ctx, state.DraftID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			return overview, WizardFacts{}, nil
		}
		return nil, WizardFacts{}, err
	}
	overview.Draft = draft

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, err := s.drafts.ListSessions(gctx, state.DraftID)
		overview.Sessions = plan
		return err
	})
	g.Go(func() error {
		coverage, err := s.patterns.CurrentPattern(gctx, state.DraftID, models.DimensionTimeSlot)
		overview.TimeSlots = coverage
		return err
	})
	g.Go(func() error {
		coverage, err := s.patterns.CurrentPattern(gctx, state.DraftID, models.DimensionResource)
		overview.Resources = coverage
		return err
	})
	g.Go(func() error {
		readiness, err := s.readiness.Validate(gctx, state.DraftID)
		overview.Readiness = readiness
		return err
	})
	g.Go(func() error {
		if s.resolution == nil {
			return nil
		}
		snapshot, err := s.resolution.State(gctx, state.DraftID)
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
				return nil
			}
			return err
		}
		overview.Resolution = snapshot
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, WizardFacts{}, err
	}

	facts := WizardFacts{
		Draft:     overview.Draft,
		TimeSlots: overview.TimeSlots,
		Readiness: overview.Readiness,
	}
	if overview.Sessions != nil {
		facts.Sessions = overview.Sessions.TotalSessions
	}
	if overview.Resolution != nil {
		facts.PendingConflicts = overview.Resolution.Pending
	}
	return overview, facts, nil
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

type memoryWizardStates struct {
	mu     sync.Mutex
	states map[string]models.WizardState
}

func newMemoryWizardStates() *memoryWizardStates {
	return &memoryWizardStates{states: map[string]models.WizardState{}}
}

func (m *memoryWizardStates) Save(ctx context.Context, userID string, state models.WizardState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = state
	return nil
}

func (m *memoryWizardStates) Load(ctx context.Context, userID string) (*models.WizardState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *memoryWizardStates) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func newWizard(svc *services, states wizardStateStore) *WizardService {
	return NewWizardService(svc.drafts, svc.patterns, svc.resolution, svc.readiness, states, nil, nil, 0)
}

func TestWizardStateTokenRoundTrip(t *testing.T) {
	state := models.WizardState{DraftID: "class-a", CurrentStep: models.StepResources}
	decoded, err := DecodeWizardState(EncodeWizardState(state))
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	_, err = DecodeWizardState("%%%")
	assert.Error(t, err)
	_, err = DecodeWizardState(EncodeWizardState(models.WizardState{CurrentStep: 9}))
	assert.Error(t, err)
}

func TestEvaluateWizardReachability(t *testing.T) {
	progress := EvaluateWizard(models.WizardState{CurrentStep: models.StepBasicInfo}, WizardFacts{})
	require.Len(t, progress.Steps, 6)
	assert.True(t, progress.Steps[0].Reachable)
	assert.False(t, progress.Steps[0].Complete)
	for _, step := range progress.Steps[1:] {
		assert.False(t, step.Reachable)
		assert.Equal(t, "create the class draft first", step.Reason)
	}

	draft := &dto.DraftResponse{ClassDraft: models.ClassDraft{ID: "class-a", Status: models.ClassStatusDraft}}
	facts := WizardFacts{
		Draft:            draft,
		Sessions:         8,
		TimeSlots:        &dto.PatternCoverage{NonAssignable: []models.Weekday{}},
		Readiness:        &models.Readiness{Checks: models.ReadinessChecks{AllSessionsHaveTimeSlots: true, AllSessionsHaveResources: true}},
		PendingConflicts: 2,
	}
	progress = EvaluateWizard(models.WizardState{DraftID: "class-a", CurrentStep: models.StepResources}, facts)
	assert.True(t, progress.Steps[3].Reachable)
	assert.False(t, progress.Steps[3].Complete)
	assert.False(t, progress.Steps[4].Reachable)
	assert.Equal(t, "2 resource conflicts are still pending", progress.Steps[4].Reason)
}

func TestWizardNavigateRevalidatesForwardMoves(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	states := newMemoryWizardStates()
	wizard := newWizard(svc, states)
	ctx := context.Background()

	_, err := wizard.Navigate(ctx, owner, dto.WizardNavigateRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	progress, err := wizard.Navigate(ctx, owner, dto.WizardNavigateRequest{DraftID: "class-a", Step: models.StepTimeSlots})
	require.NoError(t, err)
	assert.Equal(t, models.StepTimeSlots, progress.State.CurrentStep)

	_, err = wizard.Navigate(ctx, owner, dto.WizardNavigateRequest{Step: models.StepResources})
	require.Error(t, err, "time slots are not assigned yet")
	assert.Contains(t, appErrors.FromError(err).Message, "every session needs a time slot")

	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	progress, err = wizard.Navigate(ctx, owner, dto.WizardNavigateRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StepResources, progress.State.CurrentStep)

	back, err := wizard.Navigate(ctx, owner, dto.WizardNavigateRequest{Token: progress.Token, Step: models.StepBasicInfo})
	require.NoError(t, err)
	assert.Equal(t, models.StepBasicInfo, back.State.CurrentStep)
	assert.Equal(t, "class-a", back.State.DraftID)
	assert.Equal(t, models.StepBasicInfo, states.states[owner.UserID].CurrentStep)
}

func TestWizardOverviewResetsWhenDraftIsGone(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	wizard := newWizard(svc, newMemoryWizardStates())
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday)

	token := EncodeWizardState(models.WizardState{DraftID: "class-a", CurrentStep: models.StepSessionReview})
	overview, err := wizard.Overview(ctx, owner, token)
	require.NoError(t, err)
	require.NotNil(t, overview.Draft)
	require.NotNil(t, overview.Sessions)
	assert.Equal(t, 8, overview.Sessions.TotalSessions)
	require.NotNil(t, overview.Readiness)
	assert.Nil(t, overview.Resolution)

	require.NoError(t, svc.drafts.Delete(ctx, owner, "class-a"))
	overview, err = wizard.Overview(ctx, owner, token)
	require.NoError(t, err)
	assert.Nil(t, overview.Draft)
	assert.Equal(t, models.WizardState{CurrentStep: models.StepBasicInfo}, overview.Progress.State)
}

func TestWizardLeave(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	states := newMemoryWizardStates()
	wizard := newWizard(svc, states)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday)
	w.addDraft("class-b", "Bravo", "course-en", date("2024-01-01"), models.Monday)

	keepToken := EncodeWizardState(models.WizardState{DraftID: "class-b", CurrentStep: models.StepTimeSlots})
	kept, err := wizard.Leave(ctx, owner, dto.WizardLeaveRequest{Token: keepToken, Choice: models.LeaveKeep})
	require.NoError(t, err)
	assert.False(t, kept.Deleted)
	assert.Contains(t, w.drafts, "class-b")

	require.NoError(t, states.Save(ctx, owner.UserID, models.WizardState{DraftID: "class-a", CurrentStep: models.StepTimeSlots}, time.Hour))
	deleted, err := wizard.Leave(ctx, owner, dto.WizardLeaveRequest{Choice: models.LeaveDelete})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, "class-a", deleted.DraftID)
	assert.NotContains(t, w.drafts, "class-a")
	assert.Empty(t, states.states)

	_, err = wizard.Leave(ctx, owner, dto.WizardLeaveRequest{Choice: "LATER"})
	require.Error(t, err)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

func sessionAt(day models.Weekday, slot string) models.Session {
	s := models.Session{DayOfWeek: day}
	if slot != "" {
		s.TimeSlotID = strPtr(slot)
	}
	return s
}

func TestDeriveCurrentPattern(t *testing.T) {
	sessions := []models.Session{
		sessionAt(models.Monday, "A"),
		sessionAt(models.Monday, "B"),
		sessionAt(models.Monday, "B"),
		sessionAt(models.Wednesday, "C"),
		sessionAt(models.Wednesday, "D"),
		sessionAt(models.Friday, ""),
		sessionAt(models.Saturday, "X"),
	}
	pattern := DeriveCurrentPattern([]models.Weekday{models.Monday, models.Wednesday, models.Friday}, sessions, models.DimensionTimeSlot)

	assert.Equal(t, models.Pattern{models.Monday: "B", models.Wednesday: "C"}, pattern)
}

func TestProposePatternDropsEmptyAndInactive(t *testing.T) {
	pattern := ProposePattern([]models.Weekday{models.Monday, models.Wednesday}, map[models.Weekday]string{
		models.Monday:    "slot-am",
		models.Wednesday: "  ",
		models.Friday:    "slot-pm",
	})
	assert.Equal(t, models.Pattern{models.Monday: "slot-am"}, pattern)
}

func TestFilterTimeSlotCandidates(t *testing.T) {
	slots := []models.TimeSlotTemplate{
		{ID: "b", Name: "B", StartTime: "13:00", EndTime: "14:30"},
		{ID: "a", Name: "A", StartTime: "09:00", EndTime: "10:30"},
		{ID: "long", Name: "Long", StartTime: "09:00", EndTime: "11:00"},
		{ID: "broken", Name: "Broken", StartTime: "11:00", EndTime: "09:00"},
	}
	got := FilterTimeSlotCandidates(slots, 1.5, 0.01)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.Len(t, FilterTimeSlotCandidates(slots, 2, 0.01), 1)
	assert.Empty(t, FilterTimeSlotCandidates(slots, 1.75, 0.01))
}

func TestBuildCoverage(t *testing.T) {
	coverage := BuildCoverage(models.DimensionTimeSlot,
		[]models.Weekday{models.Monday, models.Wednesday, models.Friday},
		models.Pattern{models.Monday: "slot-am"},
		[]models.Weekday{models.Friday},
	)
	assert.Equal(t, []models.Weekday{models.Friday}, coverage.NonAssignable)
	assert.Equal(t, []models.Weekday{models.Wednesday, models.Friday}, coverage.Unassigned)
	assert.False(t, coverage.AllWeekdaysAssigned)

	full := BuildCoverage(models.DimensionResource, []models.Weekday{models.Monday}, models.Pattern{models.Monday: "R1"}, nil)
	assert.True(t, full.AllWeekdaysAssigned)
}

func TestPatternServiceTimeSlotCandidates(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)

	resp, cacheHit, err := svc.patterns.ListTimeSlotCandidates(context.Background(), "class-a")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.True(t, resp.AllAssignable)
	require.Len(t, resp.Weekdays, 2)
	for _, wd := range resp.Weekdays {
		require.Len(t, wd.Candidates, 2)
		assert.Equal(t, "slot-am", wd.Candidates[0].ID)
		assert.Equal(t, "slot-pm", wd.Candidates[1].ID)
	}

	w.mu.Lock()
	w.slots = w.slots[2:]
	w.mu.Unlock()
	coverage, err := svc.patterns.CurrentPattern(context.Background(), "class-a", models.DimensionTimeSlot)
	require.NoError(t, err)
	assert.Equal(t, []models.Weekday{models.Monday, models.Wednesday}, coverage.NonAssignable)
}

func TestPatternServiceApplyTimeSlotRoundTrip(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)

	pattern := models.Pattern{models.Monday: "slot-am", models.Wednesday: "slot-pm"}
	resp, err := svc.patterns.ApplyTimeSlotPattern(ctx, owner, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: pattern})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.UpdatedSessions)

	coverage, err := svc.patterns.CurrentPattern(ctx, "class-a", models.DimensionTimeSlot)
	require.NoError(t, err)
	assert.Equal(t, pattern, coverage.Pattern)
	assert.True(t, coverage.AllWeekdaysAssigned)
	assert.Contains(t, w.auditActions(), models.AuditActionTimeSlotPattern)
}

func TestPatternServiceApplyTimeSlotRejectsInvalidPattern(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)

	cases := map[string]models.Pattern{
		"inactive weekday":  {models.Friday: "slot-am"},
		"duration mismatch": {models.Monday: "slot-long"},
		"empty selection":   {models.Monday: ""},
	}
	for name, pattern := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.patterns.ApplyTimeSlotPattern(ctx, owner, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: pattern})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	for _, session := range w.sessionsOf("class-a") {
		assert.Nil(t, session.TimeSlotID)
	}
}

func TestPatternServiceApplyResourceDetectsConflicts(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	w.assignOn("class-a", models.DimensionTimeSlot, "slot-pm", date("2024-01-22"))
	w.mu.Lock()
	w.sessions["class-a"][7].TimeSlotID = nil
	w.mu.Unlock()

	w.addDraft("class-b", "Bravo", "course-short", date("2024-01-01"), models.Monday)
	w.assignAll("class-b", models.DimensionTimeSlot, "slot-am")
	w.assignAll("class-b", models.DimensionResource, "R1")
	approved := models.ApprovalApproved
	w.setApproval("class-b", models.ClassStatusScheduled, &approved)

	resp, err := svc.patterns.ApplyResourcePattern(ctx, owner, "class-a", models.Pattern{models.Monday: "R1", models.Wednesday: "R-small"}, false)
	require.NoError(t, err)

	reasons := map[string]models.ConflictReason{}
	for _, c := range resp.Conflicts {
		reasons[c.Date.Format(dto.DateLayout)] = c.Reason
	}
	assert.Equal(t, models.ReasonClassBooking, reasons["2024-01-01"])
	assert.Equal(t, models.ReasonClassBooking, reasons["2024-01-08"])
	assert.Equal(t, models.ReasonCapacityExceeded, reasons["2024-01-03"])
	assert.Equal(t, models.ReasonTimeSlotMissing, reasons["2024-01-24"])
	assert.Len(t, resp.Conflicts, 6)
	assert.Equal(t, 2, resp.AssignedSessions)

	assigned := w.sessionOn("class-a", date("2024-01-22"))
	assert.Equal(t, "R1", assigned.Assigned(models.DimensionResource))
	assert.False(t, assigned.ResourceOverride)
	assert.Nil(t, w.sessionOn("class-a", date("2024-01-01")).ResourceID, "conflicting sessions keep their previous resource")
}

func TestPatternServiceResourceCandidatesRanking(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	w.addDraft("class-b", "Bravo", "course-short", date("2024-01-01"), models.Monday)
	w.assignAll("class-b", models.DimensionTimeSlot, "slot-am")
	w.assignAll("class-b", models.DimensionResource, "R1")

	got, err := svc.patterns.ListResourceCandidates(ctx, "class-a", dto.ResourceCandidatesQuery{Weekday: models.Monday, TimeSlotID: "slot-am"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "R2", got[0].ID)
	assert.Equal(t, "R3", got[1].ID)
	assert.Equal(t, "R1", got[2].ID)
	require.NotNil(t, got[2].AvailabilityRate)
	assert.Equal(t, 50.0, *got[2].AvailabilityRate)
	assert.Equal(t, 100.0, *got[0].AvailabilityRate)

	_, err = svc.patterns.ListResourceCandidates(ctx, "class-a", dto.ResourceCandidatesQuery{Weekday: models.Friday, TimeSlotID: "slot-am"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPatternServiceAssignSessionResource(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	w.addDraft("class-b", "Bravo", "course-short", date("2024-01-01"), models.Monday)
	w.assignAll("class-b", models.DimensionTimeSlot, "slot-am")
	w.assignAll("class-b", models.DimensionResource, "R2")

	session := w.sessionOn("class-a", date("2024-01-01"))

	_, err := svc.patterns.AssignSessionResource(ctx, owner, "class-a", session.ID, "R2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.patterns.AssignSessionResource(ctx, owner, "class-a", session.ID, "R-small")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.patterns.AssignSessionResource(ctx, owner, "class-a", session.ID, "R-far")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	updated, err := svc.patterns.AssignSessionResource(ctx, owner, "class-a", session.ID, "R3")
	require.NoError(t, err)
	assert.True(t, updated.ResourceOverride)
	assert.Equal(t, "R3", updated.Assigned(models.DimensionResource))

	calls := svc.sessions.bookingCalls
	again, err := svc.patterns.AssignSessionResource(ctx, owner, "class-a", session.ID, "R3")
	require.NoError(t, err)
	assert.Equal(t, "R3", again.Assigned(models.DimensionResource))
	assert.Equal(t, calls, svc.sessions.bookingCalls, "repeating the assignment does no work")
}

func TestPatternServiceResourceSuggestions(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	w.assignOn("class-a", models.DimensionResource, "R3", date("2024-01-01"))
	w.addDraft("class-b", "Bravo", "course-short", date("2024-01-01"), models.Monday)
	w.assignAll("class-b", models.DimensionTimeSlot, "slot-am")
	w.assignAll("class-b", models.DimensionResource, "R2")

	session := w.sessionOn("class-a", date("2024-01-01"))
	options, err := svc.patterns.ListResourceSuggestions(context.Background(), "class-a", session.ID)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "R1", options[0].ResourceID)
}

func TestPatternServiceCachesBranchSlots(t *testing.T) {
	w := newWorld()
	cache := NewCacheService(newMemoryCache(), nil, 0, nil, true)
	slots := w.slotRepo()
	svc := NewPatternService(w.draftRepo(), w.sessionRepo(), slots, w.resourceRepo(), nil, nil, nil, cache, nil, nil, nil, PatternConfig{})
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday)

	for i := 0; i < 3; i++ {
		_, cacheHit, err := svc.ListTimeSlotCandidates(context.Background(), "class-a")
		require.NoError(t, err)
		assert.Equal(t, i > 0, cacheHit)
	}
	assert.Equal(t, 1, slots.calls)
}

func TestPatternServiceApplyResourceRoundTrip(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")

	pattern := models.Pattern{models.Monday: "R1", models.Wednesday: "R3"}
	resp, err := svc.patterns.ApplyResourcePattern(ctx, owner, "class-a", pattern, false)
	require.NoError(t, err)
	assert.Empty(t, resp.Conflicts)
	assert.Equal(t, 8, resp.AssignedSessions)

	coverage, err := svc.patterns.CurrentPattern(ctx, "class-a", models.DimensionResource)
	require.NoError(t, err)
	assert.Equal(t, pattern, coverage.Pattern)
	assert.True(t, coverage.AllWeekdaysAssigned)
}

func TestPatternServiceRefreshesStaleSlotCatalog(t *testing.T) {
	w := newWorld()
	cache := NewCacheService(newMemoryCache(), nil, 0, nil, true)
	slots := w.slotRepo()
	svc := NewPatternService(w.draftRepo(), w.sessionRepo(), slots, w.resourceRepo(), nil, nil, nil, cache, nil, nil, nil, PatternConfig{})
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday)

	_, _, err := svc.ListTimeSlotCandidates(ctx, "class-a")
	require.NoError(t, err)
	w.mu.Lock()
	w.slots = append(w.slots, models.TimeSlotTemplate{ID: "slot-eve", BranchID: testBranch, Name: "Evening", StartTime: "18:00", EndTime: "19:30"})
	w.mu.Unlock()

	resp, err := svc.ApplyTimeSlotPattern(ctx, owner, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: models.Pattern{models.Monday: "slot-eve"}})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.UpdatedSessions)
	assert.Equal(t, 2, slots.calls)

	_, err = svc.ApplyTimeSlotPattern(ctx, owner, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: models.Pattern{models.Monday: "slot-gone"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 3, slots.calls)
}

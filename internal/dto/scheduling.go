package dto

import "github.com/noah-isme/acadops-api/internal/models"

// ApplyTimeSlotPatternRequest fans one time slot per weekday out to matching sessions.
type ApplyTimeSlotPatternRequest struct {
	Pattern models.Pattern `json:"pattern" validate:"required,min=1"`
}

// ApplyTimeSlotPatternResponse reports how many sessions were updated.
type ApplyTimeSlotPatternResponse struct {
	UpdatedSessions int `json:"updatedSessions"`
}

// ApplyResourcePatternRequest fans one resource per weekday out to matching sessions.
type ApplyResourcePatternRequest struct {
	Pattern       models.Pattern `json:"pattern" validate:"required,min=1"`
	ForceOverride bool           `json:"forceOverride"`
}

// ApplyResourcePatternResponse lists the sessions that could not take the pattern.
type ApplyResourcePatternResponse struct {
	AssignedSessions int                        `json:"assignedSessions"`
	Conflicts        []models.ResourceConflict  `json:"conflicts"`
	Resolution       *models.ResolutionSnapshot `json:"resolution,omitempty"`
}

// PatternCoverage reports pattern completeness for the fan-out confirmation step.
type PatternCoverage struct {
	Dimension           models.Dimension `json:"dimension"`
	Pattern             models.Pattern   `json:"pattern"`
	NonAssignable       []models.Weekday `json:"nonAssignable"`
	Unassigned          []models.Weekday `json:"unassigned"`
	AllWeekdaysAssigned bool             `json:"allWeekdaysAssigned"`
}

// TimeSlotCandidatesResponse lists duration-matching templates per active weekday.
type TimeSlotCandidatesResponse struct {
	HoursPerSession float64                   `json:"hoursPerSession"`
	Weekdays        []models.WeekdayTimeSlots `json:"weekdays"`
	AllAssignable   bool                      `json:"allAssignable"`
}

// ResourceCandidatesQuery filters resource candidates for one weekday.
type ResourceCandidatesQuery struct {
	Weekday    models.Weekday `validate:"required,min=1,max=7"`
	TimeSlotID string         `validate:"required"`
}

// AssignSessionResourceRequest assigns one resource to one session.
type AssignSessionResourceRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
}

// ResolveConflictRequest picks an alternative for one or all pending conflicts.
type ResolveConflictRequest struct {
	ResourceID string `json:"resourceId" validate:"required"`
}

// LoadSuggestionsRequest asks for alternatives for one weekday group.
type LoadSuggestionsRequest struct {
	DayOfWeek models.Weekday `json:"dayOfWeek" validate:"required,min=1,max=7"`
}

// ReapplyResponse is the outcome of a forced re-apply round.
type ReapplyResponse struct {
	Conflicts  []models.ResourceConflict `json:"conflicts"`
	Resolution models.ResolutionSnapshot `json:"resolution"`
}

// AssignTeacherRequest names the teacher to commit to the class.
type AssignTeacherRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
}

// ReviewRequest approves or rejects a submitted class.
type ReviewRequest struct {
	Decision models.ReviewDecision `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Reason   string                `json:"reason" validate:"required_if=Decision REJECT,max=500"`
}

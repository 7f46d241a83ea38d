package models

import "time"

// Dimension names one of the three per-session assignment fields.
type Dimension string

const (
	DimensionTimeSlot Dimension = "TIME_SLOT"
	DimensionResource Dimension = "RESOURCE"
	DimensionTeacher  Dimension = "TEACHER"
)

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionTimeSlot, DimensionResource, DimensionTeacher:
		return true
	default:
		return false
	}
}

// Session is one dated meeting of a class.
type Session struct {
	ID               string    `db:"id" json:"id"`
	ClassID          string    `db:"class_id" json:"classId"`
	Sequence         int       `db:"sequence" json:"sequence"`
	Date             time.Time `db:"session_date" json:"date"`
	DayOfWeek        Weekday   `db:"day_of_week" json:"dayOfWeek"`
	WeekNumber       int       `db:"week_number" json:"weekNumber"`
	TimeSlotID       *string   `db:"time_slot_id" json:"timeSlotId,omitempty"`
	ResourceID       *string   `db:"resource_id" json:"resourceId,omitempty"`
	TeacherID        *string   `db:"teacher_id" json:"teacherId,omitempty"`
	ResourceOverride bool      `db:"resource_override" json:"resourceOverride"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// Assigned returns the value held for the dimension, or "" when unset.
func (s Session) Assigned(dim Dimension) string {
	var ref *string
	switch dim {
	case DimensionTimeSlot:
		ref = s.TimeSlotID
	case DimensionResource:
		ref = s.ResourceID
	case DimensionTeacher:
		ref = s.TeacherID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// Pattern maps a weekday to the value chosen for every session on that weekday.
type Pattern map[Weekday]string

// SessionWeek groups sessions of the same week number.
type SessionWeek struct {
	WeekNumber int       `json:"weekNumber"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Sessions   []Session `json:"sessions"`
}

// SessionPlan is the week-grouped session listing with its date range summary.
type SessionPlan struct {
	ClassID       string        `json:"classId"`
	TotalSessions int           `json:"totalSessions"`
	FirstDate     *time.Time    `json:"firstDate,omitempty"`
	LastDate      *time.Time    `json:"lastDate,omitempty"`
	Weeks         []SessionWeek `json:"weeks"`
}

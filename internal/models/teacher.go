package models

import "time"

// Teacher is a branch instructor who can be assigned to class sessions.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	BranchID string `db:"branch_id" json:"branchId"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Active   bool   `db:"active" json:"active"`
}

// TeacherUnavailability is a declared weekly block during which a teacher cannot teach.
type TeacherUnavailability struct {
	TeacherID string  `db:"teacher_id" json:"teacherId"`
	DayOfWeek Weekday `db:"day_of_week" json:"dayOfWeek"`
	StartTime string  `db:"start_time" json:"startTime"`
	EndTime   string  `db:"end_time" json:"endTime"`
}

// TeacherBooking is a session of another class already taught by a teacher.
type TeacherBooking struct {
	SessionID string    `db:"session_id"`
	ClassID   string    `db:"class_id"`
	ClassName string    `db:"class_name"`
	TeacherID string    `db:"teacher_id"`
	Date      time.Time `db:"session_date"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
}

// TeacherConflictReason explains why a teacher cannot take a session.
type TeacherConflictReason string

const (
	TeacherConflictNoTimeSlot   TeacherConflictReason = "NO_TIME_SLOT"
	TeacherConflictDoubleBooked TeacherConflictReason = "DOUBLE_BOOKED"
	TeacherConflictUnavailable  TeacherConflictReason = "UNAVAILABLE"
)

// TeacherConflict is one session a candidate cannot cover.
type TeacherConflict struct {
	SessionID        string                `json:"sessionId"`
	Date             time.Time             `json:"date"`
	DayOfWeek        Weekday               `json:"dayOfWeek"`
	Reason           TeacherConflictReason `json:"reason"`
	ConflictingClass string                `json:"conflictingClass,omitempty"`
}

// WeekdayAvailability breaks a candidate's availability down per weekday.
type WeekdayAvailability struct {
	DayOfWeek         Weekday `json:"dayOfWeek"`
	TotalSessions     int     `json:"totalSessions"`
	AvailableSessions int     `json:"availableSessions"`
}

// TeacherAvailability is a candidate's computed availability against a class.
type TeacherAvailability struct {
	TeacherID         string                `json:"teacherId"`
	Name              string                `json:"name"`
	TotalSessions     int                   `json:"totalSessions"`
	AvailableSessions int                   `json:"availableSessions"`
	ConflictCount     int                   `json:"conflictCount"`
	AvailabilityRate  float64               `json:"availabilityRate"`
	IsRecommended     bool                  `json:"isRecommended"`
	Conflicts         []TeacherConflict     `json:"conflicts,omitempty"`
	WeekdayBreakdown  []WeekdayAvailability `json:"weekdayBreakdown,omitempty"`
}

// TeacherRanking is the partitioned result of one ranking attempt.
type TeacherRanking struct {
	AttemptID   string                `json:"attemptId"`
	Recommended []TeacherAvailability `json:"recommended"`
	Conflicted  []TeacherAvailability `json:"conflicted"`
}

// TeacherAssignment is the outcome of assigning a teacher to a class.
type TeacherAssignment struct {
	TeacherID        string `json:"teacherId"`
	AssignedSessions int    `json:"assignedSessions"`
	UncoveredCount   int    `json:"uncoveredCount"`
	NeedsSubstitute  bool   `json:"needsSubstitute"`
}

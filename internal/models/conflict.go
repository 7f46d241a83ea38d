package models

import "time"

// ConflictReason explains why a session rejected a fanned-out resource.
type ConflictReason string

const (
	ReasonCapacityExceeded ConflictReason = "CAPACITY_EXCEEDED"
	ReasonBookingConflict  ConflictReason = "BOOKING_CONFLICT"
	ReasonClassBooking     ConflictReason = "CLASS_BOOKING"
	ReasonTimeSlotMissing  ConflictReason = "TIME_SLOT_MISSING"
)

// ResourceOption is an alternative resource offered for a conflicting session.
type ResourceOption struct {
	ResourceID string       `json:"resourceId"`
	Name       string       `json:"name"`
	Type       ResourceType `json:"type"`
	Capacity   int          `json:"capacity"`
}

// ResourceConflict is a session-level rejection returned by a resource fan-out.
type ResourceConflict struct {
	SessionID          string           `json:"sessionId"`
	Date               time.Time        `json:"date"`
	DayOfWeek          Weekday          `json:"dayOfWeek"`
	Reason             ConflictReason   `json:"reason"`
	ResourceID         string           `json:"resourceId,omitempty"`
	Alternatives       []ResourceOption `json:"alternatives"`
	ConflictingClasses []string         `json:"conflictingClasses"`
}

// ConflictState is the resolution progress of one conflict.
type ConflictState string

const (
	ConflictIdle    ConflictState = "idle"
	ConflictLoading ConflictState = "loading"
	ConflictSuccess ConflictState = "success"
	ConflictError   ConflictState = "error"
)

// TrackedConflict pairs a conflict with its resolution state.
type TrackedConflict struct {
	ResourceConflict
	State   ConflictState `json:"state"`
	Message string        `json:"message,omitempty"`
}

// ConflictGroup partitions conflicts of one weekday.
type ConflictGroup struct {
	DayOfWeek Weekday           `json:"dayOfWeek"`
	Total     int               `json:"total"`
	Resolved  int               `json:"resolved"`
	Remaining int               `json:"remaining"`
	Conflicts []TrackedConflict `json:"conflicts"`
}

// ResolutionSnapshot is the externally visible state of a conflict resolution session.
type ResolutionSnapshot struct {
	ClassID   string          `json:"classId"`
	Pattern   Pattern         `json:"pattern"`
	Pending   int             `json:"pending"`
	Resolved  int             `json:"resolved"`
	Round     int             `json:"round"`
	Done      bool            `json:"done"`
	Groups    []ConflictGroup `json:"groups"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BulkResolution reports the aggregate outcome of a bulk resolve.
type BulkResolution struct {
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
	Pending      int `json:"pending"`
}

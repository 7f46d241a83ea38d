package models

import "time"

// ResourceType distinguishes physical rooms from online accounts.
type ResourceType string

const (
	ResourceRoom    ResourceType = "ROOM"
	ResourceVirtual ResourceType = "VIRTUAL"
)

// Resource is a branch-scoped bookable entity.
type Resource struct {
	ID               string       `db:"id" json:"id"`
	BranchID         string       `db:"branch_id" json:"branchId"`
	Type             ResourceType `db:"type" json:"type"`
	Name             string       `db:"name" json:"name"`
	Capacity         int          `db:"capacity" json:"capacity"`
	AvailabilityRate *float64     `db:"-" json:"availabilityRate,omitempty"`
}

// ResourceBooking is an existing session of another class holding a resource.
type ResourceBooking struct {
	SessionID      string          `db:"session_id"`
	ClassID        string          `db:"class_id"`
	ClassName      string          `db:"class_name"`
	ApprovalStatus *ApprovalStatus `db:"approval_status"`
	ResourceID     string          `db:"resource_id"`
	TimeSlotID     string          `db:"time_slot_id"`
	StartTime      string          `db:"start_time"`
	EndTime        string          `db:"end_time"`
	Date           time.Time       `db:"session_date"`
}

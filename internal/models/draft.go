package models

import "time"

// ClassStatus is the scheduling lifecycle status of a class.
type ClassStatus string

const (
	ClassStatusDraft     ClassStatus = "DRAFT"
	ClassStatusScheduled ClassStatus = "SCHEDULED"
	ClassStatusOngoing   ClassStatus = "ONGOING"
	ClassStatusCompleted ClassStatus = "COMPLETED"
	ClassStatusCancelled ClassStatus = "CANCELLED"
)

// ApprovalStatus tracks review of a submitted class. A nil pointer means never submitted.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Modality describes how a class is delivered.
type Modality string

const (
	ModalityOffline Modality = "OFFLINE"
	ModalityOnline  Modality = "ONLINE"
	ModalityHybrid  Modality = "HYBRID"
)

// ClassDraft is a class record before or during scheduling.
type ClassDraft struct {
	ID              string          `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	Name            string          `db:"name" json:"name"`
	BranchID        string          `db:"branch_id" json:"branchId"`
	CourseID        string          `db:"course_id" json:"courseId"`
	Modality        Modality        `db:"modality" json:"modality"`
	StartDate       time.Time       `db:"start_date" json:"startDate"`
	PlannedEndDate  time.Time       `db:"planned_end_date" json:"plannedEndDate"`
	Weekdays        WeekdaySet      `db:"weekdays" json:"weekdays"`
	MaxCapacity     int             `db:"max_capacity" json:"maxCapacity"`
	Status          ClassStatus     `db:"status" json:"status"`
	ApprovalStatus  *ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	RejectionReason *string         `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedBy       string          `db:"created_by" json:"createdBy"`
	SubmittedAt     *time.Time      `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Approval returns the approval status or an empty value when unset.
func (d *ClassDraft) Approval() ApprovalStatus {
	if d == nil || d.ApprovalStatus == nil {
		return ""
	}
	return *d.ApprovalStatus
}

// InRange reports whether day falls within the draft's active date range (inclusive).
func (d *ClassDraft) InRange(day time.Time) bool {
	date := truncateDate(day)
	return !date.Before(truncateDate(d.StartDate)) && !date.After(truncateDate(d.PlannedEndDate))
}

// Course is the read-only curriculum record a class is drafted from.
type Course struct {
	ID              string  `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	HoursPerSession float64 `db:"hours_per_session" json:"hoursPerSession"`
	TotalSessions   int     `db:"total_sessions" json:"totalSessions"`
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

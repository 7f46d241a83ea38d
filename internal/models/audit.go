package models

import "time"

// Audit actions written by the scheduling pipeline.
const (
	AuditActionDraftCreate      = "CLASS_DRAFT_CREATE"
	AuditActionDraftUpdate      = "CLASS_DRAFT_UPDATE"
	AuditActionDraftDelete      = "CLASS_DRAFT_DELETE"
	AuditActionTimeSlotPattern  = "TIME_SLOT_PATTERN_APPLY"
	AuditActionResourcePattern  = "RESOURCE_PATTERN_APPLY"
	AuditActionSessionResource  = "SESSION_RESOURCE_ASSIGN"
	AuditActionTeacherAssign    = "TEACHER_ASSIGN"
	AuditActionSubstituteAssign = "TEACHER_SUBSTITUTE_ASSIGN"
	AuditActionSubmit           = "CLASS_SUBMIT"
	AuditActionReview           = "CLASS_REVIEW"
	AuditActionExport           = "CLASS_EXPORT"
	AuditActionExportDownload   = "CLASS_EXPORT_DOWNLOAD"
)

// AuditResourceClass is the resource name recorded for class scoped entries.
const AuditResourceClass = "class"

// AuditResourceExport is the resource name recorded for export downloads.
const AuditResourceExport = "schedule_export"

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

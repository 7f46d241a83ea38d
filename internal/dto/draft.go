package dto

import (
	"time"

	"github.com/noah-isme/acadops-api/internal/models"
)

// DateLayout is the calendar date format accepted in payloads.
const DateLayout = "2006-01-02"

// DraftBasicInfo captures the editable basic info of a class draft.
type DraftBasicInfo struct {
	Code           string           `json:"code" validate:"required,max=32"`
	Name           string           `json:"name" validate:"required,max=160"`
	BranchID       string           `json:"branchId" validate:"required"`
	CourseID       string           `json:"courseId" validate:"required"`
	Modality       models.Modality  `json:"modality" validate:"required,oneof=OFFLINE ONLINE HYBRID"`
	StartDate      string           `json:"startDate" validate:"required,datetime=2006-01-02"`
	PlannedEndDate string           `json:"plannedEndDate" validate:"omitempty,datetime=2006-01-02"`
	Weekdays       []models.Weekday `json:"weekdays" validate:"required,min=1,max=7,dive,min=1,max=7"`
	MaxCapacity    int              `json:"maxCapacity" validate:"required,min=1,max=500"`
}

// CreateDraftRequest creates a class draft and generates its sessions.
type CreateDraftRequest struct {
	DraftBasicInfo
}

// UpdateDraftRequest replaces the basic info of an editable draft.
type UpdateDraftRequest struct {
	DraftBasicInfo
}

// DraftResponse is the draft plus its derived editability.
type DraftResponse struct {
	models.ClassDraft
	Editable   bool   `json:"editable"`
	LockReason string `json:"lockReason,omitempty"`
	Sessions   int    `json:"sessionCount"`
}

// ParsedDates holds the validated calendar dates of a basic info payload.
type ParsedDates struct {
	Start time.Time
	End   *time.Time
}

// ParseDates parses start and planned end dates.
func (b DraftBasicInfo) ParseDates() (ParsedDates, error) {
	start, err := time.Parse(DateLayout, b.StartDate)
	if err != nil {
		return ParsedDates{}, err
	}
	out := ParsedDates{Start: start}
	if b.PlannedEndDate != "" {
		end, err := time.Parse(DateLayout, b.PlannedEndDate)
		if err != nil {
			return ParsedDates{}, err
		}
		out.End = &end
	}
	return out, nil
}

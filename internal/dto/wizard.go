package dto

import "github.com/noah-isme/acadops-api/internal/models"

// WizardNavigateRequest moves the wizard to another step.
type WizardNavigateRequest struct {
	Token   string            `json:"token"`
	DraftID string            `json:"draftId"`
	Step    models.WizardStep `json:"step" validate:"omitempty,min=1,max=6"`
}

// WizardLeaveRequest records the explicit keep/delete choice.
type WizardLeaveRequest struct {
	Token  string             `json:"token"`
	Choice models.LeaveChoice `json:"choice" validate:"required,oneof=KEEP DELETE"`
}

// WizardLeaveResponse reports whether the draft was deleted.
type WizardLeaveResponse struct {
	DraftID string `json:"draftId,omitempty"`
	Deleted bool   `json:"deleted"`
}

// WizardOverview bundles the read-only data a wizard step renders from.
type WizardOverview struct {
	Progress   models.WizardProgress      `json:"progress"`
	Draft      *DraftResponse             `json:"draft,omitempty"`
	Sessions   *models.SessionPlan        `json:"sessions,omitempty"`
	TimeSlots  *PatternCoverage           `json:"timeSlots,omitempty"`
	Resources  *PatternCoverage           `json:"resources,omitempty"`
	Resolution *models.ResolutionSnapshot `json:"resolution,omitempty"`
	Readiness  *models.Readiness          `json:"readiness,omitempty"`
}

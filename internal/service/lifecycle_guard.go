package service

import (
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

const (
	lockReasonPendingReview = "class is pending review"
	lockReasonApproved      = "class is already approved"
	lockReasonGeneric       = "class is not editable in its current state"
)

// Editability is the lifecycle guard verdict for a draft.
type Editability struct {
	Editable bool   `json:"editable"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluateLifecycle derives editability from the (status, approvalStatus) pair.
func EvaluateLifecycle(status models.ClassStatus, approval *models.ApprovalStatus) Editability {
	if approval != nil && *approval == models.ApprovalApproved {
		return Editability{Reason: lockReasonApproved}
	}
	if status != models.ClassStatusDraft {
		return Editability{Reason: lockReasonGeneric}
	}
	switch {
	case approval == nil, *approval == models.ApprovalRejected:
		return Editability{Editable: true}
	case *approval == models.ApprovalPending:
		return Editability{Reason: lockReasonPendingReview}
	default:
		return Editability{Reason: lockReasonGeneric}
	}
}

// EnsureEditable returns NOT_EDITABLE when the draft is locked.
func EnsureEditable(draft *models.ClassDraft) error {
	verdict := EvaluateLifecycle(draft.Status, draft.ApprovalStatus)
	if !verdict.Editable {
		return appErrors.Clone(appErrors.ErrNotEditable, verdict.Reason)
	}
	return nil
}

// guardMutation consults the lifecycle guard first, then ownership.
func guardMutation(draft *models.ClassDraft, actor models.Actor) error {
	if err := EnsureEditable(draft); err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin || actor.UserID == draft.CreatedBy {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the creator of this class may change it")
}

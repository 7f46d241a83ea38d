package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

func approvalPtr(a models.ApprovalStatus) *models.ApprovalStatus {
	return &a
}

func TestEvaluateLifecycle(t *testing.T) {
	cases := []struct {
		name     string
		status   models.ClassStatus
		approval *models.ApprovalStatus
		editable bool
		reason   string
	}{
		{"fresh draft", models.ClassStatusDraft, nil, true, ""},
		{"rejected draft", models.ClassStatusDraft, approvalPtr(models.ApprovalRejected), true, ""},
		{"pending draft", models.ClassStatusDraft, approvalPtr(models.ApprovalPending), false, lockReasonPendingReview},
		{"submitted", models.ClassStatusScheduled, approvalPtr(models.ApprovalPending), false, lockReasonGeneric},
		{"approved", models.ClassStatusScheduled, approvalPtr(models.ApprovalApproved), false, lockReasonApproved},
		{"approved draft", models.ClassStatusDraft, approvalPtr(models.ApprovalApproved), false, lockReasonApproved},
		{"ongoing", models.ClassStatusOngoing, nil, false, lockReasonGeneric},
		{"cancelled", models.ClassStatusCancelled, nil, false, lockReasonGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateLifecycle(tc.status, tc.approval)
			assert.Equal(t, tc.editable, got.Editable)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestEveryMutationHonoursTheLifecycleGuard(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	ctx := context.Background()
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday, models.Wednesday)
	w.assignAll("class-a", models.DimensionTimeSlot, "slot-am")
	w.assignAll("class-a", models.DimensionResource, "R1")
	w.assignAll("class-a", models.DimensionTeacher, "T1")
	sessionID := w.sessionOn("class-a", date("2024-01-01")).ID
	w.setApproval("class-a", models.ClassStatusScheduled, approvalPtr(models.ApprovalApproved))
	before := w.sessionsOf("class-a")

	mutations := map[string]func() error{
		"update": func() error {
			_, err := svc.drafts.Update(ctx, owner, "class-a", dto.UpdateDraftRequest{DraftBasicInfo: basicInfo("2024-01-02", models.Tuesday)})
			return err
		},
		"delete": func() error {
			return svc.drafts.Delete(ctx, owner, "class-a")
		},
		"time slot pattern": func() error {
			_, err := svc.patterns.ApplyTimeSlotPattern(ctx, owner, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: models.Pattern{models.Monday: "slot-pm"}})
			return err
		},
		"resource pattern": func() error {
			_, err := svc.resolution.Start(ctx, owner, "class-a", models.Pattern{models.Monday: "R3"}, true)
			return err
		},
		"session resource": func() error {
			_, err := svc.patterns.AssignSessionResource(ctx, owner, "class-a", sessionID, "R3")
			return err
		},
		"teacher": func() error {
			_, err := svc.teachers.AssignTeacher(ctx, owner, "class-a", "T2")
			return err
		},
		"substitute": func() error {
			_, err := svc.teachers.AssignSubstitute(ctx, owner, "class-a", "T2")
			return err
		},
		"submit": func() error {
			_, err := svc.readiness.Submit(ctx, owner, "class-a")
			return err
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			err := mutate()
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrNotEditable.Code, appErr.Code)
			assert.Equal(t, lockReasonApproved, appErr.Message)
		})
	}

	assert.Equal(t, before, w.sessionsOf("class-a"))
	assert.Empty(t, w.auditActions())
}

func TestMutationsRequireTheCreator(t *testing.T) {
	w := newWorld()
	svc := newServices(w)
	w.addDraft("class-a", "Alpha", "course-en", date("2024-01-01"), models.Monday)

	_, err := svc.patterns.ApplyTimeSlotPattern(context.Background(), stranger, "class-a", dto.ApplyTimeSlotPatternRequest{Pattern: models.Pattern{models.Monday: "slot-am"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

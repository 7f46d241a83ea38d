package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/response"
)

type wizardUseCase interface {
	Overview(ctx context.Context, actor models.Actor, token string) (*dto.WizardOverview, error)
	Navigate(ctx context.Context, actor models.Actor, req dto.WizardNavigateRequest) (*models.WizardProgress, error)
	Leave(ctx context.Context, actor models.Actor, req dto.WizardLeaveRequest) (*dto.WizardLeaveResponse, error)
}

// WizardHandler exposes the class creation wizard.
type WizardHandler struct {
	wizard wizardUseCase
}

// NewWizardHandler constructs the handler.
func NewWizardHandler(wizard wizardUseCase) *WizardHandler {
	return &WizardHandler{wizard: wizard}
}

// Overview godoc
// @Summary Wizard progress and the data of the current step
// @Tags Wizard
// @Produce json
// @Param token query string false "Wizard state token"
// @Success 200 {object} response.Envelope
// @Router /wizard [get]
func (h *WizardHandler) Overview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	overview, err := h.wizard.Overview(c.Request.Context(), actor, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Advance godoc
// @Summary Move to the next wizard step
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.WizardNavigateRequest true "Current state"
// @Success 200 {object} response.Envelope
// @Router /wizard/advance [post]
func (h *WizardHandler) Advance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.WizardNavigateRequest
	if !bindJSON(c, &req, "invalid wizard payload") {
		return
	}
	req.Step = 0
	h.navigate(c, actor, req)
}

// Goto godoc
// @Summary Jump to a wizard step
// @Description Moving back is always allowed; moving forward revalidates every step in between
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.WizardNavigateRequest true "Target step"
// @Success 200 {object} response.Envelope
// @Router /wizard/goto [post]
func (h *WizardHandler) Goto(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.WizardNavigateRequest
	if !bindJSON(c, &req, "invalid wizard payload") {
		return
	}
	if !req.Step.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "step must be between 1 and 6"))
		return
	}
	h.navigate(c, actor, req)
}

// Leave godoc
// @Summary Leave the wizard, keeping or deleting the draft
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.WizardLeaveRequest true "Choice"
// @Success 200 {object} response.Envelope
// @Router /wizard/leave [post]
func (h *WizardHandler) Leave(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.WizardLeaveRequest
	if !bindJSON(c, &req, "invalid wizard payload") {
		return
	}
	res, err := h.wizard.Leave(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func (h *WizardHandler) navigate(c *gin.Context, actor models.Actor, req dto.WizardNavigateRequest) {
	progress, err := h.wizard.Navigate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

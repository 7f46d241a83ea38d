package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/pkg/response"
)

type readinessUseCase interface {
	Validate(ctx context.Context, draftID string) (*models.Readiness, error)
	Submit(ctx context.Context, actor models.Actor, draftID string) (*dto.DraftResponse, error)
	Review(ctx context.Context, actor models.Actor, draftID string, req dto.ReviewRequest) (*dto.DraftResponse, error)
}

// ReadinessHandler exposes readiness, submission and review endpoints.
type ReadinessHandler struct {
	readiness readinessUseCase
}

// NewReadinessHandler constructs the handler.
func NewReadinessHandler(readiness readinessUseCase) *ReadinessHandler {
	return &ReadinessHandler{readiness: readiness}
}

// Readiness godoc
// @Summary Readiness checks of a class
// @Tags Approval
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/readiness [get]
func (h *ReadinessHandler) Readiness(c *gin.Context) {
	res, err := h.readiness.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Submit godoc
// @Summary Submit a complete class for approval
// @Tags Approval
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/submit [post]
func (h *ReadinessHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	draft, err := h.readiness.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Review godoc
// @Summary Approve or reject a submitted class
// @Tags Approval
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/review [post]
func (h *ReadinessHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	draft, err := h.readiness.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

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

type conflictUseCase interface {
	State(ctx context.Context, draftID string) (*models.ResolutionSnapshot, error)
	LoadSuggestions(ctx context.Context, draftID string, weekday models.Weekday) (*models.ResolutionSnapshot, error)
	Resolve(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.ResolutionSnapshot, error)
	ResolveAll(ctx context.Context, actor models.Actor, draftID, resourceID string) (*models.BulkResolution, error)
	Reapply(ctx context.Context, actor models.Actor, draftID string) (*dto.ReapplyResponse, error)
}

// ConflictHandler exposes the resource conflict resolution endpoints.
type ConflictHandler struct {
	conflicts conflictUseCase
}

// NewConflictHandler constructs a conflict handler.
func NewConflictHandler(conflicts conflictUseCase) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts}
}

// State godoc
// @Summary Current resolution attempt grouped by weekday
// @Tags Conflicts
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/conflicts [get]
func (h *ConflictHandler) State(c *gin.Context) {
	snapshot, err := h.conflicts.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// LoadSuggestions godoc
// @Summary Load alternatives for one weekday group
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.LoadSuggestionsRequest true "Weekday"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/conflicts/suggestions [post]
func (h *ConflictHandler) LoadSuggestions(c *gin.Context) {
	var req dto.LoadSuggestionsRequest
	if !bindJSON(c, &req, "invalid suggestions payload") {
		return
	}
	if !req.DayOfWeek.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek required"))
		return
	}
	snapshot, err := h.conflicts.LoadSuggestions(c.Request.Context(), c.Param("id"), req.DayOfWeek)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Resolve godoc
// @Summary Resolve one conflicting session
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Param payload body dto.ResolveConflictRequest true "Alternative resource"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/conflicts/{sessionId}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ResolveConflictRequest
	if !bindJSON(c, &req, "invalid resolve payload") {
		return
	}
	snapshot, err := h.conflicts.Resolve(c.Request.Context(), actor, c.Param("id"), c.Param("sessionId"), req.ResourceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// ResolveAll godoc
// @Summary Apply one alternative to every pending conflict
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ResolveConflictRequest true "Alternative resource"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/conflicts/resolve-all [post]
func (h *ConflictHandler) ResolveAll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ResolveConflictRequest
	if !bindJSON(c, &req, "invalid resolve payload") {
		return
	}
	bulk, err := h.conflicts.ResolveAll(c.Request.Context(), actor, c.Param("id"), req.ResourceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bulk, nil)
}

// Reapply godoc
// @Summary Re-apply the attempt's pattern with override
// @Tags Conflicts
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/conflicts/reapply [post]
func (h *ConflictHandler) Reapply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.conflicts.Reapply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/pkg/response"
)

type draftUseCase interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateDraftRequest) (*dto.DraftResponse, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateDraftRequest) (*dto.DraftResponse, error)
	Get(ctx context.Context, id string) (*dto.DraftResponse, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	ListSessions(ctx context.Context, id string) (*models.SessionPlan, error)
}

type auditHistoryReader interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// ClassDraftHandler exposes class draft endpoints.
type ClassDraftHandler struct {
	drafts  draftUseCase
	history auditHistoryReader
}

// NewClassDraftHandler constructs a class draft handler.
func NewClassDraftHandler(drafts draftUseCase, history auditHistoryReader) *ClassDraftHandler {
	return &ClassDraftHandler{drafts: drafts, history: history}
}

// Create godoc
// @Summary Create class draft
// @Description Creates a draft and generates its sessions from the start date, weekdays and course length
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateDraftRequest true "Basic info"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassDraftHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateDraftRequest
	if !bindJSON(c, &req, "invalid class draft payload") {
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// Update godoc
// @Summary Update class draft basic info
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateDraftRequest true "Basic info"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassDraftHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateDraftRequest
	if !bindJSON(c, &req, "invalid class draft payload") {
		return
	}
	draft, err := h.drafts.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Get godoc
// @Summary Get class draft
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassDraftHandler) Get(c *gin.Context) {
	draft, err := h.drafts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Delete godoc
// @Summary Delete class draft
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassDraftHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sessions godoc
// @Summary List sessions grouped by week
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/sessions [get]
func (h *ClassDraftHandler) Sessions(c *gin.Context) {
	plan, err := h.drafts.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// History godoc
// @Summary Audit trail of a class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/history [get]
func (h *ClassDraftHandler) History(c *gin.Context) {
	if _, err := h.drafts.Get(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.history.ListByResource(c.Request.Context(), models.AuditResourceClass, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/middleware"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/response"
)

type patternUseCase interface {
	ListTimeSlotCandidates(ctx context.Context, draftID string) (*dto.TimeSlotCandidatesResponse, bool, error)
	CurrentPattern(ctx context.Context, draftID string, dim models.Dimension) (*dto.PatternCoverage, error)
	ApplyTimeSlotPattern(ctx context.Context, actor models.Actor, draftID string, req dto.ApplyTimeSlotPatternRequest) (*dto.ApplyTimeSlotPatternResponse, error)
	ListResourceCandidates(ctx context.Context, draftID string, q dto.ResourceCandidatesQuery) ([]models.Resource, error)
	ListResourceSuggestions(ctx context.Context, draftID, sessionID string) ([]models.ResourceOption, error)
	AssignSessionResource(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.Session, error)
}

// resourcePatternStarter applies a resource pattern and opens a resolution attempt for its conflicts.
type resourcePatternStarter interface {
	Start(ctx context.Context, actor models.Actor, draftID string, pattern models.Pattern, forceOverride bool) (*dto.ApplyResourcePatternResponse, error)
}

// PatternHandler exposes time slot and resource pattern endpoints.
type PatternHandler struct {
	patterns   patternUseCase
	resolution resourcePatternStarter
}

// NewPatternHandler constructs a pattern handler.
func NewPatternHandler(patterns patternUseCase, resolution resourcePatternStarter) *PatternHandler {
	return &PatternHandler{patterns: patterns, resolution: resolution}
}

// TimeSlotCandidates godoc
// @Summary Time slot templates matching the course session length
// @Tags Patterns
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/time-slots/candidates [get]
func (h *PatternHandler) TimeSlotCandidates(c *gin.Context) {
	res, cacheHit, err := h.patterns.ListTimeSlotCandidates(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

// ApplyTimeSlotPattern godoc
// @Summary Fan a weekday time slot pattern out to sessions
// @Tags Patterns
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ApplyTimeSlotPatternRequest true "Pattern"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/time-slots/pattern [post]
func (h *PatternHandler) ApplyTimeSlotPattern(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApplyTimeSlotPatternRequest
	if !bindJSON(c, &req, "invalid time slot pattern payload") {
		return
	}
	res, err := h.patterns.ApplyTimeSlotPattern(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CurrentPattern godoc
// @Summary Majority pattern currently assigned for a dimension
// @Tags Patterns
// @Produce json
// @Param id path string true "Class ID"
// @Param dimension path string true "time-slot, resource or teacher"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/patterns/{dimension} [get]
func (h *PatternHandler) CurrentPattern(c *gin.Context) {
	dim := parseDimension(c.Param("dimension"))
	if !dim.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dimension must be time-slot, resource or teacher"))
		return
	}
	res, err := h.patterns.CurrentPattern(c.Request.Context(), c.Param("id"), dim)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ResourceCandidates godoc
// @Summary Resources free for a weekday and time slot
// @Tags Patterns
// @Produce json
// @Param id path string true "Class ID"
// @Param weekday query string true "Weekday (MON..SUN or 1..7)"
// @Param timeSlotId query string true "Time slot template ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/resources/candidates [get]
func (h *PatternHandler) ResourceCandidates(c *gin.Context) {
	weekday, err := models.ParseWeekday(c.Query("weekday"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "weekday required"))
		return
	}
	query := dto.ResourceCandidatesQuery{Weekday: weekday, TimeSlotID: c.Query("timeSlotId")}
	res, err := h.patterns.ListResourceCandidates(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ApplyResourcePattern godoc
// @Summary Fan a weekday resource pattern out to sessions
// @Description Conflicting sessions stay unassigned and open a resolution attempt
// @Tags Patterns
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ApplyResourcePatternRequest true "Pattern"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/resources/pattern [post]
func (h *PatternHandler) ApplyResourcePattern(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApplyResourcePatternRequest
	if !bindJSON(c, &req, "invalid resource pattern payload") {
		return
	}
	if len(req.Pattern) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pattern requires at least one weekday"))
		return
	}
	res, err := h.resolution.Start(c.Request.Context(), actor, c.Param("id"), req.Pattern, req.ForceOverride)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ResourceSuggestions godoc
// @Summary Alternative resources for one session
// @Tags Patterns
// @Produce json
// @Param id path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/sessions/{sessionId}/resource-suggestions [get]
func (h *PatternHandler) ResourceSuggestions(c *gin.Context) {
	res, err := h.patterns.ListResourceSuggestions(c.Request.Context(), c.Param("id"), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// AssignSessionResource godoc
// @Summary Assign a resource to one session
// @Tags Patterns
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Param payload body dto.AssignSessionResourceRequest true "Resource"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/sessions/{sessionId}/resource [put]
func (h *PatternHandler) AssignSessionResource(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignSessionResourceRequest
	if !bindJSON(c, &req, "invalid session resource payload") {
		return
	}
	session, err := h.patterns.AssignSessionResource(c.Request.Context(), actor, c.Param("id"), c.Param("sessionId"), req.ResourceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// parseDimension accepts path forms such as time-slot as well as TIME_SLOT.
func parseDimension(raw string) models.Dimension {
	return models.Dimension(strings.ToUpper(strings.ReplaceAll(raw, "-", "_")))
}

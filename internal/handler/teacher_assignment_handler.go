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

type teacherMatchingUseCase interface {
	RankCandidates(ctx context.Context, draftID string) (*models.TeacherRanking, error)
	LoadConflictDetail(ctx context.Context, draftID, attemptID, teacherID string) (*models.TeacherAvailability, error)
	AssignTeacher(ctx context.Context, actor models.Actor, draftID, teacherID string) (*models.TeacherAssignment, error)
	AssignSubstitute(ctx context.Context, actor models.Actor, draftID, teacherID string) (*models.TeacherAssignment, error)
}

// TeacherAssignmentHandler exposes teacher matching and assignment endpoints.
type TeacherAssignmentHandler struct {
	teachers teacherMatchingUseCase
}

// NewTeacherAssignmentHandler constructs the handler.
func NewTeacherAssignmentHandler(teachers teacherMatchingUseCase) *TeacherAssignmentHandler {
	return &TeacherAssignmentHandler{teachers: teachers}
}

// Candidates godoc
// @Summary Rank branch teachers by availability across all sessions
// @Tags Teachers
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/teachers/candidates [get]
func (h *TeacherAssignmentHandler) Candidates(c *gin.Context) {
	ranking, err := h.teachers.RankCandidates(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, nil)
}

// CandidateDetail godoc
// @Summary Conflict detail of one ranked teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Class ID"
// @Param teacherId path string true "Teacher ID"
// @Param attemptId query string true "Ranking attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/teachers/candidates/{teacherId} [get]
func (h *TeacherAssignmentHandler) CandidateDetail(c *gin.Context) {
	attemptID := c.Query("attemptId")
	if attemptID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "attemptId required"))
		return
	}
	detail, err := h.teachers.LoadConflictDetail(c.Request.Context(), c.Param("id"), attemptID, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Assign godoc
// @Summary Assign a teacher to every conflict-free session
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AssignTeacherRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/teachers [post]
func (h *TeacherAssignmentHandler) Assign(c *gin.Context) {
	h.assign(c, h.teachers.AssignTeacher)
}

// Substitute godoc
// @Summary Cover sessions left without a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AssignTeacherRequest true "Substitute teacher"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/teachers/substitute [post]
func (h *TeacherAssignmentHandler) Substitute(c *gin.Context) {
	h.assign(c, h.teachers.AssignSubstitute)
}

func (h *TeacherAssignmentHandler) assign(c *gin.Context, fn func(context.Context, models.Actor, string, string) (*models.TeacherAssignment, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignTeacherRequest
	if !bindJSON(c, &req, "invalid teacher assignment payload") {
		return
	}
	assignment, err := fn(c.Request.Context(), actor, c.Param("id"), req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

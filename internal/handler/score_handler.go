package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/service"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

// ScoreHandler wires HTTP endpoints to score and credit computation.
type ScoreHandler struct {
	scores  *service.ScoreService
	credits *service.CreditService
	access  *service.AccessService
}

// NewScoreHandler creates a new handler.
func NewScoreHandler(scores *service.ScoreService, credits *service.CreditService, access *service.AccessService) *ScoreHandler {
	return &ScoreHandler{scores: scores, credits: credits, access: access}
}

// GetScore godoc
// @Summary Get semester score
// @Description Compute the aggregated conduct score for a student and semester
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Param semesterKey query string true "Semester key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/score [get]
func (h *ScoreHandler) GetScore(c *gin.Context) {
	claims := claimsFromContext(c)
	studentID := c.Param("id")

	allowed, err := h.access.CanViewStudent(c.Request.Context(), claims, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	score, err := h.scores.ComputeSemesterScore(c.Request.Context(), studentID, c.Query("semesterKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// GetCredits godoc
// @Summary Get credited activities
// @Description List the activities credited to a student for a semester
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Param semesterKey query string true "Semester key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/credits [get]
func (h *ScoreHandler) GetCredits(c *gin.Context) {
	claims := claimsFromContext(c)
	studentID := c.Param("id")

	allowed, err := h.access.CanViewStudent(c.Request.Context(), claims, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	credited, err := h.credits.CreditedActivitiesForStudent(c.Request.Context(), studentID, c.Query("semesterKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credited, nil)
}

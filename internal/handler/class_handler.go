package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/service"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

// ClassHandler wires HTTP endpoints to the class service.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler creates a new handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// Get godoc
// @Summary Get class
// @Description Get one class section by id
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// ListStudents godoc
// @Summary List class roster
// @Description List the students of a class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *ClassHandler) ListStudents(c *gin.Context) {
	students, err := h.service.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// AssignMonitor godoc
// @Summary Assign class monitor
// @Description Reassign the class monitor seat to another student
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AssignMonitorRequest true "Monitor payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/monitor [put]
func (h *ClassHandler) AssignMonitor(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.AssignMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid monitor payload"))
		return
	}

	class, err := h.service.AssignMonitor(c.Request.Context(), claims, c.Param("id"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/service"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance service.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Confirm godoc
// @Summary Confirm attendance
// @Description Record a confirmed check-in for a student at an activity
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmAttendanceRequest true "Attendance payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attendance/confirm [post]
func (h *AttendanceHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.ConfirmAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.service.Confirm(c.Request.Context(), claims, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

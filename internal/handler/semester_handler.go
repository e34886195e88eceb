package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/service"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

// SemesterHandler exposes the selectable semester list.
type SemesterHandler struct {
	service *service.SemesterService
}

// NewSemesterHandler creates a new handler.
func NewSemesterHandler(svc *service.SemesterService) *SemesterHandler {
	return &SemesterHandler{service: svc}
}

// ListOptions godoc
// @Summary List semester options
// @Description List the semesters derivable from existing activities
// @Tags Semesters
// @Produce json
// @Param active query string false "Semester key to mark active"
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) ListOptions(c *gin.Context) {
	options, err := h.service.ListOptions(c.Request.Context(), c.Query("active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

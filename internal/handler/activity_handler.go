package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	"github.com/minhng-dev/conduct-portal-api/internal/service"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

// ActivityHandler wires HTTP endpoints to the activity service.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activities
// @Description List activities visible to the current user
// @Tags Activities
// @Produce json
// @Param semesterKey query string false "Semester key"
// @Param status query string false "Activity status"
// @Param typeId query string false "Activity type"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	filter := models.ActivityFilter{
		SemesterKey: c.Query("semesterKey"),
		TypeID:      c.Query("typeId"),
		Search:      c.Query("search"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ActivityStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown activity status"))
			return
		}
		filter.Status = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	activities, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, pagination)
}

// Get godoc
// @Summary Get activity
// @Description Get one activity by id
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	activity, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Create godoc
// @Summary Create activity
// @Description Create a new conduct activity in pending status
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body dto.CreateActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	activity, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// UpdateStatus godoc
// @Summary Update activity status
// @Description Approve or reject an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.UpdateActivityStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id}/status [patch]
func (h *ActivityHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.UpdateActivityStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	activity, err := h.service.UpdateStatus(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

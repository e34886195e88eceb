package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
	"github.com/minhng-dev/conduct-portal-api/pkg/response"
)

type notificationService interface {
	Broadcast(ctx context.Context, req dto.BroadcastRequest, actor *models.JWTClaims) (*dto.BroadcastResponse, error)
	List(ctx context.Context, actor *models.JWTClaims, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, actor *models.JWTClaims, id string) error
	MarkAllRead(ctx context.Context, actor *models.JWTClaims) error
	CountUnread(ctx context.Context, actor *models.JWTClaims) (int, error)
}

// NotificationHandler wires HTTP endpoints to the notification service.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Broadcast godoc
// @Summary Broadcast notification
// @Description Expand a scope into recipients and deliver a notification to each
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.BroadcastRequest true "Broadcast payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid broadcast payload"))
		return
	}

	res, err := h.service.Broadcast(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// List godoc
// @Summary List notifications
// @Description Page through the current user's inbox
// @Tags Notifications
// @Produce json
// @Param unreadOnly query bool false "Unread only"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	filter := models.NotificationFilter{
		UnreadOnly: c.Query("unreadOnly") == "true",
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	notifications, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, pagination)
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.MarkRead(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.MarkAllRead(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CountUnread godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	claims := claimsFromContext(c)
	count, err := h.service.CountUnread(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhng-dev/conduct-portal-api/internal/dto"
	"github.com/minhng-dev/conduct-portal-api/internal/middleware"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	appErrors "github.com/minhng-dev/conduct-portal-api/pkg/errors"
)

type notificationServiceMock struct {
	broadcastResp *dto.BroadcastResponse
	broadcastErr  error
	listResp      []models.Notification
	listFilter    models.NotificationFilter
	markReadErr   error
	unread        int
}

func (m *notificationServiceMock) Broadcast(ctx context.Context, req dto.BroadcastRequest, actor *models.JWTClaims) (*dto.BroadcastResponse, error) {
	return m.broadcastResp, m.broadcastErr
}

func (m *notificationServiceMock) List(ctx context.Context, actor *models.JWTClaims, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	m.listFilter = filter
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, actor *models.JWTClaims, id string) error {
	return m.markReadErr
}

func (m *notificationServiceMock) MarkAllRead(ctx context.Context, actor *models.JWTClaims) error {
	return nil
}

func (m *notificationServiceMock) CountUnread(ctx context.Context, actor *models.JWTClaims) (int, error) {
	return m.unread, nil
}

func TestNotificationHandlerBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{broadcastResp: &dto.BroadcastResponse{Recipients: 12}}
	handler := NewNotificationHandler(mockSvc)

	payload, _ := json.Marshal(dto.BroadcastRequest{Scope: "CLASS", Title: "Hello", Body: "World"})
	c, w := newGinContext(http.MethodPost, "/notifications/broadcast", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-t1", Role: models.RoleTeacher})

	handler.Broadcast(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recipients":12`)
}

func TestNotificationHandlerBroadcastInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&notificationServiceMock{})

	c, w := newGinContext(http.MethodPost, "/notifications/broadcast", []byte("{not json"))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-t1", Role: models.RoleTeacher})

	handler.Broadcast(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerListParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{}
	handler := NewNotificationHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/notifications?unreadOnly=true&page=2&pageSize=10", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-s1", Role: models.RoleStudent})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listFilter.UnreadOnly)
	assert.Equal(t, 2, mockSvc.listFilter.Page)
	assert.Equal(t, 10, mockSvc.listFilter.PageSize)
}

func TestNotificationHandlerMarkReadNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&notificationServiceMock{
		markReadErr: appErrors.Clone(appErrors.ErrNotFound, "notification not found"),
	})

	c, w := newGinContext(http.MethodPatch, "/notifications/n-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-s1", Role: models.RoleStudent})

	handler.MarkRead(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerCountUnread(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&notificationServiceMock{unread: 4})

	c, w := newGinContext(http.MethodGet, "/notifications/unread-count", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-s1", Role: models.RoleStudent})

	handler.CountUnread(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":4`)
}

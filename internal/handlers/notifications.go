package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/realtime"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

const defaultNotificationPage = 50

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
}

// NewNotificationHandler constructs a notification handler. hub may be nil
// when the realtime stream is disabled.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		hub:     hub,
	}
}

// List returns notifications for the current user.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	limit := parseIntQuery(c, "limit", defaultNotificationPage)
	items, err := h.service.ListForRecipient(requestContext(c), services.ListNotificationsInput{
		RecipientID: userID,
		Limit:       limit,
		UnreadOnly:  parseBoolQuery(c, "unread"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, items, len(items), limit)
}

// UnreadCount reports how many notifications the current user has not read.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead flags a notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	dto, err := h.service.MarkRead(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead marks all notifications read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Stream upgrades the connection to a WebSocket carrying the caller's
// notification and submission events. Extra streams may be requested with
// repeated ?stream= parameters.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	streams := c.QueryArray("stream")
	if len(streams) == 0 {
		streams = []string{realtime.StreamNotifications}
	}
	allowed := map[string]struct{}{
		realtime.StreamNotifications: {},
		realtime.StreamSubmissions:   {},
	}

	h.hub.Serve(userID, streams, allowed, c.Writer, c.Request)
}

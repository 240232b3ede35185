package api

import (
	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/handlers"
	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, gate *permissions.Gate) {
	group := api.Group("/notifications")
	{
		group.GET("", middleware.RequirePermission(gate, permissions.NotificationView), handler.List)
		group.GET("/unread-count", middleware.RequirePermission(gate, permissions.NotificationView), handler.UnreadCount)
		group.POST("/read-all", middleware.RequirePermission(gate, permissions.NotificationUpdate), handler.MarkAllRead)
		group.POST("/:id/read", middleware.RequirePermission(gate, permissions.NotificationUpdate), handler.MarkRead)
	}
}

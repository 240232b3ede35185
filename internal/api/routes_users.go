package api

import (
	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/handlers"
	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, submissions *handlers.SubmissionHandler, gate *permissions.Gate) {
	users := api.Group("/users")
	{
		users.GET("", middleware.RequireGlobalPermission(gate, permissions.IdentityView), handler.List)
		users.GET("/stats", middleware.RequireGlobalPermission(gate, permissions.IdentityView), handler.Stats)
		users.GET("/:id", middleware.RequireGlobalPermission(gate, permissions.IdentityView), handler.Get)
		users.GET("/:id/submissions", middleware.RequirePermission(gate, permissions.SubmissionView), submissions.ListByOwner)
	}
}

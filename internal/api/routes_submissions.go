package api

import (
	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/handlers"
	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
)

func registerSubmissionRoutes(api *gin.RouterGroup, handler *handlers.SubmissionHandler, stats *handlers.StatsHandler, gate *permissions.Gate) {
	group := api.Group("/submissions")
	{
		group.POST("", middleware.RequirePermission(gate, permissions.SubmissionSubmit), handler.Create)
		group.GET("", middleware.RequireGlobalPermission(gate, permissions.SubmissionView), handler.List)
		group.GET("/mine", middleware.RequirePermission(gate, permissions.SubmissionView), handler.Mine)
		group.GET("/recent", middleware.RequirePermission(gate, permissions.SubmissionView), handler.Recent)
		// Ownership is checked once the record is loaded.
		group.GET("/:id", middleware.RequirePermission(gate, permissions.SubmissionView), handler.Get)
		group.POST("/:id/review", middleware.RequireGlobalPermission(gate, permissions.SubmissionReview), handler.Review)
	}

	api.GET("/stats", middleware.RequirePermission(gate, permissions.StatsView), stats.Get)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/database"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// Health returns a simple status payload useful for readiness checks. When a
// database is supplied it must answer a ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := database.Ping(db); err != nil {
				response.Error(c, errors.New("UNAVAILABLE", "database unavailable", http.StatusServiceUnavailable).WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

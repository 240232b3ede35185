package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// RequirePermission lets the request through when the caller holds
// permissionID for their own records (an all-scoped grant also qualifies).
func RequirePermission(gate *permissions.Gate, permissionID string) gin.HandlerFunc {
	return requireScope(gate, permissionID, false)
}

// RequireGlobalPermission lets the request through only when the caller holds
// permissionID over every record.
func RequireGlobalPermission(gate *permissions.Gate, permissionID string) gin.HandlerFunc {
	return requireScope(gate, permissionID, true)
}

func requireScope(gate *permissions.Gate, permissionID string, global bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := SubjectFromContext(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		owner := subject.ID
		if global {
			owner = ""
		}
		if err := gate.Authorize(subject, permissionID, owner); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

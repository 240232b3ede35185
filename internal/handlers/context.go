package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireSubject returns the authenticated caller or writes a 401.
func requireSubject(c *gin.Context) (permissions.Subject, bool) {
	subject, ok := middleware.SubjectFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return permissions.Subject{}, false
	}
	return subject, true
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

const (
	CtxUserKey      = "authUser"
	CtxUserIDKey    = "userID"
	CtxRoleKey      = "userRole"
	CtxSessionIDKey = "sessionID"
)

// Identifier resolves an access token to the identity that holds it.
type Identifier interface {
	Identify(ctx context.Context, accessToken string) (*services.Principal, error)
}

// AuthOption customises Auth.
type AuthOption func(*authOptions)

type authOptions struct {
	queryParam string
}

// WithQueryToken also accepts the access token from the named query
// parameter. Browsers cannot set headers on WebSocket upgrades.
func WithQueryToken(param string) AuthOption {
	return func(o *authOptions) {
		o.queryParam = param
	}
}

// Auth enforces bearer token authentication against live sessions.
func Auth(identity Identifier, opts ...AuthOption) gin.HandlerFunc {
	var cfg authOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && cfg.queryParam != "" {
			token = strings.TrimSpace(c.Query(cfg.queryParam))
		}
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		principal, err := identity.Identify(c.Request.Context(), token)
		if err != nil {
			// Normalise all validation failures to 401
			if errors.FromError(err).StatusCode == errors.ErrUnauthorized.StatusCode {
				c.Header("WWW-Authenticate", "Bearer")
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, principal.User)
		c.Set(CtxUserIDKey, principal.User.ID)
		c.Set(CtxRoleKey, principal.User.Role)
		c.Set(CtxSessionIDKey, principal.SessionID)

		c.Next()
	}
}

// CurrentUser returns the identity stored by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SubjectFromContext builds the authorization subject for the caller.
func SubjectFromContext(c *gin.Context) (permissions.Subject, bool) {
	userID := c.GetString(CtxUserIDKey)
	if userID == "" {
		return permissions.Subject{}, false
	}
	role, _ := c.Get(CtxRoleKey)
	r, _ := role.(models.Role)
	return permissions.Subject{ID: userID, Role: r}, true
}

func bearerToken(header string) string {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

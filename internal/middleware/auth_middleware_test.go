package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
)

type stubIdentifier struct {
	principals map[string]*services.Principal
	err        error
}

func (s stubIdentifier) Identify(_ context.Context, token string) (*services.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	principal, ok := s.principals[token]
	if !ok {
		return nil, errors.ErrUnauthorized
	}
	return principal, nil
}

func newStubIdentifier() stubIdentifier {
	return stubIdentifier{principals: map[string]*services.Principal{
		"farmer-token": {
			User:      &models.User{BaseModel: models.BaseModel{ID: "farmer-1"}, Role: models.RoleFarmer},
			SessionID: "session-farmer",
		},
		"officer-token": {
			User:      &models.User{BaseModel: models.BaseModel{ID: "officer-1"}, Role: models.RoleOfficer},
			SessionID: "session-officer",
		},
		"admin-token": {
			User:      &models.User{BaseModel: models.BaseModel{ID: "admin-1"}, Role: models.RoleAdmin},
			SessionID: "session-admin",
		},
	}}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/secure", Auth(newStubIdentifier()), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString(CtxUserIDKey),
			"session_id": c.GetString(CtxSessionIDKey),
			"role":       string(user.Role),
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Unknown token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer stolen")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Query tokens are ignored unless enabled
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure?token=farmer-token", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "bearer farmer-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "farmer-1", payload["user_id"])
	require.Equal(t, "session-farmer", payload["session_id"])
	require.Equal(t, "farmer", payload["role"])
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/stream", Auth(newStubIdentifier(), WithQueryToken("token")), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream?token=officer-token", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "officer-1", w.Body.String())
}

func TestAuthMiddlewarePropagatesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/secure", Auth(stubIdentifier{err: errors.ErrInternalServer}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer anything")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, w.Header().Get("WWW-Authenticate"))
}

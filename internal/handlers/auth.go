package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// AuthHandler manages authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	identity *services.IdentityService
	gate     *permissions.Gate
}

func NewAuthHandler(identity *services.IdentityService, gate *permissions.Gate) *AuthHandler {
	return &AuthHandler{identity: identity, gate: gate}
}

type authPayload struct {
	User        *models.User    `json:"user"`
	Tokens      iauth.TokenPair `json:"tokens"`
	Permissions []string        `json:"permissions"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.identity.Register(requestContext(c), req, sessionMetadata(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, h.payload(result))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.identity.Authenticate(requestContext(c), req, sessionMetadata(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.payload(result))
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.identity.Refresh(requestContext(c), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.payload(result))
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := c.GetString(middleware.CtxSessionIDKey)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.identity.Logout(requestContext(c), sid); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": h.gate.Permissions(user.Role),
	})
}

func (h *AuthHandler) payload(result *services.AuthResult) authPayload {
	return authPayload{
		User:        result.User,
		Tokens:      result.Tokens,
		Permissions: h.gate.Permissions(result.User.Role),
	}
}

func sessionMetadata(c *gin.Context) iauth.SessionMetadata {
	return iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

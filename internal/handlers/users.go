package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// UserHandler exposes the identity directory.
type UserHandler struct {
	identity *services.IdentityService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(identity *services.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	role := models.Role(strings.ToLower(strings.TrimSpace(c.Query("role"))))
	if role != "" && !role.Valid() {
		response.Error(c, errors.NewBadRequest("role must be one of farmer, officer, admin"))
		return
	}

	users, err := h.identity.List(requestContext(c), services.ListUsersInput{Role: role})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, users, len(users), 0)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.identity.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// GET /api/users/stats
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.identity.Stats(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

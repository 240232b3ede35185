package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	submissions *services.SubmissionService
	gate        *permissions.Gate
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(submissions *services.SubmissionService, gate *permissions.Gate) *StatsHandler {
	return &StatsHandler{submissions: submissions, gate: gate}
}

// Get returns submission counts. Callers with an own-scoped grant see their
// own submissions; everyone else sees the whole registry.
//
// GET /api/stats
func (h *StatsHandler) Get(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	scope, ok := h.gate.Scope(subject, permissions.StatsView)
	if !ok {
		response.Error(c, permissions.ErrUnauthorized)
		return
	}

	ownerID := subject.ID
	if scope == permissions.ScopeAll {
		ownerID = ""
	}

	stats, err := h.submissions.Stats(requestContext(c), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"scope": scope,
		"stats": stats,
	})
}

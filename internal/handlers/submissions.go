package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/internal/permissions"
	"github.com/saiakshat556/farm-data-bridge/internal/services"
	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// SubmissionHandler exposes the submission registry.
type SubmissionHandler struct {
	submissions *services.SubmissionService
	gate        *permissions.Gate
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(submissions *services.SubmissionService, gate *permissions.Gate) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, gate: gate}
}

// POST /api/submissions
func (h *SubmissionHandler) Create(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	var req services.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	submission, err := h.submissions.Submit(requestContext(c), subject.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, submission)
}

// GET /api/submissions
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := services.SubmissionFilter{
		Status: models.SubmissionStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	switch filter.Status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		response.Error(c, errors.NewBadRequest("status must be one of pending, approved, rejected"))
		return
	}

	items, err := h.submissions.ListAll(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, items, len(items), 0)
}

// GET /api/submissions/mine
func (h *SubmissionHandler) Mine(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}
	h.listByOwner(c, subject.ID)
}

// GET /api/submissions/recent
func (h *SubmissionHandler) Recent(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 0)
	items, err := h.submissions.Recent(requestContext(c), subject.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, items, len(items), limit)
}

// GET /api/users/:id/submissions
func (h *SubmissionHandler) ListByOwner(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	ownerID := strings.TrimSpace(c.Param("id"))
	if err := h.gate.Authorize(subject, permissions.SubmissionView, ownerID); err != nil {
		response.Error(c, err)
		return
	}
	h.listByOwner(c, ownerID)
}

// GET /api/submissions/:id
func (h *SubmissionHandler) Get(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	submission, err := h.submissions.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.gate.Authorize(subject, permissions.SubmissionView, submission.OwnerID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, submission)
}

// POST /api/submissions/:id/review
func (h *SubmissionHandler) Review(c *gin.Context) {
	subject, ok := requireSubject(c)
	if !ok {
		return
	}

	var req services.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	submission, err := h.submissions.Review(requestContext(c), subject.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, submission)
}

func (h *SubmissionHandler) listByOwner(c *gin.Context, ownerID string) {
	items, err := h.submissions.ListByOwner(requestContext(c), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items), 0)
}

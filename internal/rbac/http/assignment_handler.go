package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
	"github.com/allisson/accessgate/internal/rbac/domain"
	"github.com/allisson/accessgate/internal/rbac/http/dto"
	rbacUseCase "github.com/allisson/accessgate/internal/rbac/usecase"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

var assignmentStatuses = []domain.AssignmentStatus{
	domain.AssignmentActive,
	domain.AssignmentSuspended,
	domain.AssignmentExpired,
	domain.AssignmentRevoked,
}

// AssignmentHandler handles HTTP requests for the role assignment lifecycle.
type AssignmentHandler struct {
	assignmentUseCase rbacUseCase.AssignmentUseCase
	logger            *slog.Logger
}

// NewAssignmentHandler creates a new assignment handler with required dependencies.
func NewAssignmentHandler(assignmentUseCase rbacUseCase.AssignmentUseCase, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentUseCase: assignmentUseCase,
		logger:            logger,
	}
}

// AssignHandler assigns a role to a principal.
// POST /v1/assignments
func (h *AssignmentHandler) AssignHandler(c *gin.Context) {
	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	assignment, err := h.assignmentUseCase.Assign(c.Request.Context(), &domain.AssignRoleInput{
		UserID:    uuid.MustParse(req.UserID),
		RoleID:    uuid.MustParse(req.RoleID),
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAssignmentToResponse(assignment))
}

// GetHandler retrieves an assignment.
// GET /v1/assignments/:id
func (h *AssignmentHandler) GetHandler(c *gin.Context) {
	assignmentID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	assignment, err := h.assignmentUseCase.Get(c.Request.Context(), assignmentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssignmentToResponse(assignment))
}

// ListHandler lists assignments, optionally filtered by principal and status.
// GET /v1/assignments?user_id=...&status=ACTIVE&offset=0&limit=50
func (h *AssignmentHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	userID, err := parseOptionalUUIDQuery(c, "user_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	status := domain.AssignmentStatus(c.Query("status"))
	if status != "" && !slices.Contains(assignmentStatuses, status) {
		httputil.HandleValidationErrorGin(c, apperrors.Wrap(
			apperrors.ErrInvalidInput, "status must be one of ACTIVE, SUSPENDED, EXPIRED, REVOKED",
		), h.logger)
		return
	}

	assignments, err := h.assignmentUseCase.List(c.Request.Context(), domain.AssignmentFilter{
		UserID: userID,
		Status: status,
	}, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssignmentsToListResponse(assignments))
}

// RevokeHandler revokes an assignment.
// POST /v1/assignments/:id/revoke
func (h *AssignmentHandler) RevokeHandler(c *gin.Context) {
	assignmentID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	assignment, err := h.assignmentUseCase.Revoke(c.Request.Context(), assignmentID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssignmentToResponse(assignment))
}

// ReviewHandler records the outcome of a role review.
// POST /v1/assignments/:id/review
func (h *AssignmentHandler) ReviewHandler(c *gin.Context) {
	assignmentID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	assignment, err := h.assignmentUseCase.CompleteReview(
		c.Request.Context(),
		assignmentID,
		domain.ReviewOutcome(req.Outcome),
		req.Reason,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssignmentToResponse(assignment))
}

// DueForReviewHandler lists assignments whose review falls within the lead window.
// GET /v1/reviews/due
func (h *AssignmentHandler) DueForReviewHandler(c *gin.Context) {
	assignments, err := h.assignmentUseCase.ListDueForReview(c.Request.Context(), time.Now().UTC())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssignmentsToListResponse(assignments))
}

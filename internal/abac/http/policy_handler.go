// Package http provides HTTP handlers for attribute policy administration.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/abac/http/dto"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

var errSubjectRequired = apperrors.Wrap(apperrors.ErrInvalidInput, "user_id is required")

// PolicyHandler handles HTTP requests for access policies.
type PolicyHandler struct {
	policyUseCase abacUseCase.PolicyUseCase
	logger        *slog.Logger
}

// NewPolicyHandler creates a new policy handler with required dependencies.
func NewPolicyHandler(policyUseCase abacUseCase.PolicyUseCase, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{
		policyUseCase: policyUseCase,
		logger:        logger,
	}
}

func (h *PolicyHandler) bindPolicy(c *gin.Context) (*dto.PolicyRequest, bool) {
	var req dto.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	return &req, true
}

func (h *PolicyHandler) bindEvaluate(c *gin.Context, requireAction bool) (abacUseCase.Subject, *dto.EvaluateRequest, bool) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return abacUseCase.Subject{}, nil, false
	}

	if err := req.Validate(requireAction); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return abacUseCase.Subject{}, nil, false
	}

	subject := req.Subject(auditDomain.ActorIDFromContext(c.Request.Context()))
	if subject.UserID == uuid.Nil {
		httputil.HandleErrorGin(c, errSubjectRequired, h.logger)
		return abacUseCase.Subject{}, nil, false
	}

	return subject, &req, true
}

// CreateHandler creates a policy.
// POST /v1/policies
func (h *PolicyHandler) CreateHandler(c *gin.Context) {
	req, ok := h.bindPolicy(c)
	if !ok {
		return
	}

	policy, err := h.policyUseCase.CreatePolicy(c.Request.Context(), req.Input())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPolicyToResponse(policy))
}

// UpdateHandler replaces a policy.
// PUT /v1/policies/:id
func (h *PolicyHandler) UpdateHandler(c *gin.Context) {
	policyID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	req, ok := h.bindPolicy(c)
	if !ok {
		return
	}

	policy, err := h.policyUseCase.UpdatePolicy(c.Request.Context(), policyID, req.Input())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// DeleteHandler removes a policy.
// DELETE /v1/policies/:id
func (h *PolicyHandler) DeleteHandler(c *gin.Context) {
	policyID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.policyUseCase.DeletePolicy(c.Request.Context(), policyID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHandler retrieves a policy.
// GET /v1/policies/:id
func (h *PolicyHandler) GetHandler(c *gin.Context) {
	policyID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	policy, err := h.policyUseCase.GetPolicy(c.Request.Context(), policyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// ListHandler lists policies by descending priority.
// GET /v1/policies?policy_type=ABAC&offset=0&limit=50
func (h *PolicyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	policyType := domain.PolicyType(strings.ToUpper(c.Query("policy_type")))
	if policyType != "" && !policyType.IsValid() {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid policy_type"), h.logger)
		return
	}

	policies, err := h.policyUseCase.ListPolicies(c.Request.Context(), policyType, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPoliciesToListResponse(policies))
}

// EvaluateHandler evaluates one policy for a subject.
// POST /v1/policies/:id/evaluate
func (h *PolicyHandler) EvaluateHandler(c *gin.Context) {
	policyID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	subject, _, ok := h.bindEvaluate(c, false)
	if !ok {
		return
	}

	decision, err := h.policyUseCase.EvaluatePolicy(c.Request.Context(), policyID, subject)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
}

// EvaluateBoundHandler combines every policy bound to a (resource type, action) pair.
// POST /v1/policies/evaluate
func (h *PolicyHandler) EvaluateBoundHandler(c *gin.Context) {
	subject, req, ok := h.bindEvaluate(c, true)
	if !ok {
		return
	}

	decision, err := h.policyUseCase.EvaluateBound(c.Request.Context(), req.Action, subject)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
}

// Package http provides HTTP handlers for access rule administration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	"github.com/allisson/accessgate/internal/httputil"
	"github.com/allisson/accessgate/internal/rubac/http/dto"
	rubacUseCase "github.com/allisson/accessgate/internal/rubac/usecase"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// RuleHandler handles HTTP requests for access rules.
type RuleHandler struct {
	ruleUseCase rubacUseCase.RuleUseCase
	logger      *slog.Logger
}

// NewRuleHandler creates a new rule handler with required dependencies.
func NewRuleHandler(ruleUseCase rubacUseCase.RuleUseCase, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{
		ruleUseCase: ruleUseCase,
		logger:      logger,
	}
}

func (h *RuleHandler) bindRule(c *gin.Context) (*dto.RuleRequest, bool) {
	var req dto.RuleRequest
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

// CreateHandler creates a rule.
// POST /v1/rules
func (h *RuleHandler) CreateHandler(c *gin.Context) {
	req, ok := h.bindRule(c)
	if !ok {
		return
	}

	rule, err := h.ruleUseCase.CreateRule(c.Request.Context(), req.Input())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRuleToResponse(rule))
}

// UpdateHandler replaces a rule.
// PUT /v1/rules/:id
func (h *RuleHandler) UpdateHandler(c *gin.Context) {
	ruleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	req, ok := h.bindRule(c)
	if !ok {
		return
	}

	rule, err := h.ruleUseCase.UpdateRule(c.Request.Context(), ruleID, req.Input())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRuleToResponse(rule))
}

// DeleteHandler removes a rule.
// DELETE /v1/rules/:id
func (h *RuleHandler) DeleteHandler(c *gin.Context) {
	ruleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.ruleUseCase.DeleteRule(c.Request.Context(), ruleID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHandler retrieves a rule.
// GET /v1/rules/:id
func (h *RuleHandler) GetHandler(c *gin.Context) {
	ruleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	rule, err := h.ruleUseCase.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRuleToResponse(rule))
}

// ListHandler lists rules by descending priority.
// GET /v1/rules?offset=0&limit=50
func (h *RuleHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	rules, err := h.ruleUseCase.ListRules(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRulesToListResponse(rules))
}

// EvaluateHandler evaluates one rule against the supplied context.
// POST /v1/rules/:id/evaluate
func (h *RuleHandler) EvaluateHandler(c *gin.Context) {
	ruleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	decision, err := h.ruleUseCase.EvaluateRule(ctx, ruleID,
		req.Context(auditDomain.ActorIDFromContext(ctx), c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
}

// CheckHandler evaluates every rule bound to a (resource type, action) pair.
// POST /v1/rules/check
func (h *RuleHandler) CheckHandler(c *gin.Context) {
	var req dto.CheckRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	decision, err := h.ruleUseCase.CheckBoundRules(ctx, req.ResourceType, req.Action,
		req.Context.Context(auditDomain.ActorIDFromContext(ctx), c.ClientIP()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
}

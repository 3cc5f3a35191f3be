// Package http exposes the decision orchestrator over HTTP and protects the
// administrative routes with it.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/decision/domain"
	"github.com/allisson/accessgate/internal/decision/http/dto"
	decisionUseCase "github.com/allisson/accessgate/internal/decision/usecase"
	"github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
	userHTTP "github.com/allisson/accessgate/internal/user/http"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// PermissionDelegate lets a caller ask for decisions about principals other than itself.
const PermissionDelegate = "decision:delegate"

// DecisionHandler handles access decision requests.
type DecisionHandler struct {
	decisionUseCase decisionUseCase.DecisionUseCase
	logger          *slog.Logger
}

// NewDecisionHandler creates a new decision handler with required dependencies.
func NewDecisionHandler(decisionUseCase decisionUseCase.DecisionUseCase, logger *slog.Logger) *DecisionHandler {
	return &DecisionHandler{
		decisionUseCase: decisionUseCase,
		logger:          logger,
	}
}

// CheckHandler evaluates an access decision.
// POST /v1/decisions
// Returns 200 when allowed, 403 when any mechanism denied, 401 when the principal is
// unknown or inactive and 400 when the request is malformed. Naming a principal_id other
// than the caller requires the decision:delegate permission. Every response except a
// body that fails to parse carries the decision.
func (h *DecisionHandler) CheckHandler(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleBadRequestGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	callerID, _ := userHTTP.GetPrincipalID(ctx)
	principalID := req.Principal(callerID)

	if principalID != callerID && !h.mayDelegate(c, callerID) {
		return
	}

	result, err := h.decisionUseCase.CheckAccess(ctx, principalID, req.Options(principalID, c.ClientIP()))
	if result == nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(statusFor(result, err), dto.MapResultToResponse(result))
}

// mayDelegate reports whether the caller may evaluate decisions on behalf of another
// principal. On refusal the response is already written.
func (h *DecisionHandler) mayDelegate(c *gin.Context, callerID uuid.UUID) bool {
	ctx := c.Request.Context()
	result, err := h.decisionUseCase.CheckAccess(ctx, callerID, domain.Options{
		CheckRBAC:          true,
		RequiredPermission: PermissionDelegate,
	})
	if result == nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return false
	}
	if err != nil || !result.Allowed {
		h.logger.Debug("delegated decision refused",
			slog.String("caller_id", callerID.String()),
			slog.String("permission", PermissionDelegate),
		)
		c.JSON(statusFor(result, err), dto.MapResultToResponse(result))
		return false
	}
	return true
}

// statusFor maps a decision outcome to its HTTP status.
func statusFor(result *domain.Result, err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case err != nil:
		return http.StatusInternalServerError
	case result.Allowed:
		return http.StatusOK
	default:
		return http.StatusForbidden
	}
}

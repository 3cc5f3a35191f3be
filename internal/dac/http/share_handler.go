// Package http provides HTTP handlers for the discretionary sharing ledger.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/dac/http/dto"
	dacUseCase "github.com/allisson/accessgate/internal/dac/usecase"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// ShareHandler handles HTTP requests for share grants.
type ShareHandler struct {
	shareUseCase dacUseCase.ShareUseCase
	logger       *slog.Logger
}

// NewShareHandler creates a new share handler with required dependencies.
func NewShareHandler(shareUseCase dacUseCase.ShareUseCase, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareUseCase: shareUseCase,
		logger:       logger,
	}
}

// GrantHandler shares a resource with a principal, extending any existing grant.
// POST /v1/resources/:id/shares
func (h *ShareHandler) GrantHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	grant, err := h.shareUseCase.Grant(c.Request.Context(), &domain.GrantInput{
		ResourceID:  resourceID,
		PrincipalID: uuid.MustParse(req.PrincipalID),
		Permissions: req.PermissionSet(),
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapGrantToResponse(grant))
}

// ListByResourceHandler lists every grant of a resource.
// GET /v1/resources/:id/shares
func (h *ShareHandler) ListByResourceHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	grants, err := h.shareUseCase.ListByResource(c.Request.Context(), resourceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGrantsToListResponse(grants))
}

// CheckHandler reports whether a principal may exercise a share permission.
// GET /v1/resources/:id/shares/check?principal_id=...&permission=READ
func (h *ShareHandler) CheckHandler(c *gin.Context) {
	resourceID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	principalID, err := uuid.Parse(c.Query("principal_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, apperrors.Wrap(
			apperrors.ErrInvalidInput, "principal_id must be a valid UUID",
		), h.logger)
		return
	}

	permissionName := c.DefaultQuery("permission", "READ")
	permission, err := domain.ParsePermission(permissionName)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	decision, err := h.shareUseCase.CheckAccess(c.Request.Context(), resourceID, principalID, permission)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.AccessCheckResponse{Allowed: decision.Allowed, Reason: decision.Reason})
}

// ListByPrincipalHandler lists the active grants held by a principal.
// GET /v1/users/:id/shares
func (h *ShareHandler) ListByPrincipalHandler(c *gin.Context) {
	principalID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	grants, err := h.shareUseCase.ListByPrincipal(c.Request.Context(), principalID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGrantsToListResponse(grants))
}

// RevokeHandler deactivates a grant.
// POST /v1/shares/:id/revoke
func (h *ShareHandler) RevokeHandler(c *gin.Context) {
	grantID, err := httputil.ParseUUIDParam(c, "id")
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

	grant, err := h.shareUseCase.Revoke(c.Request.Context(), grantID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapGrantToResponse(grant))
}

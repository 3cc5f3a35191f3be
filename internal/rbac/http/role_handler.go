// Package http provides HTTP handlers for roles, permissions and role assignments.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
	"github.com/allisson/accessgate/internal/rbac/domain"
	"github.com/allisson/accessgate/internal/rbac/http/dto"
	rbacUseCase "github.com/allisson/accessgate/internal/rbac/usecase"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// RoleHandler handles HTTP requests for role and permission administration.
type RoleHandler struct {
	roleUseCase rbacUseCase.RoleUseCase
	roleGraph   rbacUseCase.RoleGraph
	logger      *slog.Logger
}

// NewRoleHandler creates a new role handler with required dependencies.
func NewRoleHandler(
	roleUseCase rbacUseCase.RoleUseCase,
	roleGraph rbacUseCase.RoleGraph,
	logger *slog.Logger,
) *RoleHandler {
	return &RoleHandler{
		roleUseCase: roleUseCase,
		roleGraph:   roleGraph,
		logger:      logger,
	}
}

func (h *RoleHandler) bindRole(c *gin.Context) (*domain.RoleInput, bool) {
	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	return &domain.RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		ParentID:    httputil.OptionalUUID(req.ParentID),
	}, true
}

func (h *RoleHandler) bindEntry(c *gin.Context) (*dto.PermissionEntryRequest, bool) {
	var req dto.PermissionEntryRequest
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

// CreateRoleHandler creates a role.
// POST /v1/roles
func (h *RoleHandler) CreateRoleHandler(c *gin.Context) {
	input, ok := h.bindRole(c)
	if !ok {
		return
	}

	role, err := h.roleUseCase.CreateRole(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRoleToResponse(role))
}

// UpdateRoleHandler replaces a role's mutable fields.
// PUT /v1/roles/:id
func (h *RoleHandler) UpdateRoleHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	input, ok := h.bindRole(c)
	if !ok {
		return
	}

	role, err := h.roleUseCase.UpdateRole(c.Request.Context(), roleID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoleToResponse(role))
}

// DeleteRoleHandler deletes a role.
// DELETE /v1/roles/:id
func (h *RoleHandler) DeleteRoleHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.roleUseCase.DeleteRole(c.Request.Context(), roleID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRoleHandler retrieves a role.
// GET /v1/roles/:id
func (h *RoleHandler) GetRoleHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	role, err := h.roleUseCase.GetRole(c.Request.Context(), roleID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoleToResponse(role))
}

// ListRolesHandler lists roles.
// GET /v1/roles?offset=0&limit=50
func (h *RoleHandler) ListRolesHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	roles, err := h.roleUseCase.ListRoles(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRolesToListResponse(roles))
}

// GetRolePermissionsHandler resolves a role's direct, inherited and merged permissions.
// GET /v1/roles/:id/permissions
func (h *RoleHandler) GetRolePermissionsHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	resolved, err := h.roleGraph.GetRolePermissions(c.Request.Context(), roleID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRolePermissionsToResponse(resolved))
}

// SetRolePermissionHandler grants or denies a capability on a role.
// PUT /v1/roles/:id/permissions
func (h *RoleHandler) SetRolePermissionHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	req, ok := h.bindEntry(c)
	if !ok {
		return
	}

	entry, err := h.roleUseCase.SetRolePermission(c.Request.Context(), roleID, req.Key(), *req.Granted, req.Conditions)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoleEntryToResponse(entry))
}

// RemoveRolePermissionHandler removes a role's entry for a capability.
// DELETE /v1/roles/:id/permissions/:resource/:action
func (h *RoleHandler) RemoveRolePermissionHandler(c *gin.Context) {
	roleID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	key := domain.PermissionKey{Resource: c.Param("resource"), Action: c.Param("action")}
	if err := h.roleUseCase.RemoveRolePermission(c.Request.Context(), roleID, key); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreatePermissionHandler registers a permission.
// POST /v1/permissions
func (h *RoleHandler) CreatePermissionHandler(c *gin.Context) {
	var req dto.PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	permission, err := h.roleUseCase.CreatePermission(c.Request.Context(), req.Key(), req.Description)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPermissionToResponse(permission))
}

// ListPermissionsHandler lists permissions.
// GET /v1/permissions?offset=0&limit=50
func (h *RoleHandler) ListPermissionsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	permissions, err := h.roleUseCase.ListPermissions(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPermissionsToListResponse(permissions))
}

// GetUserPermissionsHandler resolves a principal's effective permissions.
// GET /v1/users/:id/permissions
func (h *RoleHandler) GetUserPermissionsHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	set, err := h.roleGraph.GetUserPermissionsByID(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.UserPermissionsResponse{
		UserID:      userID.String(),
		Permissions: dto.MapPermissionSet(set),
	})
}

// SetUserPermissionHandler grants or denies a capability directly on a principal.
// PUT /v1/users/:id/permissions
func (h *RoleHandler) SetUserPermissionHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	req, ok := h.bindEntry(c)
	if !ok {
		return
	}

	entry, err := h.roleUseCase.SetUserPermission(c.Request.Context(), userID, req.Key(), *req.Granted, req.ExpiresAt)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserEntryToResponse(entry))
}

// RemoveUserPermissionHandler removes a principal's direct entry for a capability.
// DELETE /v1/users/:id/permissions/:resource/:action
func (h *RoleHandler) RemoveUserPermissionHandler(c *gin.Context) {
	userID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	key := domain.PermissionKey{Resource: c.Param("resource"), Action: c.Param("action")}
	if err := h.roleUseCase.RemoveUserPermission(c.Request.Context(), userID, key); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseOptionalUUIDQuery parses an optional UUID query parameter.
func parseOptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, name+" must be a valid UUID")
	}
	return &id, nil
}

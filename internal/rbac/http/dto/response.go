package dto

import (
	"time"

	"github.com/allisson/accessgate/internal/rbac/domain"
)

// RoleResponse represents a role in API responses.
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	ParentID    *string   `json:"parent_id,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapRoleToResponse converts a domain role to an API response.
func MapRoleToResponse(role *domain.Role) RoleResponse {
	response := RoleResponse{
		ID:          role.ID.String(),
		Name:        role.Name,
		Description: role.Description,
		Level:       role.Level,
		IsSystem:    role.IsSystem,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
	if role.ParentID != nil {
		parentID := role.ParentID.String()
		response.ParentID = &parentID
	}
	return response
}

// ListRolesResponse represents a paginated list of roles.
type ListRolesResponse struct {
	Data []RoleResponse `json:"data"`
}

// MapRolesToListResponse converts domain roles to a list API response.
func MapRolesToListResponse(roles []*domain.Role) ListRolesResponse {
	data := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		data = append(data, MapRoleToResponse(role))
	}
	return ListRolesResponse{Data: data}
}

// PermissionResponse represents a registered permission.
type PermissionResponse struct {
	ID          string    `json:"id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// MapPermissionToResponse converts a domain permission to an API response.
func MapPermissionToResponse(permission *domain.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          permission.ID.String(),
		Resource:    permission.Resource,
		Action:      permission.Action,
		Description: permission.Description,
		CreatedAt:   permission.CreatedAt,
	}
}

// ListPermissionsResponse represents a paginated list of permissions.
type ListPermissionsResponse struct {
	Data []PermissionResponse `json:"data"`
}

// MapPermissionsToListResponse converts domain permissions to a list API response.
func MapPermissionsToListResponse(permissions []*domain.Permission) ListPermissionsResponse {
	data := make([]PermissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		data = append(data, MapPermissionToResponse(permission))
	}
	return ListPermissionsResponse{Data: data}
}

// PermissionEntryResponse represents one resolved capability.
type PermissionEntryResponse struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
	Source   string `json:"source,omitempty"`
	Role     string `json:"role,omitempty"`
}

// MapPermissionSet converts a permission set to a sorted list.
func MapPermissionSet(set domain.PermissionSet) []PermissionEntryResponse {
	data := make([]PermissionEntryResponse, 0, len(set))
	for _, key := range set.Keys() {
		entry := set[key]
		data = append(data, PermissionEntryResponse{
			Resource: key.Resource,
			Action:   key.Action,
			Granted:  entry.Granted,
			Source:   entry.Source,
			Role:     entry.Role,
		})
	}
	return data
}

// RolePermissionsResponse represents the resolution of a role.
type RolePermissionsResponse struct {
	Role      RoleResponse              `json:"role"`
	Direct    []PermissionEntryResponse `json:"direct"`
	Inherited []PermissionEntryResponse `json:"inherited"`
	Merged    []PermissionEntryResponse `json:"merged"`
}

// MapRolePermissionsToResponse converts a role resolution to an API response.
func MapRolePermissionsToResponse(resolved *domain.RolePermissions) RolePermissionsResponse {
	return RolePermissionsResponse{
		Role:      MapRoleToResponse(resolved.Role),
		Direct:    MapPermissionSet(resolved.Direct),
		Inherited: MapPermissionSet(resolved.Inherited),
		Merged:    MapPermissionSet(resolved.Merged),
	}
}

// UserPermissionsResponse represents a principal's effective permissions.
type UserPermissionsResponse struct {
	UserID      string                    `json:"user_id"`
	Permissions []PermissionEntryResponse `json:"permissions"`
}

// RoleEntryResponse represents a role's grant or denial of a capability.
type RoleEntryResponse struct {
	RoleID     string         `json:"role_id"`
	Resource   string         `json:"resource"`
	Action     string         `json:"action"`
	Granted    bool           `json:"granted"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// MapRoleEntryToResponse converts a role permission entry to an API response.
func MapRoleEntryToResponse(entry *domain.RolePermission) RoleEntryResponse {
	return RoleEntryResponse{
		RoleID:     entry.RoleID.String(),
		Resource:   entry.Resource,
		Action:     entry.Action,
		Granted:    entry.Granted,
		Conditions: entry.Conditions,
	}
}

// UserEntryResponse represents a principal's direct grant or denial of a capability.
type UserEntryResponse struct {
	UserID    string     `json:"user_id"`
	Resource  string     `json:"resource"`
	Action    string     `json:"action"`
	Granted   bool       `json:"granted"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MapUserEntryToResponse converts a direct user entry to an API response.
func MapUserEntryToResponse(entry *domain.UserPermission) UserEntryResponse {
	return UserEntryResponse{
		UserID:    entry.UserID.String(),
		Resource:  entry.Resource,
		Action:    entry.Action,
		Granted:   entry.Granted,
		ExpiresAt: entry.ExpiresAt,
	}
}

// AssignmentResponse represents a role assignment in API responses.
type AssignmentResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RoleID         string     `json:"role_id"`
	RoleName       string     `json:"role_name"`
	Status         string     `json:"status"`
	StatusReason   string     `json:"status_reason,omitempty"`
	AssignedBy     *string    `json:"assigned_by,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MapAssignmentToResponse converts a domain assignment to an API response.
func MapAssignmentToResponse(assignment *domain.RoleAssignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:             assignment.ID.String(),
		UserID:         assignment.UserID.String(),
		RoleID:         assignment.RoleID.String(),
		RoleName:       assignment.RoleName,
		Status:         string(assignment.Status),
		StatusReason:   assignment.StatusReason,
		ExpiresAt:      assignment.ExpiresAt,
		NextReviewAt:   assignment.NextReviewAt,
		LastReviewedAt: assignment.LastReviewedAt,
		CreatedAt:      assignment.CreatedAt,
		UpdatedAt:      assignment.UpdatedAt,
	}
	if assignment.AssignedBy != nil {
		assignedBy := assignment.AssignedBy.String()
		response.AssignedBy = &assignedBy
	}
	return response
}

// ListAssignmentsResponse represents a list of assignments.
type ListAssignmentsResponse struct {
	Data []AssignmentResponse `json:"data"`
}

// MapAssignmentsToListResponse converts domain assignments to a list API response.
func MapAssignmentsToListResponse(assignments []*domain.RoleAssignment) ListAssignmentsResponse {
	data := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		data = append(data, MapAssignmentToResponse(assignment))
	}
	return ListAssignmentsResponse{Data: data}
}

// Package domain defines the role graph: roles arranged in a single-parent tree, the
// permissions they grant or deny, per-user overrides and time-bound role assignments.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
)

// Role is a node in the role tree. ParentID references another role by id.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	Level       int
	ParentID    *uuid.UUID
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeRoleName trims and upper-cases a role name.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Permission is a (resource, action) capability.
type Permission struct {
	ID          uuid.UUID
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
}

// Key returns the permission's merge key.
func (p *Permission) Key() PermissionKey {
	return PermissionKey{Resource: p.Resource, Action: p.Action}
}

// PermissionKey identifies a capability in a merged permission set.
type PermissionKey struct {
	Resource string
	Action   string
}

// String formats the key as "resource:action".
func (k PermissionKey) String() string {
	return fmt.Sprintf("%s:%s", k.Resource, k.Action)
}

// ParsePermissionKey parses "resource:action".
func ParsePermissionKey(s string) (PermissionKey, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || resource == "" || action == "" {
		return PermissionKey{}, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("invalid permission %q", s))
	}
	return PermissionKey{Resource: resource, Action: action}, nil
}

// RolePermission grants (Granted=true) or explicitly denies (Granted=false) a
// permission to a role.
type RolePermission struct {
	RoleID       uuid.UUID
	PermissionID uuid.UUID
	Resource     string
	Action       string
	Granted      bool
	Conditions   map[string]any
	CreatedAt    time.Time
}

// Key returns the entry's merge key.
func (rp *RolePermission) Key() PermissionKey {
	return PermissionKey{Resource: rp.Resource, Action: rp.Action}
}

// UserPermission is a direct per-user grant or denial. Expired entries are inert.
type UserPermission struct {
	UserID       uuid.UUID
	PermissionID uuid.UUID
	Resource     string
	Action       string
	Granted      bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Key returns the entry's merge key.
func (up *UserPermission) Key() PermissionKey {
	return PermissionKey{Resource: up.Resource, Action: up.Action}
}

// IsExpired reports whether the entry has passed its expiry at now.
func (up *UserPermission) IsExpired(now time.Time) bool {
	return up.ExpiresAt != nil && !up.ExpiresAt.After(now)
}

// RoleInput holds the fields accepted when creating or updating a role.
type RoleInput struct {
	Name        string
	Description string
	Level       int
	ParentID    *uuid.UUID
}

// Domain-specific errors for role graph operations.
var (
	// ErrRoleNotFound indicates the referenced role does not exist.
	ErrRoleNotFound = errors.Wrap(errors.ErrNotFound, "role not found")

	// ErrRoleAlreadyExists indicates a role with the same name already exists.
	ErrRoleAlreadyExists = errors.Wrap(errors.ErrConflict, "role already exists")

	// ErrPermissionNotFound indicates the referenced permission does not exist.
	ErrPermissionNotFound = errors.Wrap(errors.ErrNotFound, "permission not found")

	// ErrRoleCycle indicates a parent assignment that would create a cycle.
	ErrRoleCycle = errors.Wrap(errors.ErrInvalidInput, "role hierarchy cycle")

	// ErrSystemRole indicates an attempt to modify or delete a system-defined role.
	ErrSystemRole = errors.Wrap(errors.ErrForbidden, "system roles cannot be modified")

	// ErrRoleInUse indicates a role that still has children or assignments.
	ErrRoleInUse = errors.Wrap(errors.ErrConflict, "role is in use")
)

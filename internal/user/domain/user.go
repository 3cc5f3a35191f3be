// Package domain defines the principal (user) entity the access-control engines reason over.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

// User is an authenticated principal. Besides identity it carries the primary role
// reference, the legacy flat role tag kept for back-compat, the trusted-subject flag
// (declassification authority) and the MAC clearance.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	RoleID          *uuid.UUID
	PrimaryRoleName string // resolved from RoleID by the repository
	LegacyRole      string
	TrustedSubject  bool
	Clearance       macDomain.Label
	Department      string
	Attributes      map[string]any
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RoleName returns the name used for static role checks: the primary role when one
// is assigned, otherwise the legacy role tag.
func (u *User) RoleName() string {
	if u.PrimaryRoleName != "" {
		return u.PrimaryRoleName
	}
	return u.LegacyRole
}

// HoldsRole reports whether the user's effective role name matches name (case-insensitive).
func (u *User) HoldsRole(name string) bool {
	if name == "" {
		return false
	}
	return strings.EqualFold(u.RoleName(), name)
}

// SubjectAttributes flattens the principal into the attribute map used by ABAC.
// Stored attributes are overridden by the built-in fields of the same name.
func (u *User) SubjectAttributes() map[string]any {
	attrs := make(map[string]any, len(u.Attributes)+8)
	for k, v := range u.Attributes {
		attrs[k] = v
	}
	attrs["id"] = u.ID.String()
	attrs["name"] = u.Name
	attrs["email"] = u.Email
	attrs["role"] = u.RoleName()
	attrs["department"] = u.Department
	attrs["securityClearance"] = string(u.Clearance.Level)
	attrs["compartments"] = []string(u.Clearance.Compartments)
	attrs["trustedSubject"] = u.TrustedSubject
	return attrs
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrUserInactive indicates the user has been deactivated.
	ErrUserInactive = errors.Wrap(errors.ErrUnauthorized, "user is inactive")
)

// CreateUserInput holds the fields accepted when registering a principal.
type CreateUserInput struct {
	Name           string
	Email          string
	RoleID         *uuid.UUID
	LegacyRole     string
	TrustedSubject bool
	Department     string
	Attributes     map[string]any
}

// UpdateUserInput holds the mutable principal fields.
type UpdateUserInput struct {
	Name           string
	Email          string
	RoleID         *uuid.UUID
	LegacyRole     string
	TrustedSubject bool
	Department     string
	Attributes     map[string]any
	IsActive       bool
}

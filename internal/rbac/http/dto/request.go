// Package dto provides data transfer objects for role graph administration.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/accessgate/internal/rbac/domain"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// RoleRequest contains the parameters for creating or updating a role.
type RoleRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Level       int     `json:"level"`
	ParentID    *string `json:"parent_id"`
}

// Validate checks if the role request is valid.
func (r *RoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
		validation.Field(&r.Level, validation.Min(0), validation.Max(1000)),
		validation.Field(&r.ParentID, validation.NilOrNotEmpty, customValidation.UUID),
	)
}

// PermissionRequest contains the parameters for registering a permission.
type PermissionRequest struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Validate checks if the permission request is valid.
func (r *PermissionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Resource, validation.Required, customValidation.Identifier, validation.Length(1, 100)),
		validation.Field(&r.Action, validation.Required, customValidation.Identifier, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

// Key returns the requested permission key.
func (r *PermissionRequest) Key() domain.PermissionKey {
	return domain.PermissionKey{Resource: r.Resource, Action: r.Action}
}

// PermissionEntryRequest grants or denies a capability on a role or a principal.
// Conditions apply to role entries only; ExpiresAt to principal entries only.
type PermissionEntryRequest struct {
	Resource   string         `json:"resource"`
	Action     string         `json:"action"`
	Granted    *bool          `json:"granted"`
	Conditions map[string]any `json:"conditions"`
	ExpiresAt  *time.Time     `json:"expires_at"`
}

// Validate checks if the entry request is valid.
func (r *PermissionEntryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Resource, validation.Required, customValidation.Identifier, validation.Length(1, 100)),
		validation.Field(&r.Action, validation.Required, customValidation.Identifier, validation.Length(1, 100)),
		validation.Field(&r.Granted, validation.NotNil),
		validation.Field(&r.ExpiresAt, customValidation.FutureTime),
	)
}

// Key returns the requested permission key.
func (r *PermissionEntryRequest) Key() domain.PermissionKey {
	return domain.PermissionKey{Resource: r.Resource, Action: r.Action}
}

// AssignRoleRequest contains the parameters for assigning a role to a principal.
type AssignRoleRequest struct {
	UserID    string     `json:"user_id"`
	RoleID    string     `json:"role_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Validate checks if the assign request is valid.
func (r *AssignRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.UUID),
		validation.Field(&r.RoleID, validation.Required, customValidation.UUID),
		validation.Field(&r.ExpiresAt, customValidation.FutureTime),
	)
}

// RevokeRequest carries the reason for revoking an assignment.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the revoke request is valid.
func (r *RevokeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 500)),
	)
}

// ReviewRequest records the outcome of a role review. A failed review needs a reason.
type ReviewRequest struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// Validate checks if the review request is valid.
func (r *ReviewRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Outcome, validation.Required,
			validation.In(string(domain.ReviewApproved), string(domain.ReviewFailed))),
		validation.Field(&r.Reason,
			validation.When(r.Outcome == string(domain.ReviewFailed), validation.Required, customValidation.NotBlank),
			validation.Length(0, 500)),
	)
}

// Package dto provides data transfer objects for the sharing ledger.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/accessgate/internal/dac/domain"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

var sharePermissions = validation.By(func(value interface{}) error {
	names, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_share_permissions_type", "must be a list of strings")
	}
	if _, err := domain.ParsePermissions(names); err != nil {
		return validation.NewError("validation_share_permissions", "must contain only READ, WRITE, DELETE or SHARE")
	}
	return nil
})

// GrantRequest contains the parameters for sharing a resource with a principal.
type GrantRequest struct {
	PrincipalID string     `json:"principal_id"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Validate checks if the grant request is valid.
func (r *GrantRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PrincipalID, validation.Required, customValidation.UUID),
		validation.Field(&r.Permissions, validation.Required, sharePermissions),
		validation.Field(&r.ExpiresAt, customValidation.FutureTime),
	)
}

// PermissionSet folds the requested names into a bit set. Call after Validate.
func (r *GrantRequest) PermissionSet() domain.Permission {
	set, _ := domain.ParsePermissions(r.Permissions)
	return set
}

// RevokeRequest carries the reason for revoking a grant.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the revoke request is valid.
func (r *RevokeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 500)),
	)
}

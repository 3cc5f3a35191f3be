// Package dto provides data transfer objects for principal administration.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/accessgate/internal/validation"
)

// CreateUserRequest contains the parameters for registering a principal.
type CreateUserRequest struct {
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	RoleID         *string        `json:"role_id"`
	LegacyRole     string         `json:"legacy_role"`
	TrustedSubject bool           `json:"trusted_subject"`
	Department     string         `json:"department"`
	Attributes     map[string]any `json:"attributes"`
}

// Validate checks if the create user request is valid.
func (r *CreateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, customValidation.Email, validation.Length(5, 255)),
		validation.Field(&r.RoleID, validation.NilOrNotEmpty, customValidation.UUID),
		validation.Field(&r.LegacyRole, validation.Length(0, 100)),
		validation.Field(&r.Department, validation.Length(0, 255)),
	)
}

// UpdateUserRequest contains the mutable principal fields.
type UpdateUserRequest struct {
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	RoleID         *string        `json:"role_id"`
	LegacyRole     string         `json:"legacy_role"`
	TrustedSubject bool           `json:"trusted_subject"`
	Department     string         `json:"department"`
	Attributes     map[string]any `json:"attributes"`
	IsActive       bool           `json:"is_active"`
}

// Validate checks if the update user request is valid.
func (r *UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, customValidation.Email, validation.Length(5, 255)),
		validation.Field(&r.RoleID, validation.NilOrNotEmpty, customValidation.UUID),
		validation.Field(&r.LegacyRole, validation.Length(0, 100)),
		validation.Field(&r.Department, validation.Length(0, 255)),
	)
}

// Package dto provides data transfer objects for the resource registry.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/accessgate/internal/validation"
)

// RegisterResourceRequest contains the parameters for registering a resource.
type RegisterResourceRequest struct {
	Type          string   `json:"type"`
	ExternalID    string   `json:"external_id"`
	OwnerID       *string  `json:"owner_id"`
	SecurityLevel string   `json:"security_level"`
	Compartments  []string `json:"compartments"`
}

// Validate checks if the register request is valid. An empty security level means INTERNAL.
func (r *RegisterResourceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, customValidation.Identifier, validation.Length(1, 100)),
		validation.Field(&r.ExternalID, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.OwnerID, validation.NilOrNotEmpty, customValidation.UUID),
		validation.Field(&r.SecurityLevel, customValidation.SecurityLevel),
		validation.Field(&r.Compartments, validation.Each(customValidation.NotBlank)),
	)
}

// SetAttributeRequest carries the value of a declared attribute.
type SetAttributeRequest struct {
	Value any `json:"value"`
}

// Validate checks if the attribute request is valid.
func (r *SetAttributeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.NotNil),
	)
}

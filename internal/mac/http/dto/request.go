// Package dto provides data transfer objects for clearance and classification endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/accessgate/internal/validation"
)

// LabelRequest carries a level and compartment set for clearance grants and classification.
type LabelRequest struct {
	SecurityLevel string   `json:"security_level"`
	Compartments  []string `json:"compartments"`
}

// Validate checks if the label request is valid.
func (r *LabelRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SecurityLevel, validation.Required, customValidation.SecurityLevel),
		validation.Field(&r.Compartments, validation.Each(customValidation.NotBlank)),
	)
}

// ClassifyTextRequest carries free text to classify.
type ClassifyTextRequest struct {
	Text  string `json:"text"`
	Apply bool   `json:"apply"`
}

// Validate checks if the classify request is valid.
func (r *ClassifyTextRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, 1<<20)),
	)
}

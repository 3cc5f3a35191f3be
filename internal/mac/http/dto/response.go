package dto

import (
	abacService "github.com/allisson/accessgate/internal/abac/service"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	macUseCase "github.com/allisson/accessgate/internal/mac/usecase"
)

// ClassificationResponse represents a text classification.
type ClassificationResponse struct {
	Label   macDomain.Label `json:"label"`
	Matched []string        `json:"matched"`
}

// MapClassificationToResponse converts a classification to an API response.
func MapClassificationToResponse(result abacService.Classification) ClassificationResponse {
	matched := result.Matched
	if matched == nil {
		matched = []string{}
	}
	return ClassificationResponse{Label: result.Label, Matched: matched}
}

// AutoClassificationResponse represents the outcome of classifying a resource.
type AutoClassificationResponse struct {
	ClassificationResponse
	ResourceID   string          `json:"resource_id"`
	CurrentLabel macDomain.Label `json:"current_label"`
	Applied      bool            `json:"applied"`
}

// MapAutoClassificationToResponse converts an auto-classification outcome to an API response.
func MapAutoClassificationToResponse(outcome *macUseCase.AutoClassification) AutoClassificationResponse {
	return AutoClassificationResponse{
		ClassificationResponse: MapClassificationToResponse(outcome.Classification),
		ResourceID:             outcome.Resource.ID.String(),
		CurrentLabel:           outcome.Resource.Label,
		Applied:                outcome.Applied,
	}
}

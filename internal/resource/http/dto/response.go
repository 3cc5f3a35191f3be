package dto

import (
	"time"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
)

// ResourceResponse represents a resource in API responses.
type ResourceResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ExternalID string          `json:"external_id"`
	OwnerID    *string         `json:"owner_id,omitempty"`
	Label      macDomain.Label `json:"label"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MapResourceToResponse converts a domain resource to an API response.
func MapResourceToResponse(resource *domain.Resource) ResourceResponse {
	response := ResourceResponse{
		ID:         resource.ID.String(),
		Type:       resource.Type,
		ExternalID: resource.ExternalID,
		Label:      resource.Label,
		CreatedAt:  resource.CreatedAt,
		UpdatedAt:  resource.UpdatedAt,
	}
	if resource.OwnerID != nil {
		ownerID := resource.OwnerID.String()
		response.OwnerID = &ownerID
	}
	return response
}

// ListResourcesResponse represents a paginated list of resources.
type ListResourcesResponse struct {
	Data []ResourceResponse `json:"data"`
}

// MapResourcesToListResponse converts domain resources to a list API response.
func MapResourcesToListResponse(resources []*domain.Resource) ListResourcesResponse {
	data := make([]ResourceResponse, 0, len(resources))
	for _, resource := range resources {
		data = append(data, MapResourceToResponse(resource))
	}
	return ListResourcesResponse{Data: data}
}

// AttributeResponse represents a resource attribute in API responses.
type AttributeResponse struct {
	Name       string    `json:"name"`
	Value      any       `json:"value"`
	Calculated bool      `json:"calculated"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MapAttributeToResponse converts a domain attribute to an API response.
func MapAttributeToResponse(attribute *domain.Attribute) AttributeResponse {
	return AttributeResponse{
		Name:       attribute.Name,
		Value:      attribute.Value,
		Calculated: attribute.Calculated,
		Source:     attribute.Source,
		UpdatedAt:  attribute.UpdatedAt,
	}
}

// ListAttributesResponse wraps the attributes of one resource.
type ListAttributesResponse struct {
	Data []AttributeResponse `json:"data"`
}

// MapAttributesToListResponse converts domain attributes to a list API response.
func MapAttributesToListResponse(attributes []*domain.Attribute) ListAttributesResponse {
	data := make([]AttributeResponse, 0, len(attributes))
	for _, attribute := range attributes {
		data = append(data, MapAttributeToResponse(attribute))
	}
	return ListAttributesResponse{Data: data}
}

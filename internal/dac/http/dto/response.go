package dto

import (
	"time"

	"github.com/allisson/accessgate/internal/dac/domain"
)

// GrantResponse represents a share grant in API responses.
type GrantResponse struct {
	ID            string     `json:"id"`
	ResourceID    string     `json:"resource_id"`
	PrincipalID   string     `json:"principal_id"`
	Permissions   []string   `json:"permissions"`
	GrantedBy     *string    `json:"granted_by,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Active        bool       `json:"active"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MapGrantToResponse converts a domain grant to an API response.
func MapGrantToResponse(grant *domain.ShareGrant) GrantResponse {
	response := GrantResponse{
		ID:            grant.ID.String(),
		ResourceID:    grant.ResourceID.String(),
		PrincipalID:   grant.PrincipalID.String(),
		Permissions:   grant.Permissions.Names(),
		ExpiresAt:     grant.ExpiresAt,
		Active:        grant.Active,
		RevokedReason: grant.RevokedReason,
		RevokedAt:     grant.RevokedAt,
		CreatedAt:     grant.CreatedAt,
		UpdatedAt:     grant.UpdatedAt,
	}
	if grant.GrantedBy != nil {
		grantedBy := grant.GrantedBy.String()
		response.GrantedBy = &grantedBy
	}
	return response
}

// ListGrantsResponse represents a list of grants.
type ListGrantsResponse struct {
	Data []GrantResponse `json:"data"`
}

// MapGrantsToListResponse converts domain grants to a list API response.
func MapGrantsToListResponse(grants []*domain.ShareGrant) ListGrantsResponse {
	data := make([]GrantResponse, 0, len(grants))
	for _, grant := range grants {
		data = append(data, MapGrantToResponse(grant))
	}
	return ListGrantsResponse{Data: data}
}

// AccessCheckResponse reports the outcome of a sharing check.
type AccessCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

package dto

import (
	"time"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/user/domain"
)

// UserResponse represents a principal in API responses.
type UserResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	RoleID          *string         `json:"role_id,omitempty"`
	PrimaryRoleName string          `json:"primary_role_name,omitempty"`
	LegacyRole      string          `json:"legacy_role,omitempty"`
	TrustedSubject  bool            `json:"trusted_subject"`
	Clearance       macDomain.Label `json:"clearance"`
	Department      string          `json:"department,omitempty"`
	Attributes      map[string]any  `json:"attributes,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MapUserToResponse converts a domain user to an API response.
func MapUserToResponse(user *domain.User) UserResponse {
	response := UserResponse{
		ID:              user.ID.String(),
		Name:            user.Name,
		Email:           user.Email,
		PrimaryRoleName: user.PrimaryRoleName,
		LegacyRole:      user.LegacyRole,
		TrustedSubject:  user.TrustedSubject,
		Clearance:       user.Clearance,
		Department:      user.Department,
		Attributes:      user.Attributes,
		IsActive:        user.IsActive,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
	if user.RoleID != nil {
		roleID := user.RoleID.String()
		response.RoleID = &roleID
	}
	return response
}

// ListUsersResponse represents a paginated list of principals.
type ListUsersResponse struct {
	Data []UserResponse `json:"data"`
}

// MapUsersToListResponse converts a slice of domain users to a list API response.
func MapUsersToListResponse(users []*domain.User) ListUsersResponse {
	data := make([]UserResponse, 0, len(users))
	for _, user := range users {
		data = append(data, MapUserToResponse(user))
	}
	return ListUsersResponse{Data: data}
}

// Package usecase implements principal administration.
package usecase

import (
	"context"

	"github.com/google/uuid"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/user/domain"
)

// UserRepository defines persistence operations for principals.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	UpdateClearance(ctx context.Context, userID uuid.UUID, clearance macDomain.Label) error
	ClearPrimaryRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
}

// PermissionCache drops resolved permission sets. Role-bearing changes to a principal
// must invalidate it once committed.
type PermissionCache interface {
	Invalidate(ctx context.Context) error
}

// UserUseCase defines principal administration. Every mutation emits one audit record.
type UserUseCase interface {
	// Create registers a principal with PUBLIC clearance and no compartments. Clearance is
	// raised through the MAC clearance operation.
	Create(ctx context.Context, input *domain.CreateUserInput) (*domain.User, error)

	// Update replaces the mutable fields of a principal.
	Update(ctx context.Context, userID uuid.UUID, input *domain.UpdateUserInput) (*domain.User, error)

	// Get retrieves a principal by id.
	Get(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// List retrieves principals ordered by creation time.
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)

	// Deactivate marks a principal inactive. Principals are never hard-deleted.
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

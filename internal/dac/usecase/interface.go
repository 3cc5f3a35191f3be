// Package usecase implements the discretionary sharing ledger: checks, grants,
// revocations and the expiry sweep.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/dac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
)

// ShareRepository defines persistence operations for share grants.
type ShareRepository interface {
	Create(ctx context.Context, grant *domain.ShareGrant) error
	Update(ctx context.Context, grant *domain.ShareGrant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareGrant, error)
	GetByResourceAndPrincipal(ctx context.Context, resourceID, principalID uuid.UUID) (*domain.ShareGrant, error)
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.ShareGrant, error)
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*domain.ShareGrant, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.ShareGrant, error)
}

// ResourceReader loads the resource a grant refers to.
type ResourceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error)
}

// ShareUseCase defines sharing operations. Mutations emit one audit record inside the
// same transaction.
type ShareUseCase interface {
	// CheckAccess decides whether principalID may exercise permission on resourceID.
	CheckAccess(
		ctx context.Context,
		resourceID, principalID uuid.UUID,
		permission domain.Permission,
	) (domain.Decision, error)

	// Grant creates a grant or extends the existing one for the same principal. Only the
	// owner or a SHARE holder may share.
	Grant(ctx context.Context, input *domain.GrantInput) (*domain.ShareGrant, error)

	// Revoke deactivates a grant, recording reason.
	Revoke(ctx context.Context, grantID uuid.UUID, reason string) (*domain.ShareGrant, error)

	// ListByResource retrieves every grant of a resource.
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.ShareGrant, error)

	// ListByPrincipal retrieves the active grants held by a principal.
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*domain.ShareGrant, error)

	// ExpireDue deactivates grants whose expiry has passed and returns how many changed.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Package usecase implements the resource registry: registration, lookup and attributes.
package usecase

import (
	"context"

	"github.com/google/uuid"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// ResourceRepository defines persistence operations for resources and their attributes.
type ResourceRepository interface {
	Create(ctx context.Context, resource *domain.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	GetByRef(ctx context.Context, resourceType, externalID string) (*domain.Resource, error)
	List(ctx context.Context, resourceType string, offset, limit int) ([]*domain.Resource, error)
	UpdateLabel(ctx context.Context, id uuid.UUID, label macDomain.Label) error
	ListAttributes(ctx context.Context, resourceID uuid.UUID) ([]*domain.Attribute, error)
	UpsertAttribute(ctx context.Context, attribute *domain.Attribute) error
	DeleteAttribute(ctx context.Context, resourceID uuid.UUID, name string) error
}

// PrincipalReader loads the acting principal to check its clearance.
type PrincipalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// ResourceUseCase defines resource registry operations. Mutations emit one audit record.
type ResourceUseCase interface {
	// Register creates a resource. The initial label must be one the acting principal
	// could classify to; an empty level defaults to INTERNAL.
	Register(ctx context.Context, input *domain.RegisterResourceInput) (*domain.Resource, error)

	// Get retrieves a resource by internal id.
	Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// GetByRef retrieves a resource by (type, external id).
	GetByRef(ctx context.Context, resourceType, externalID string) (*domain.Resource, error)

	// List retrieves resources, optionally filtered by type.
	List(ctx context.Context, resourceType string, offset, limit int) ([]*domain.Resource, error)

	// ListAttributes retrieves every attribute of a resource.
	ListAttributes(ctx context.Context, id uuid.UUID) ([]*domain.Attribute, error)

	// SetAttribute stores a declared attribute.
	SetAttribute(ctx context.Context, id uuid.UUID, name string, value any) (*domain.Attribute, error)

	// DeleteAttribute removes an attribute.
	DeleteAttribute(ctx context.Context, id uuid.UUID, name string) error
}

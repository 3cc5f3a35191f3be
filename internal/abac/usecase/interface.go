// Package usecase implements attribute policy administration and evaluation.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/abac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// PolicyRepository defines persistence operations for access policies.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.AccessPolicy) error
	Update(ctx context.Context, policy *domain.AccessPolicy) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessPolicy, error)
	List(ctx context.Context, policyType domain.PolicyType, offset, limit int) ([]*domain.AccessPolicy, error)
	ListBound(
		ctx context.Context,
		policyType domain.PolicyType,
		resourceType, action string,
	) ([]*domain.AccessPolicy, error)
}

// SubjectReader loads the principal whose attributes form the subject scope.
type SubjectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// ResourceReader loads a resource and its stored attributes.
type ResourceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error)
	ListAttributes(ctx context.Context, resourceID uuid.UUID) ([]*resourceDomain.Attribute, error)
}

// Subject identifies the request being evaluated. ResourceID may be uuid.Nil when the
// request targets a resource type rather than a registered resource.
type Subject struct {
	UserID       uuid.UUID
	ResourceType string
	ResourceID   uuid.UUID
	Environment  domain.Environment
}

// PolicyUseCase defines access policy operations. Mutations emit one audit record.
type PolicyUseCase interface {
	CreatePolicy(ctx context.Context, input *domain.PolicyInput) (*domain.AccessPolicy, error)
	UpdatePolicy(ctx context.Context, policyID uuid.UUID, input *domain.PolicyInput) (*domain.AccessPolicy, error)
	DeletePolicy(ctx context.Context, policyID uuid.UUID) error
	GetPolicy(ctx context.Context, policyID uuid.UUID) (*domain.AccessPolicy, error)
	ListPolicies(ctx context.Context, policyType domain.PolicyType, offset, limit int) ([]*domain.AccessPolicy, error)

	// EvaluatePolicy evaluates one ABAC policy on its own. The policy must be enabled,
	// every condition must hold, and its effect must be ALLOW.
	EvaluatePolicy(ctx context.Context, policyID uuid.UUID, subject Subject) (domain.Decision, error)

	// EvaluateBound combines the enabled ABAC policies bound to (subject.ResourceType, action).
	EvaluateBound(ctx context.Context, action string, subject Subject) (domain.Decision, error)
}

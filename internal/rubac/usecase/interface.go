// Package usecase implements access rule administration and the bound-rule check.
package usecase

import (
	"context"

	"github.com/google/uuid"

	abacDomain "github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/rubac/domain"
)

// RuleRepository defines persistence operations for access rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AccessRule) error
	Update(ctx context.Context, rule *domain.AccessRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessRule, error)
	ListByIDs(ctx context.Context, ids ...uuid.UUID) ([]*domain.AccessRule, error)
	List(ctx context.Context, offset, limit int) ([]*domain.AccessRule, error)
}

// PolicyReader lists the policies bound to a (resource type, action) pair.
type PolicyReader interface {
	ListBound(
		ctx context.Context,
		policyType abacDomain.PolicyType,
		resourceType, action string,
	) ([]*abacDomain.AccessPolicy, error)
}

// RuleUseCase defines access rule operations. Mutations emit one audit record.
type RuleUseCase interface {
	CreateRule(ctx context.Context, input *domain.RuleInput) (*domain.AccessRule, error)
	UpdateRule(ctx context.Context, ruleID uuid.UUID, input *domain.RuleInput) (*domain.AccessRule, error)
	DeleteRule(ctx context.Context, ruleID uuid.UUID) error
	GetRule(ctx context.Context, ruleID uuid.UUID) (*domain.AccessRule, error)
	ListRules(ctx context.Context, offset, limit int) ([]*domain.AccessRule, error)

	// EvaluateRule checks a single stored rule against rctx.
	EvaluateRule(ctx context.Context, ruleID uuid.UUID, rctx domain.Context) (domain.Decision, error)

	// CheckBoundRules checks every rule referenced by an enabled RUBAC policy bound to
	// (resourceType, action). A policy whose rule is missing denies.
	CheckBoundRules(ctx context.Context, resourceType, action string, rctx domain.Context) (domain.Decision, error)
}

// Package usecase implements the decision orchestrator and the engine adapters it
// sequences.
package usecase

import (
	"context"

	"github.com/google/uuid"

	abacDomain "github.com/allisson/accessgate/internal/abac/domain"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	dacDomain "github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/decision/domain"
	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	rubacDomain "github.com/allisson/accessgate/internal/rubac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// PrincipalReader loads the principal being authenticated.
type PrincipalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// ResourceReader loads the resource whose label MAC checks against.
type ResourceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error)
}

// PermissionResolver resolves the dynamic role graph permissions of a principal.
type PermissionResolver interface {
	GetUserPermissions(ctx context.Context, user *userDomain.User) (rbacDomain.PermissionSet, error)
}

// ShareChecker answers ownership and sharing questions.
type ShareChecker interface {
	CheckAccess(
		ctx context.Context,
		resourceID, principalID uuid.UUID,
		permission dacDomain.Permission,
	) (dacDomain.Decision, error)
}

// RuleChecker evaluates the contextual rules bound to a (resource type, action) pair.
type RuleChecker interface {
	CheckBoundRules(
		ctx context.Context,
		resourceType, action string,
		rctx rubacDomain.Context,
	) (rubacDomain.Decision, error)
}

// PolicyEvaluator combines the attribute policies bound to a (resource type, action) pair.
type PolicyEvaluator interface {
	EvaluateBound(ctx context.Context, action string, subject abacUseCase.Subject) (abacDomain.Decision, error)
}

// Request is the input every engine evaluates. Resource is only loaded when MAC needs
// the stored label; ResourceErr holds the failure of that load.
type Request struct {
	Principal   *userDomain.User
	Resource    *resourceDomain.Resource
	ResourceErr error
	Options     domain.Options
}

// Engine is one access-control mechanism.
type Engine interface {
	Mechanism() domain.Mechanism
	Evaluate(ctx context.Context, req *Request) (domain.EngineResult, error)
}

// DecisionUseCase is the single entry point for access decisions.
type DecisionUseCase interface {
	// CheckAccess authenticates principalID, applies the bypass role and runs the
	// requested mechanisms in fixed order, stopping at the first denial. The result is
	// never nil. The error is ErrMalformedInput or ErrAuthenticationRequired; engine
	// failures and timeouts are reported as denials.
	CheckAccess(ctx context.Context, principalID uuid.UUID, opts domain.Options) (*domain.Result, error)
}

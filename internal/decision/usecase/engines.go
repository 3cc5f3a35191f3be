package usecase

import (
	"context"

	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	dacDomain "github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/decision/domain"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
)

// RBAC engine reasons.
const (
	ReasonRouteNotPermitted  = "route not permitted for role"
	ReasonMissingPermission  = "missing required permission"
	ReasonPermissionDenied   = "permission denied"
	ReasonPermissionGranted  = "permission granted"
	ReasonStaticTableGranted = "granted by static role table"
)

type rbacEngine struct {
	table       *rbacDomain.StaticTable
	resolver    PermissionResolver
	legacyRoles map[string]struct{}
}

// NewRBACEngine creates the RBAC engine. Roles in legacyRoles are authorized by the
// static table only and never reach the dynamic role graph.
func NewRBACEngine(table *rbacDomain.StaticTable, resolver PermissionResolver, legacyRoles []string) Engine {
	legacy := make(map[string]struct{}, len(legacyRoles))
	for _, role := range legacyRoles {
		legacy[rbacDomain.NormalizeRoleName(role)] = struct{}{}
	}
	return &rbacEngine{table: table, resolver: resolver, legacyRoles: legacy}
}

func (e *rbacEngine) Mechanism() domain.Mechanism { return domain.MechanismRBAC }

func (e *rbacEngine) Evaluate(ctx context.Context, req *Request) (domain.EngineResult, error) {
	opts := req.Options
	role := req.Principal.RoleName()

	if opts.RoutePath != "" && !e.table.AllowsRoute(role, opts.RoutePath) {
		return domain.EngineResult{Reason: ReasonRouteNotPermitted}, nil
	}

	var key rbacDomain.PermissionKey
	switch {
	case opts.RequiredPermission != "":
		if !e.table.HasPermission(role, opts.RequiredPermission) {
			return domain.EngineResult{Reason: ReasonMissingPermission}, nil
		}
		parsed, err := rbacDomain.ParsePermissionKey(opts.RequiredPermission)
		if err != nil {
			return domain.EngineResult{}, err
		}
		key = parsed
	case opts.ResourceType != "" && opts.Action != "":
		key = rbacDomain.PermissionKey{Resource: opts.ResourceType, Action: opts.Action}
	default:
		return domain.EngineResult{Allowed: true, Reason: ReasonStaticTableGranted}, nil
	}

	if _, legacy := e.legacyRoles[rbacDomain.NormalizeRoleName(role)]; legacy {
		if !e.table.HasPermission(role, key.String()) {
			return domain.EngineResult{Reason: ReasonMissingPermission}, nil
		}
		return domain.EngineResult{Allowed: true, Reason: ReasonStaticTableGranted}, nil
	}

	set, err := e.resolver.GetUserPermissions(ctx, req.Principal)
	if err != nil {
		return domain.EngineResult{}, err
	}
	if !set.Allows(key.Resource, key.Action) {
		return domain.EngineResult{Reason: ReasonPermissionDenied}, nil
	}
	return domain.EngineResult{Allowed: true, Reason: ReasonPermissionGranted}, nil
}

type macEngine struct{}

// NewMACEngine creates the MAC engine. The resource label comes from the request
// options when a target level is given, otherwise from the loaded resource.
func NewMACEngine() Engine {
	return &macEngine{}
}

func (e *macEngine) Mechanism() domain.Mechanism { return domain.MechanismMAC }

func (e *macEngine) Evaluate(_ context.Context, req *Request) (domain.EngineResult, error) {
	opts := req.Options

	var label macDomain.Label
	switch {
	case opts.TargetLevel != "":
		label = macDomain.NewLabel(opts.TargetLevel, opts.TargetCompartments)
	case req.ResourceErr != nil:
		return domain.EngineResult{}, req.ResourceErr
	case req.Resource == nil:
		return domain.EngineResult{Reason: domain.ReasonResourceNotFound}, nil
	default:
		label = req.Resource.Label
	}

	clearance := req.Principal.Clearance
	check := macDomain.CanRead
	if dacDomain.PermissionForAction(opts.Action) != dacDomain.PermissionRead {
		check = macDomain.CanWrite
	}
	decision := check(
		clearance.Level, label.Level,
		clearance.Compartments, label.Compartments,
		req.Principal.TrustedSubject,
	)
	return domain.EngineResult{Allowed: decision.Allowed, Reason: decision.Reason}, nil
}

type dacEngine struct {
	shares ShareChecker
}

// NewDACEngine creates the DAC engine.
func NewDACEngine(shares ShareChecker) Engine {
	return &dacEngine{shares: shares}
}

func (e *dacEngine) Mechanism() domain.Mechanism { return domain.MechanismDAC }

func (e *dacEngine) Evaluate(ctx context.Context, req *Request) (domain.EngineResult, error) {
	opts := req.Options
	decision, err := e.shares.CheckAccess(
		ctx, *opts.ResourceID, req.Principal.ID, dacDomain.PermissionForAction(opts.Action),
	)
	if err != nil {
		return domain.EngineResult{}, err
	}
	return domain.EngineResult{Allowed: decision.Allowed, Reason: decision.Reason}, nil
}

type rubacEngine struct {
	rules RuleChecker
}

// NewRuBACEngine creates the RuBAC engine.
func NewRuBACEngine(rules RuleChecker) Engine {
	return &rubacEngine{rules: rules}
}

func (e *rubacEngine) Mechanism() domain.Mechanism { return domain.MechanismRuBAC }

func (e *rubacEngine) Evaluate(ctx context.Context, req *Request) (domain.EngineResult, error) {
	opts := req.Options
	rctx := opts.Request
	rctx.UserID = req.Principal.ID

	decision, err := e.rules.CheckBoundRules(ctx, opts.ResourceType, opts.Action, rctx)
	if err != nil {
		return domain.EngineResult{}, err
	}

	reason := decision.Reason
	if !decision.Allowed && decision.Rule != nil && decision.Rule.EmergencyOverride {
		reason += " (emergency override available)"
	}
	return domain.EngineResult{Allowed: decision.Allowed, Reason: reason}, nil
}

type abacEngine struct {
	policies PolicyEvaluator
}

// NewABACEngine creates the ABAC engine.
func NewABACEngine(policies PolicyEvaluator) Engine {
	return &abacEngine{policies: policies}
}

func (e *abacEngine) Mechanism() domain.Mechanism { return domain.MechanismABAC }

func (e *abacEngine) Evaluate(ctx context.Context, req *Request) (domain.EngineResult, error) {
	opts := req.Options
	subject := abacUseCase.Subject{
		UserID:       req.Principal.ID,
		ResourceType: opts.ResourceType,
		Environment:  opts.Environment,
	}
	if opts.ResourceID != nil {
		subject.ResourceID = *opts.ResourceID
	}

	decision, err := e.policies.EvaluateBound(ctx, opts.Action, subject)
	if err != nil {
		return domain.EngineResult{}, err
	}
	return domain.EngineResult{Allowed: decision.Allowed, Reason: decision.Reason}, nil
}

// DefaultEngines returns the five engines in evaluation order.
func DefaultEngines(
	table *rbacDomain.StaticTable,
	resolver PermissionResolver,
	legacyRoles []string,
	shares ShareChecker,
	rules RuleChecker,
	policies PolicyEvaluator,
) []Engine {
	return []Engine{
		NewRBACEngine(table, resolver, legacyRoles),
		NewMACEngine(),
		NewDACEngine(shares),
		NewRuBACEngine(rules),
		NewABACEngine(policies),
	}
}

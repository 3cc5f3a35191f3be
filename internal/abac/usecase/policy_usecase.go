package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/accessgate/internal/abac/domain"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// ErrNotABACPolicy indicates an attempt to evaluate a RUBAC binding as an attribute policy.
var ErrNotABACPolicy = errors.Wrap(errors.ErrInvalidInput, "policy is not an abac policy")

type policyUseCase struct {
	txManager    database.TxManager
	policyRepo   PolicyRepository
	subjectRepo  SubjectReader
	resourceRepo ResourceReader
	recorder     auditUseCase.Recorder
	logger       *slog.Logger
}

func policyMetadata(policy *domain.AccessPolicy) map[string]any {
	metadata := map[string]any{
		"name":          policy.Name,
		"policy_type":   string(policy.PolicyType),
		"resource_type": policy.ResourceType,
		"action":        policy.Action,
		"effect":        string(policy.Effect),
		"enabled":       policy.Enabled,
		"priority":      policy.Priority,
		"conditions":    len(policy.Conditions),
	}
	if policy.RuleID != nil {
		metadata["rule_id"] = policy.RuleID.String()
	}
	return metadata
}

func applyInput(policy *domain.AccessPolicy, input *domain.PolicyInput) {
	policy.Name = input.Name
	policy.Description = input.Description
	policy.PolicyType = input.PolicyType
	policy.ResourceType = input.ResourceType
	policy.Action = input.Action
	policy.Effect = input.Effect
	policy.Conditions = input.Conditions
	policy.RuleID = input.RuleID
	policy.Enabled = input.Enabled
	policy.Priority = input.Priority

	// A rule binding only constrains; it never grants on its own.
	if policy.PolicyType == domain.PolicyTypeRuBAC {
		policy.Effect = domain.EffectAllow
		policy.Conditions = nil
	}
	if policy.Conditions == nil {
		policy.Conditions = []domain.Condition{}
	}
}

func (p *policyUseCase) CreatePolicy(ctx context.Context, input *domain.PolicyInput) (*domain.AccessPolicy, error) {
	now := database.Now()
	policy := &domain.AccessPolicy{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(policy, input)
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := p.policyRepo.Create(ctx, policy); err != nil {
			return err
		}
		return p.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "policy.create", "access_policy", policy.ID.String(), macDomain.LevelInternal,
			policyMetadata(policy),
		))
	})
	if err != nil {
		return nil, err
	}

	return policy, nil
}

func (p *policyUseCase) UpdatePolicy(
	ctx context.Context,
	policyID uuid.UUID,
	input *domain.PolicyInput,
) (*domain.AccessPolicy, error) {
	policy, err := p.policyRepo.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	applyInput(policy, input)
	policy.UpdatedAt = database.Now()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	err = p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := p.policyRepo.Update(ctx, policy); err != nil {
			return err
		}
		return p.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "policy.update", "access_policy", policy.ID.String(), macDomain.LevelInternal,
			policyMetadata(policy),
		))
	})
	if err != nil {
		return nil, err
	}

	return policy, nil
}

func (p *policyUseCase) DeletePolicy(ctx context.Context, policyID uuid.UUID) error {
	policy, err := p.policyRepo.GetByID(ctx, policyID)
	if err != nil {
		return err
	}

	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := p.policyRepo.Delete(ctx, policyID); err != nil {
			return err
		}
		return p.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "policy.delete", "access_policy", policyID.String(), macDomain.LevelInternal,
			map[string]any{"name": policy.Name, "policy_type": string(policy.PolicyType)},
		))
	})
}

func (p *policyUseCase) GetPolicy(ctx context.Context, policyID uuid.UUID) (*domain.AccessPolicy, error) {
	return p.policyRepo.GetByID(ctx, policyID)
}

func (p *policyUseCase) ListPolicies(
	ctx context.Context,
	policyType domain.PolicyType,
	offset, limit int,
) ([]*domain.AccessPolicy, error) {
	return p.policyRepo.List(ctx, policyType, offset, limit)
}

func (p *policyUseCase) EvaluatePolicy(
	ctx context.Context,
	policyID uuid.UUID,
	subject Subject,
) (domain.Decision, error) {
	policy, err := p.policyRepo.GetByID(ctx, policyID)
	if err != nil {
		return domain.Decision{}, err
	}
	if policy.PolicyType != domain.PolicyTypeABAC {
		return domain.Decision{}, ErrNotABACPolicy
	}

	attrs, err := p.gather(ctx, subject)
	if err != nil {
		return domain.Decision{}, err
	}

	return domain.EvaluateSingle(policy, attrs), nil
}

func (p *policyUseCase) EvaluateBound(ctx context.Context, action string, subject Subject) (domain.Decision, error) {
	policies, err := p.policyRepo.ListBound(ctx, domain.PolicyTypeABAC, subject.ResourceType, action)
	if err != nil {
		return domain.Decision{}, err
	}
	if len(policies) == 0 {
		return domain.Decision{Allowed: true, Reason: domain.ReasonNoBoundPolicies}, nil
	}

	attrs, err := p.gather(ctx, subject)
	if err != nil {
		return domain.Decision{}, err
	}

	decision := domain.Combine(policies, attrs)
	p.logger.Debug("abac policies combined",
		slog.String("resource_type", subject.ResourceType),
		slog.String("action", action),
		slog.Int("policies", len(policies)),
		slog.Bool("allowed", decision.Allowed),
	)
	return decision, nil
}

// gather builds the three attribute scopes. The principal, the resource and its
// attributes are loaded concurrently.
func (p *policyUseCase) gather(ctx context.Context, subject Subject) (domain.Attributes, error) {
	var (
		user       *userDomain.User
		resource   *resourceDomain.Resource
		attributes []*resourceDomain.Attribute
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = p.subjectRepo.GetByID(gctx, subject.UserID)
		return err
	})
	if subject.ResourceID != uuid.Nil {
		g.Go(func() error {
			var err error
			resource, err = p.resourceRepo.GetByID(gctx, subject.ResourceID)
			return err
		})
		g.Go(func() error {
			var err error
			attributes, err = p.resourceRepo.ListAttributes(gctx, subject.ResourceID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Attributes{}, err
	}

	resourceAttrs := map[string]any{"type": subject.ResourceType}
	if resource != nil {
		resourceAttrs = resource.AttributeMap(attributes)
	}

	return domain.Attributes{
		Subject:     user.SubjectAttributes(),
		Resource:    resourceAttrs,
		Environment: subject.Environment.AttributeMap(),
	}, nil
}

// NewPolicyUseCase creates a new PolicyUseCase.
func NewPolicyUseCase(
	txManager database.TxManager,
	policyRepo PolicyRepository,
	subjectRepo SubjectReader,
	resourceRepo ResourceReader,
	recorder auditUseCase.Recorder,
	logger *slog.Logger,
) PolicyUseCase {
	return &policyUseCase{
		txManager:    txManager,
		policyRepo:   policyRepo,
		subjectRepo:  subjectRepo,
		resourceRepo: resourceRepo,
		recorder:     recorder,
		logger:       logger,
	}
}

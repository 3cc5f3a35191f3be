package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	abacDomain "github.com/allisson/accessgate/internal/abac/domain"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/rubac/domain"
)

type ruleUseCase struct {
	txManager  database.TxManager
	ruleRepo   RuleRepository
	policyRepo PolicyReader
	recorder   auditUseCase.Recorder
	logger     *slog.Logger
}

func ruleMetadata(rule *domain.AccessRule) map[string]any {
	return map[string]any{
		"name":               rule.Name,
		"rule_type":          string(rule.RuleType),
		"enabled":            rule.Enabled,
		"priority":           rule.Priority,
		"emergency_override": rule.EmergencyOverride,
	}
}

func applyInput(rule *domain.AccessRule, input *domain.RuleInput) {
	rule.Name = input.Name
	rule.Description = input.Description
	rule.RuleType = input.RuleType
	rule.Config = input.Config
	rule.Enabled = input.Enabled
	rule.Priority = input.Priority
	rule.EmergencyOverride = input.EmergencyOverride
	rule.ValidFrom = input.ValidFrom
	rule.ValidUntil = input.ValidUntil
}

func (r *ruleUseCase) CreateRule(ctx context.Context, input *domain.RuleInput) (*domain.AccessRule, error) {
	now := database.Now()
	rule := &domain.AccessRule{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(rule, input)
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.ruleRepo.Create(ctx, rule); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "rule.create", "access_rule", rule.ID.String(), macDomain.LevelInternal, ruleMetadata(rule),
		))
	})
	if err != nil {
		return nil, err
	}

	return rule, nil
}

func (r *ruleUseCase) UpdateRule(
	ctx context.Context,
	ruleID uuid.UUID,
	input *domain.RuleInput,
) (*domain.AccessRule, error) {
	rule, err := r.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	applyInput(rule, input)
	rule.UpdatedAt = database.Now()
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.ruleRepo.Update(ctx, rule); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "rule.update", "access_rule", rule.ID.String(), macDomain.LevelInternal, ruleMetadata(rule),
		))
	})
	if err != nil {
		return nil, err
	}

	return rule, nil
}

func (r *ruleUseCase) DeleteRule(ctx context.Context, ruleID uuid.UUID) error {
	rule, err := r.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}

	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.ruleRepo.Delete(ctx, ruleID); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "rule.delete", "access_rule", ruleID.String(), macDomain.LevelInternal,
			map[string]any{"name": rule.Name},
		))
	})
}

func (r *ruleUseCase) GetRule(ctx context.Context, ruleID uuid.UUID) (*domain.AccessRule, error) {
	return r.ruleRepo.GetByID(ctx, ruleID)
}

func (r *ruleUseCase) ListRules(ctx context.Context, offset, limit int) ([]*domain.AccessRule, error) {
	return r.ruleRepo.List(ctx, offset, limit)
}

func (r *ruleUseCase) EvaluateRule(
	ctx context.Context,
	ruleID uuid.UUID,
	rctx domain.Context,
) (domain.Decision, error) {
	rule, err := r.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return domain.Decision{}, err
	}
	return domain.EvaluateAccessRule(rule, rctx), nil
}

func (r *ruleUseCase) CheckBoundRules(
	ctx context.Context,
	resourceType, action string,
	rctx domain.Context,
) (domain.Decision, error) {
	policies, err := r.policyRepo.ListBound(ctx, abacDomain.PolicyTypeRuBAC, resourceType, action)
	if err != nil {
		return domain.Decision{}, err
	}
	if len(policies) == 0 {
		return domain.Decision{Allowed: true, Reason: domain.ReasonNoBoundRules}, nil
	}

	ids := make([]uuid.UUID, 0, len(policies))
	seen := make(map[uuid.UUID]struct{}, len(policies))
	for _, policy := range policies {
		if policy.RuleID == nil {
			return domain.Decision{Reason: fmt.Sprintf("policy %q has no rule", policy.Name)}, nil
		}
		if _, dup := seen[*policy.RuleID]; dup {
			continue
		}
		seen[*policy.RuleID] = struct{}{}
		ids = append(ids, *policy.RuleID)
	}

	rules, err := r.ruleRepo.ListByIDs(ctx, ids...)
	if err != nil {
		return domain.Decision{}, err
	}
	if len(rules) != len(ids) {
		r.logger.Warn("rubac policy references a missing rule",
			slog.String("resource_type", resourceType),
			slog.String("action", action),
		)
		return domain.Decision{Reason: "bound rule not found"}, nil
	}

	return domain.EvaluateAll(rules, rctx), nil
}

// NewRuleUseCase creates a new RuleUseCase.
func NewRuleUseCase(
	txManager database.TxManager,
	ruleRepo RuleRepository,
	policyRepo PolicyReader,
	recorder auditUseCase.Recorder,
	logger *slog.Logger,
) RuleUseCase {
	return &ruleUseCase{
		txManager:  txManager,
		ruleRepo:   ruleRepo,
		policyRepo: policyRepo,
		recorder:   recorder,
		logger:     logger,
	}
}

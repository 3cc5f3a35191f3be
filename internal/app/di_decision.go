package app

import (
	"context"
	"fmt"

	decisionHTTP "github.com/allisson/accessgate/internal/decision/http"
	decisionUseCase "github.com/allisson/accessgate/internal/decision/usecase"
	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
)

// DecisionUseCase returns the access decision orchestrator.
func (c *Container) DecisionUseCase(ctx context.Context) (decisionUseCase.DecisionUseCase, error) {
	var err error
	c.decisionUseCaseInit.Do(func() {
		c.decisionUseCase, err = c.initDecisionUseCase(ctx)
		if err != nil {
			c.initErrors["decisionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["decisionUseCase"]; exists {
		return nil, storedErr
	}
	return c.decisionUseCase, nil
}

// DecisionHandler returns the decision HTTP handler.
func (c *Container) DecisionHandler(ctx context.Context) (*decisionHTTP.DecisionHandler, error) {
	var err error
	c.decisionHandlerInit.Do(func() {
		c.decisionHandler, err = c.initDecisionHandler(ctx)
		if err != nil {
			c.initErrors["decisionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["decisionHandler"]; exists {
		return nil, storedErr
	}
	return c.decisionHandler, nil
}

// staticTable loads the route and permission table, falling back to the built-in roles.
func (c *Container) staticTable() (*rbacDomain.StaticTable, error) {
	if c.config.RBACStaticTablePath == "" {
		return rbacDomain.DefaultStaticTable(), nil
	}

	table, err := rbacDomain.LoadStaticTable(c.config.RBACStaticTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load static role table: %w", err)
	}
	return table, nil
}

func (c *Container) initDecisionUseCase(ctx context.Context) (decisionUseCase.DecisionUseCase, error) {
	table, err := c.staticTable()
	if err != nil {
		return nil, err
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for decision use case: %w", err)
	}

	resourceRepo, err := c.ResourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource repository for decision use case: %w", err)
	}

	roleGraph, err := c.RoleGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get role graph for decision use case: %w", err)
	}

	shareUseCase, err := c.ShareUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get share use case for decision use case: %w", err)
	}

	ruleUseCase, err := c.RuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule use case for decision use case: %w", err)
	}

	policyUseCase, err := c.PolicyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for decision use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for decision use case: %w", err)
	}

	engines := decisionUseCase.DefaultEngines(
		table,
		roleGraph,
		c.config.RBACLegacyRoles,
		shareUseCase,
		ruleUseCase,
		policyUseCase,
	)

	baseUseCase := decisionUseCase.NewDecisionUseCase(
		userRepo,
		resourceRepo,
		engines,
		recorder,
		c.config.BypassRole,
		c.config.DecisionTimeout,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for decision use case: %w", err)
		}
		return decisionUseCase.NewDecisionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initDecisionHandler(ctx context.Context) (*decisionHTTP.DecisionHandler, error) {
	useCase, err := c.DecisionUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision use case for decision handler: %w", err)
	}
	return decisionHTTP.NewDecisionHandler(useCase, c.Logger()), nil
}

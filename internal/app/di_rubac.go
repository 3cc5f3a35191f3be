package app

import (
	"fmt"

	rubacHTTP "github.com/allisson/accessgate/internal/rubac/http"
	rubacRepository "github.com/allisson/accessgate/internal/rubac/repository"
	rubacUseCase "github.com/allisson/accessgate/internal/rubac/usecase"
)

// RuleRepository returns the access rule repository for the configured driver.
func (c *Container) RuleRepository() (*rubacRepository.SQLRuleRepository, error) {
	var err error
	c.ruleRepositoryInit.Do(func() {
		c.ruleRepository, err = c.initRuleRepository()
		if err != nil {
			c.initErrors["ruleRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleRepository"]; exists {
		return nil, storedErr
	}
	return c.ruleRepository, nil
}

// RuleUseCase returns the contextual rule use case.
func (c *Container) RuleUseCase() (rubacUseCase.RuleUseCase, error) {
	var err error
	c.ruleUseCaseInit.Do(func() {
		c.ruleUseCase, err = c.initRuleUseCase()
		if err != nil {
			c.initErrors["ruleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleUseCase"]; exists {
		return nil, storedErr
	}
	return c.ruleUseCase, nil
}

// RuleHandler returns the access rule HTTP handler.
func (c *Container) RuleHandler() (*rubacHTTP.RuleHandler, error) {
	var err error
	c.ruleHandlerInit.Do(func() {
		c.ruleHandler, err = c.initRuleHandler()
		if err != nil {
			c.initErrors["ruleHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleHandler"]; exists {
		return nil, storedErr
	}
	return c.ruleHandler, nil
}

func (c *Container) initRuleRepository() (*rubacRepository.SQLRuleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rule repository: %w", err)
	}
	return rubacRepository.NewSQLRuleRepository(db, c.config.DBDriver), nil
}

func (c *Container) initRuleUseCase() (rubacUseCase.RuleUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rule use case: %w", err)
	}

	ruleRepo, err := c.RuleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule repository for rule use case: %w", err)
	}

	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for rule use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for rule use case: %w", err)
	}

	return rubacUseCase.NewRuleUseCase(txManager, ruleRepo, policyRepo, recorder, c.Logger()), nil
}

func (c *Container) initRuleHandler() (*rubacHTTP.RuleHandler, error) {
	ruleUseCase, err := c.RuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule use case for rule handler: %w", err)
	}
	return rubacHTTP.NewRuleHandler(ruleUseCase, c.Logger()), nil
}

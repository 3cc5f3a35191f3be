package app

import (
	"fmt"

	abacHTTP "github.com/allisson/accessgate/internal/abac/http"
	abacRepository "github.com/allisson/accessgate/internal/abac/repository"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
)

// PolicyRepository returns the access policy repository for the configured driver.
func (c *Container) PolicyRepository() (*abacRepository.SQLPolicyRepository, error) {
	var err error
	c.policyRepositoryInit.Do(func() {
		c.policyRepository, err = c.initPolicyRepository()
		if err != nil {
			c.initErrors["policyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyRepository"]; exists {
		return nil, storedErr
	}
	return c.policyRepository, nil
}

// PolicyUseCase returns the attribute policy use case.
func (c *Container) PolicyUseCase() (abacUseCase.PolicyUseCase, error) {
	var err error
	c.policyUseCaseInit.Do(func() {
		c.policyUseCase, err = c.initPolicyUseCase()
		if err != nil {
			c.initErrors["policyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyUseCase"]; exists {
		return nil, storedErr
	}
	return c.policyUseCase, nil
}

// PolicyHandler returns the access policy HTTP handler.
func (c *Container) PolicyHandler() (*abacHTTP.PolicyHandler, error) {
	var err error
	c.policyHandlerInit.Do(func() {
		c.policyHandler, err = c.initPolicyHandler()
		if err != nil {
			c.initErrors["policyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyHandler"]; exists {
		return nil, storedErr
	}
	return c.policyHandler, nil
}

func (c *Container) initPolicyRepository() (*abacRepository.SQLPolicyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for policy repository: %w", err)
	}
	return abacRepository.NewSQLPolicyRepository(db, c.config.DBDriver), nil
}

func (c *Container) initPolicyUseCase() (abacUseCase.PolicyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for policy use case: %w", err)
	}

	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for policy use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for policy use case: %w", err)
	}

	resourceRepo, err := c.ResourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource repository for policy use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for policy use case: %w", err)
	}

	return abacUseCase.NewPolicyUseCase(
		txManager,
		policyRepo,
		userRepo,
		resourceRepo,
		recorder,
		c.Logger(),
	), nil
}

func (c *Container) initPolicyHandler() (*abacHTTP.PolicyHandler, error) {
	policyUseCase, err := c.PolicyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for policy handler: %w", err)
	}
	return abacHTTP.NewPolicyHandler(policyUseCase, c.Logger()), nil
}

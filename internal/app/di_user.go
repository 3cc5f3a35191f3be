package app

import (
	"context"
	"fmt"

	resourceHTTP "github.com/allisson/accessgate/internal/resource/http"
	resourceRepository "github.com/allisson/accessgate/internal/resource/repository"
	resourceUseCase "github.com/allisson/accessgate/internal/resource/usecase"
	userHTTP "github.com/allisson/accessgate/internal/user/http"
	userRepository "github.com/allisson/accessgate/internal/user/repository"
	userUseCase "github.com/allisson/accessgate/internal/user/usecase"
)

// UserRepository returns the principal repository for the configured driver.
func (c *Container) UserRepository() (*userRepository.SQLUserRepository, error) {
	var err error
	c.userRepositoryInit.Do(func() {
		c.userRepository, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepository"]; exists {
		return nil, storedErr
	}
	return c.userRepository, nil
}

// ResourceRepository returns the resource repository for the configured driver.
func (c *Container) ResourceRepository() (*resourceRepository.SQLResourceRepository, error) {
	var err error
	c.resourceRepositoryInit.Do(func() {
		c.resourceRepository, err = c.initResourceRepository()
		if err != nil {
			c.initErrors["resourceRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resourceRepository"]; exists {
		return nil, storedErr
	}
	return c.resourceRepository, nil
}

// UserUseCase returns the principal administration use case.
func (c *Container) UserUseCase(ctx context.Context) (userUseCase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase(ctx)
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// ResourceUseCase returns the resource registry use case.
func (c *Container) ResourceUseCase() (resourceUseCase.ResourceUseCase, error) {
	var err error
	c.resourceUseCaseInit.Do(func() {
		c.resourceUseCase, err = c.initResourceUseCase()
		if err != nil {
			c.initErrors["resourceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resourceUseCase"]; exists {
		return nil, storedErr
	}
	return c.resourceUseCase, nil
}

// UserHandler returns the principal HTTP handler.
func (c *Container) UserHandler(ctx context.Context) (*userHTTP.UserHandler, error) {
	var err error
	c.userHandlerInit.Do(func() {
		c.userHandler, err = c.initUserHandler(ctx)
		if err != nil {
			c.initErrors["userHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userHandler"]; exists {
		return nil, storedErr
	}
	return c.userHandler, nil
}

// ResourceHandler returns the resource HTTP handler.
func (c *Container) ResourceHandler() (*resourceHTTP.ResourceHandler, error) {
	var err error
	c.resourceHandlerInit.Do(func() {
		c.resourceHandler, err = c.initResourceHandler()
		if err != nil {
			c.initErrors["resourceHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resourceHandler"]; exists {
		return nil, storedErr
	}
	return c.resourceHandler, nil
}

func (c *Container) initUserRepository() (*userRepository.SQLUserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}
	return userRepository.NewSQLUserRepository(db, c.config.DBDriver), nil
}

func (c *Container) initResourceRepository() (*resourceRepository.SQLResourceRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for resource repository: %w", err)
	}
	return resourceRepository.NewSQLResourceRepository(db, c.config.DBDriver), nil
}

func (c *Container) initUserUseCase(ctx context.Context) (userUseCase.UserUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for user use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	cache, err := c.PermissionCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission cache for user use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for user use case: %w", err)
	}

	return userUseCase.NewUserUseCase(txManager, userRepo, cache, recorder, c.Logger()), nil
}

func (c *Container) initResourceUseCase() (resourceUseCase.ResourceUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for resource use case: %w", err)
	}

	resourceRepo, err := c.ResourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource repository for resource use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for resource use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for resource use case: %w", err)
	}

	return resourceUseCase.NewResourceUseCase(txManager, resourceRepo, userRepo, recorder), nil
}

func (c *Container) initUserHandler(ctx context.Context) (*userHTTP.UserHandler, error) {
	useCase, err := c.UserUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for user handler: %w", err)
	}
	return userHTTP.NewUserHandler(useCase, c.Logger()), nil
}

func (c *Container) initResourceHandler() (*resourceHTTP.ResourceHandler, error) {
	useCase, err := c.ResourceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource use case for resource handler: %w", err)
	}
	return resourceHTTP.NewResourceHandler(useCase, c.Logger()), nil
}

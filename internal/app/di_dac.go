package app

import (
	"fmt"

	dacHTTP "github.com/allisson/accessgate/internal/dac/http"
	dacRepository "github.com/allisson/accessgate/internal/dac/repository"
	dacUseCase "github.com/allisson/accessgate/internal/dac/usecase"
)

// ShareRepository returns the share grant repository for the configured driver.
func (c *Container) ShareRepository() (*dacRepository.SQLShareRepository, error) {
	var err error
	c.shareRepositoryInit.Do(func() {
		c.shareRepository, err = c.initShareRepository()
		if err != nil {
			c.initErrors["shareRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["shareRepository"]; exists {
		return nil, storedErr
	}
	return c.shareRepository, nil
}

// ShareUseCase returns the ownership and sharing use case.
func (c *Container) ShareUseCase() (dacUseCase.ShareUseCase, error) {
	var err error
	c.shareUseCaseInit.Do(func() {
		c.shareUseCase, err = c.initShareUseCase()
		if err != nil {
			c.initErrors["shareUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["shareUseCase"]; exists {
		return nil, storedErr
	}
	return c.shareUseCase, nil
}

// ShareHandler returns the share HTTP handler.
func (c *Container) ShareHandler() (*dacHTTP.ShareHandler, error) {
	var err error
	c.shareHandlerInit.Do(func() {
		c.shareHandler, err = c.initShareHandler()
		if err != nil {
			c.initErrors["shareHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["shareHandler"]; exists {
		return nil, storedErr
	}
	return c.shareHandler, nil
}

func (c *Container) initShareRepository() (*dacRepository.SQLShareRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for share repository: %w", err)
	}
	return dacRepository.NewSQLShareRepository(db, c.config.DBDriver), nil
}

func (c *Container) initShareUseCase() (dacUseCase.ShareUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for share use case: %w", err)
	}

	shareRepo, err := c.ShareRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get share repository for share use case: %w", err)
	}

	resourceRepo, err := c.ResourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource repository for share use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for share use case: %w", err)
	}

	return dacUseCase.NewShareUseCase(txManager, shareRepo, resourceRepo, recorder, c.Logger()), nil
}

func (c *Container) initShareHandler() (*dacHTTP.ShareHandler, error) {
	shareUseCase, err := c.ShareUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get share use case for share handler: %w", err)
	}
	return dacHTTP.NewShareHandler(shareUseCase, c.Logger()), nil
}

package app

import (
	"fmt"

	auditHTTP "github.com/allisson/accessgate/internal/audit/http"
	auditRepository "github.com/allisson/accessgate/internal/audit/repository"
	auditService "github.com/allisson/accessgate/internal/audit/service"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
)

// AuditLogRepository returns the audit log repository for the configured driver.
func (c *Container) AuditLogRepository() (*auditRepository.SQLAuditLogRepository, error) {
	var err error
	c.auditLogRepositoryInit.Do(func() {
		c.auditLogRepository, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditLogRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogRepository"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepository, nil
}

// AuditLogUseCase returns the audit log use case. It is also the Recorder every
// administrative use case and the orchestrator write through.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	var err error
	c.auditLogUseCaseInit.Do(func() {
		c.auditLogUseCase, err = c.initAuditLogUseCase()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

// AuditLogHandler returns the audit log HTTP handler.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	var err error
	c.auditLogHandlerInit.Do(func() {
		c.auditLogHandler, err = c.initAuditLogHandler()
		if err != nil {
			c.initErrors["auditLogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogHandler"]; exists {
		return nil, storedErr
	}
	return c.auditLogHandler, nil
}

func (c *Container) initAuditLogRepository() (*auditRepository.SQLAuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}
	return auditRepository.NewSQLAuditLogRepository(db, c.config.DBDriver), nil
}

func (c *Container) initAuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	auditLogRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}

	// Records stay unsigned when no signing key is configured.
	var signer auditService.Signer
	if c.config.AuditSigningKey != "" {
		signer, err = auditService.NewSigner([]byte(c.config.AuditSigningKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create audit signer: %w", err)
		}
	}

	return auditUseCase.NewAuditLogUseCase(auditLogRepo, signer), nil
}

func (c *Container) initAuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	useCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for audit log handler: %w", err)
	}
	return auditHTTP.NewAuditLogHandler(useCase, c.Logger()), nil
}

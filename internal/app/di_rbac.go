package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	rbacCache "github.com/allisson/accessgate/internal/rbac/cache"
	rbacHTTP "github.com/allisson/accessgate/internal/rbac/http"
	rbacRepository "github.com/allisson/accessgate/internal/rbac/repository"
	rbacUseCase "github.com/allisson/accessgate/internal/rbac/usecase"
)

// RoleRepository returns the role repository for the configured driver.
func (c *Container) RoleRepository() (*rbacRepository.SQLRoleRepository, error) {
	var err error
	c.roleRepositoryInit.Do(func() {
		c.roleRepository, err = c.initRoleRepository()
		if err != nil {
			c.initErrors["roleRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleRepository"]; exists {
		return nil, storedErr
	}
	return c.roleRepository, nil
}

// PermissionRepository returns the permission repository for the configured driver.
func (c *Container) PermissionRepository() (*rbacRepository.SQLPermissionRepository, error) {
	var err error
	c.permissionRepositoryInit.Do(func() {
		c.permissionRepository, err = c.initPermissionRepository()
		if err != nil {
			c.initErrors["permissionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["permissionRepository"]; exists {
		return nil, storedErr
	}
	return c.permissionRepository, nil
}

// AssignmentRepository returns the role assignment repository for the configured driver.
func (c *Container) AssignmentRepository() (*rbacRepository.SQLAssignmentRepository, error) {
	var err error
	c.assignmentRepositoryInit.Do(func() {
		c.assignmentRepository, err = c.initAssignmentRepository()
		if err != nil {
			c.initErrors["assignmentRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentRepository"]; exists {
		return nil, storedErr
	}
	return c.assignmentRepository, nil
}

// PermissionCache returns the Redis permission cache, or a no-op cache when Redis is
// not configured.
func (c *Container) PermissionCache(ctx context.Context) (rbacUseCase.PermissionCache, error) {
	var err error
	c.permissionCacheInit.Do(func() {
		c.permissionCache, err = c.initPermissionCache(ctx)
		if err != nil {
			c.initErrors["permissionCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["permissionCache"]; exists {
		return nil, storedErr
	}
	return c.permissionCache, nil
}

// RoleGraph returns the dynamic permission resolver.
func (c *Container) RoleGraph(ctx context.Context) (rbacUseCase.RoleGraph, error) {
	var err error
	c.roleGraphInit.Do(func() {
		c.roleGraph, err = c.initRoleGraph(ctx)
		if err != nil {
			c.initErrors["roleGraph"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleGraph"]; exists {
		return nil, storedErr
	}
	return c.roleGraph, nil
}

// RoleUseCase returns the role and permission administration use case.
func (c *Container) RoleUseCase(ctx context.Context) (rbacUseCase.RoleUseCase, error) {
	var err error
	c.roleUseCaseInit.Do(func() {
		c.roleUseCase, err = c.initRoleUseCase(ctx)
		if err != nil {
			c.initErrors["roleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleUseCase"]; exists {
		return nil, storedErr
	}
	return c.roleUseCase, nil
}

// AssignmentUseCase returns the role assignment lifecycle use case.
func (c *Container) AssignmentUseCase(ctx context.Context) (rbacUseCase.AssignmentUseCase, error) {
	var err error
	c.assignmentUseCaseInit.Do(func() {
		c.assignmentUseCase, err = c.initAssignmentUseCase(ctx)
		if err != nil {
			c.initErrors["assignmentUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentUseCase"]; exists {
		return nil, storedErr
	}
	return c.assignmentUseCase, nil
}

// RoleHandler returns the role HTTP handler.
func (c *Container) RoleHandler(ctx context.Context) (*rbacHTTP.RoleHandler, error) {
	var err error
	c.roleHandlerInit.Do(func() {
		c.roleHandler, err = c.initRoleHandler(ctx)
		if err != nil {
			c.initErrors["roleHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleHandler"]; exists {
		return nil, storedErr
	}
	return c.roleHandler, nil
}

// AssignmentHandler returns the role assignment HTTP handler.
func (c *Container) AssignmentHandler(ctx context.Context) (*rbacHTTP.AssignmentHandler, error) {
	var err error
	c.assignmentHandlerInit.Do(func() {
		c.assignmentHandler, err = c.initAssignmentHandler(ctx)
		if err != nil {
			c.initErrors["assignmentHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentHandler"]; exists {
		return nil, storedErr
	}
	return c.assignmentHandler, nil
}

func (c *Container) initRedisClient(ctx context.Context) (*redis.Client, error) {
	if c.config.RedisURL == "" {
		return nil, nil
	}

	client, err := rbacCache.NewRedisClient(ctx, c.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Container) initPermissionCache(ctx context.Context) (rbacUseCase.PermissionCache, error) {
	client, err := c.RedisClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for permission cache: %w", err)
	}
	if client == nil || c.config.PermissionCacheTTL <= 0 {
		return rbacCache.NoopPermissionCache{}, nil
	}
	return rbacCache.NewRedisPermissionCache(client, c.config.PermissionCacheTTL), nil
}

func (c *Container) initRoleRepository() (*rbacRepository.SQLRoleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for role repository: %w", err)
	}
	return rbacRepository.NewSQLRoleRepository(db, c.config.DBDriver), nil
}

func (c *Container) initPermissionRepository() (*rbacRepository.SQLPermissionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for permission repository: %w", err)
	}
	return rbacRepository.NewSQLPermissionRepository(db, c.config.DBDriver), nil
}

func (c *Container) initAssignmentRepository() (*rbacRepository.SQLAssignmentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for assignment repository: %w", err)
	}
	return rbacRepository.NewSQLAssignmentRepository(db, c.config.DBDriver), nil
}

func (c *Container) initRoleGraph(ctx context.Context) (rbacUseCase.RoleGraph, error) {
	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for role graph: %w", err)
	}

	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for role graph: %w", err)
	}

	assignmentRepo, err := c.AssignmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment repository for role graph: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for role graph: %w", err)
	}

	cache, err := c.PermissionCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission cache for role graph: %w", err)
	}

	return rbacUseCase.NewRoleGraph(
		roleRepo,
		permissionRepo,
		assignmentRepo,
		userRepo,
		cache,
		c.config.BypassRole,
		c.Logger(),
	), nil
}

func (c *Container) initRoleUseCase(ctx context.Context) (rbacUseCase.RoleUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for role use case: %w", err)
	}

	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for role use case: %w", err)
	}

	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for role use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for role use case: %w", err)
	}

	cache, err := c.PermissionCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission cache for role use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for role use case: %w", err)
	}

	return rbacUseCase.NewRoleUseCase(
		txManager,
		roleRepo,
		permissionRepo,
		userRepo,
		cache,
		recorder,
		c.Logger(),
	), nil
}

func (c *Container) initAssignmentUseCase(ctx context.Context) (rbacUseCase.AssignmentUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for assignment use case: %w", err)
	}

	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for assignment use case: %w", err)
	}

	assignmentRepo, err := c.AssignmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment repository for assignment use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for assignment use case: %w", err)
	}

	cache, err := c.PermissionCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission cache for assignment use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for assignment use case: %w", err)
	}

	return rbacUseCase.NewAssignmentUseCase(
		txManager,
		roleRepo,
		assignmentRepo,
		userRepo,
		cache,
		recorder,
		c.config.RoleReviewInterval,
		c.config.RoleReviewLeadWindow,
		c.Logger(),
	), nil
}

func (c *Container) initRoleHandler(ctx context.Context) (*rbacHTTP.RoleHandler, error) {
	roleUseCase, err := c.RoleUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get role use case for role handler: %w", err)
	}

	roleGraph, err := c.RoleGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get role graph for role handler: %w", err)
	}

	return rbacHTTP.NewRoleHandler(roleUseCase, roleGraph, c.Logger()), nil
}

func (c *Container) initAssignmentHandler(ctx context.Context) (*rbacHTTP.AssignmentHandler, error) {
	assignmentUseCase, err := c.AssignmentUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment use case for assignment handler: %w", err)
	}
	return rbacHTTP.NewAssignmentHandler(assignmentUseCase, c.Logger()), nil
}

// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	abacHTTP "github.com/allisson/accessgate/internal/abac/http"
	abacRepository "github.com/allisson/accessgate/internal/abac/repository"
	abacService "github.com/allisson/accessgate/internal/abac/service"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	auditHTTP "github.com/allisson/accessgate/internal/audit/http"
	auditRepository "github.com/allisson/accessgate/internal/audit/repository"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/config"
	dacHTTP "github.com/allisson/accessgate/internal/dac/http"
	dacRepository "github.com/allisson/accessgate/internal/dac/repository"
	dacUseCase "github.com/allisson/accessgate/internal/dac/usecase"
	"github.com/allisson/accessgate/internal/database"
	decisionHTTP "github.com/allisson/accessgate/internal/decision/http"
	decisionUseCase "github.com/allisson/accessgate/internal/decision/usecase"
	"github.com/allisson/accessgate/internal/http"
	macHTTP "github.com/allisson/accessgate/internal/mac/http"
	macUseCase "github.com/allisson/accessgate/internal/mac/usecase"
	"github.com/allisson/accessgate/internal/metrics"
	rbacHTTP "github.com/allisson/accessgate/internal/rbac/http"
	rbacRepository "github.com/allisson/accessgate/internal/rbac/repository"
	rbacUseCase "github.com/allisson/accessgate/internal/rbac/usecase"
	resourceHTTP "github.com/allisson/accessgate/internal/resource/http"
	resourceRepository "github.com/allisson/accessgate/internal/resource/repository"
	resourceUseCase "github.com/allisson/accessgate/internal/resource/usecase"
	rubacHTTP "github.com/allisson/accessgate/internal/rubac/http"
	rubacRepository "github.com/allisson/accessgate/internal/rubac/repository"
	rubacUseCase "github.com/allisson/accessgate/internal/rubac/usecase"
	"github.com/allisson/accessgate/internal/sweeper"
	userHTTP "github.com/allisson/accessgate/internal/user/http"
	userRepository "github.com/allisson/accessgate/internal/user/repository"
	userUseCase "github.com/allisson/accessgate/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	redisClient     *redis.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Repositories
	userRepository       *userRepository.SQLUserRepository
	resourceRepository   *resourceRepository.SQLResourceRepository
	roleRepository       *rbacRepository.SQLRoleRepository
	permissionRepository *rbacRepository.SQLPermissionRepository
	assignmentRepository *rbacRepository.SQLAssignmentRepository
	shareRepository      *dacRepository.SQLShareRepository
	ruleRepository       *rubacRepository.SQLRuleRepository
	policyRepository     *abacRepository.SQLPolicyRepository
	auditLogRepository   *auditRepository.SQLAuditLogRepository

	// Services
	permissionCache rbacUseCase.PermissionCache
	classifier      *abacService.Classifier

	// Use Cases
	auditLogUseCase   auditUseCase.AuditLogUseCase
	userUseCase       userUseCase.UserUseCase
	resourceUseCase   resourceUseCase.ResourceUseCase
	roleGraph         rbacUseCase.RoleGraph
	roleUseCase       rbacUseCase.RoleUseCase
	assignmentUseCase rbacUseCase.AssignmentUseCase
	labelUseCase      macUseCase.LabelUseCase
	shareUseCase      dacUseCase.ShareUseCase
	ruleUseCase       rubacUseCase.RuleUseCase
	policyUseCase     abacUseCase.PolicyUseCase
	decisionUseCase   decisionUseCase.DecisionUseCase

	// HTTP Handlers
	auditLogHandler   *auditHTTP.AuditLogHandler
	userHandler       *userHTTP.UserHandler
	resourceHandler   *resourceHTTP.ResourceHandler
	roleHandler       *rbacHTTP.RoleHandler
	assignmentHandler *rbacHTTP.AssignmentHandler
	labelHandler      *macHTTP.LabelHandler
	shareHandler      *dacHTTP.ShareHandler
	ruleHandler       *rubacHTTP.RuleHandler
	policyHandler     *abacHTTP.PolicyHandler
	decisionHandler   *decisionHTTP.DecisionHandler

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	sweeper       *sweeper.Sweeper

	// Initialization flags and mutex for thread-safety
	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	redisClientInit          sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	txManagerInit            sync.Once
	userRepositoryInit       sync.Once
	resourceRepositoryInit   sync.Once
	roleRepositoryInit       sync.Once
	permissionRepositoryInit sync.Once
	assignmentRepositoryInit sync.Once
	shareRepositoryInit      sync.Once
	ruleRepositoryInit       sync.Once
	policyRepositoryInit     sync.Once
	auditLogRepositoryInit   sync.Once
	permissionCacheInit      sync.Once
	classifierInit           sync.Once
	auditLogUseCaseInit      sync.Once
	userUseCaseInit          sync.Once
	resourceUseCaseInit      sync.Once
	roleGraphInit            sync.Once
	roleUseCaseInit          sync.Once
	assignmentUseCaseInit    sync.Once
	labelUseCaseInit         sync.Once
	shareUseCaseInit         sync.Once
	ruleUseCaseInit          sync.Once
	policyUseCaseInit        sync.Once
	decisionUseCaseInit      sync.Once
	auditLogHandlerInit      sync.Once
	userHandlerInit          sync.Once
	resourceHandlerInit      sync.Once
	roleHandlerInit          sync.Once
	assignmentHandlerInit    sync.Once
	labelHandlerInit         sync.Once
	shareHandlerInit         sync.Once
	ruleHandlerInit          sync.Once
	policyHandlerInit        sync.Once
	decisionHandlerInit      sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	sweeperInit              sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// RedisClient returns the Redis client, or nil when REDIS_URL is not configured.
func (c *Container) RedisClient(ctx context.Context) (*redis.Client, error) {
	var err error
	c.redisClientInit.Do(func() {
		c.redisClient, err = c.initRedisClient(ctx)
		if err != nil {
			c.initErrors["redisClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server with every route mounted.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Sweeper returns the background worker expiring assignments and share grants.
func (c *Container) Sweeper(ctx context.Context) (*sweeper.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper(ctx)
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the Prometheus-backed meter provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder, falling back to a no-op
// implementation when metrics are disabled.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server and mounts every handler.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	handlers, err := c.handlers(ctx)
	if err != nil {
		return nil, err
	}

	decisions, err := c.DecisionUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision use case for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(ctx, c.config, handlers, decisions, provider, c.config.MetricsNamespace)

	return server, nil
}

// handlers collects every route handler for the HTTP server.
func (c *Container) handlers(ctx context.Context) (http.Handlers, error) {
	var (
		h   http.Handlers
		err error
	)

	if h.Decision, err = c.DecisionHandler(ctx); err != nil {
		return h, fmt.Errorf("failed to get decision handler: %w", err)
	}
	if h.Users, err = c.UserHandler(ctx); err != nil {
		return h, fmt.Errorf("failed to get user handler: %w", err)
	}
	if h.Roles, err = c.RoleHandler(ctx); err != nil {
		return h, fmt.Errorf("failed to get role handler: %w", err)
	}
	if h.Assignments, err = c.AssignmentHandler(ctx); err != nil {
		return h, fmt.Errorf("failed to get assignment handler: %w", err)
	}
	if h.Resources, err = c.ResourceHandler(); err != nil {
		return h, fmt.Errorf("failed to get resource handler: %w", err)
	}
	if h.Shares, err = c.ShareHandler(); err != nil {
		return h, fmt.Errorf("failed to get share handler: %w", err)
	}
	if h.Labels, err = c.LabelHandler(); err != nil {
		return h, fmt.Errorf("failed to get label handler: %w", err)
	}
	if h.Policies, err = c.PolicyHandler(); err != nil {
		return h, fmt.Errorf("failed to get policy handler: %w", err)
	}
	if h.Rules, err = c.RuleHandler(); err != nil {
		return h, fmt.Errorf("failed to get rule handler: %w", err)
	}
	if h.AuditLogs, err = c.AuditLogHandler(); err != nil {
		return h, fmt.Errorf("failed to get audit log handler: %w", err)
	}

	return h, nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// initSweeper creates the expiry sweeper over the assignment and share use cases.
func (c *Container) initSweeper(ctx context.Context) (*sweeper.Sweeper, error) {
	assignments, err := c.AssignmentUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment use case for sweeper: %w", err)
	}

	shares, err := c.ShareUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get share use case for sweeper: %w", err)
	}

	return sweeper.NewSweeper(c.config.SweepInterval, assignments, shares, c.Logger()), nil
}

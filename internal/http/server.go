// Package http provides the HTTP server, its middleware stack and the route table.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	abacHTTP "github.com/allisson/accessgate/internal/abac/http"
	auditHTTP "github.com/allisson/accessgate/internal/audit/http"
	"github.com/allisson/accessgate/internal/config"
	dacHTTP "github.com/allisson/accessgate/internal/dac/http"
	decisionHTTP "github.com/allisson/accessgate/internal/decision/http"
	decisionUseCase "github.com/allisson/accessgate/internal/decision/usecase"
	macHTTP "github.com/allisson/accessgate/internal/mac/http"
	"github.com/allisson/accessgate/internal/metrics"
	rbacHTTP "github.com/allisson/accessgate/internal/rbac/http"
	resourceHTTP "github.com/allisson/accessgate/internal/resource/http"
	rubacHTTP "github.com/allisson/accessgate/internal/rubac/http"
	userHTTP "github.com/allisson/accessgate/internal/user/http"
)

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Decision    *decisionHTTP.DecisionHandler
	Users       *userHTTP.UserHandler
	Roles       *rbacHTTP.RoleHandler
	Assignments *rbacHTTP.AssignmentHandler
	Resources   *resourceHTTP.ResourceHandler
	Shares      *dacHTTP.ShareHandler
	Labels      *macHTTP.LabelHandler
	Policies    *abacHTTP.PolicyHandler
	Rules       *rubacHTTP.RuleHandler
	AuditLogs   *auditHTTP.AuditLogHandler
}

// NewServer creates a new HTTP server. Routes are mounted by SetupRouter.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the route table. Every /v1 route requires the gateway principal
// header and, apart from the decision endpoint itself, is protected by the orchestrator
// with the permission listed next to it.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	handlers Handlers,
	decisions decisionUseCase.DecisionUseCase,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(SecurityHeadersMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(
		cfg.CORSEnabled, cfg.CORSAllowOrigins, cfg.PrincipalHeader, s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(userHTTP.PrincipalMiddleware(cfg.PrincipalHeader, s.logger))
	if cfg.RateLimitEnabled {
		v1.Use(decisionHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	require := func(permission string) gin.HandlerFunc {
		return decisionHTTP.RequireAccess(decisions, permission, s.logger)
	}

	v1.POST("/decisions", require(""), handlers.Decision.CheckHandler)

	users := v1.Group("/users")
	{
		users.POST("", require("user:write"), handlers.Users.CreateHandler)
		users.GET("", require("user:read"), handlers.Users.ListHandler)
		users.GET("/:id", require("user:read"), handlers.Users.GetHandler)
		users.PUT("/:id", require("user:write"), handlers.Users.UpdateHandler)
		users.DELETE("/:id", require("user:delete"), handlers.Users.DeleteHandler)
		users.PUT("/:id/clearance", require("clearance:write"), handlers.Labels.GrantClearanceHandler)
		users.GET("/:id/permissions", require("permission:read"), handlers.Roles.GetUserPermissionsHandler)
		users.PUT("/:id/permissions", require("permission:write"), handlers.Roles.SetUserPermissionHandler)
		users.DELETE("/:id/permissions/:resource/:action", require("permission:write"),
			handlers.Roles.RemoveUserPermissionHandler)
		users.GET("/:id/shares", require(""), handlers.Shares.ListByPrincipalHandler)
	}

	roles := v1.Group("/roles")
	{
		roles.POST("", require("role:write"), handlers.Roles.CreateRoleHandler)
		roles.GET("", require("role:read"), handlers.Roles.ListRolesHandler)
		roles.GET("/:id", require("role:read"), handlers.Roles.GetRoleHandler)
		roles.PUT("/:id", require("role:write"), handlers.Roles.UpdateRoleHandler)
		roles.DELETE("/:id", require("role:delete"), handlers.Roles.DeleteRoleHandler)
		roles.GET("/:id/permissions", require("role:read"), handlers.Roles.GetRolePermissionsHandler)
		roles.PUT("/:id/permissions", require("role:write"), handlers.Roles.SetRolePermissionHandler)
		roles.DELETE("/:id/permissions/:resource/:action", require("role:write"),
			handlers.Roles.RemoveRolePermissionHandler)
	}

	permissions := v1.Group("/permissions")
	{
		permissions.POST("", require("permission:write"), handlers.Roles.CreatePermissionHandler)
		permissions.GET("", require("permission:read"), handlers.Roles.ListPermissionsHandler)
	}

	assignments := v1.Group("/assignments")
	{
		assignments.POST("", require("assignment:write"), handlers.Assignments.AssignHandler)
		assignments.GET("", require("assignment:read"), handlers.Assignments.ListHandler)
		assignments.GET("/:id", require("assignment:read"), handlers.Assignments.GetHandler)
		assignments.POST("/:id/revoke", require("assignment:write"), handlers.Assignments.RevokeHandler)
		assignments.POST("/:id/review", require("assignment:review"), handlers.Assignments.ReviewHandler)
	}
	v1.GET("/reviews/due", require("assignment:review"), handlers.Assignments.DueForReviewHandler)

	// Ownership checks inside the share use case decide who may grant and revoke.
	resources := v1.Group("/resources")
	{
		resources.POST("", require("resource:write"), handlers.Resources.RegisterHandler)
		resources.GET("", require("resource:read"), handlers.Resources.ListHandler)
		resources.GET("/:id", require("resource:read"), handlers.Resources.GetHandler)
		resources.GET("/:id/attributes", require("resource:read"), handlers.Resources.ListAttributesHandler)
		resources.PUT("/:id/attributes/:name", require("resource:write"), handlers.Resources.SetAttributeHandler)
		resources.DELETE("/:id/attributes/:name", require("resource:write"),
			handlers.Resources.DeleteAttributeHandler)
		resources.POST("/:id/classify", require("label:write"), handlers.Labels.ClassifyHandler)
		resources.POST("/:id/declassify", require("label:write"), handlers.Labels.DeclassifyHandler)
		resources.POST("/:id/auto-classify", require("label:write"), handlers.Labels.AutoClassifyHandler)
		resources.POST("/:id/shares", require(""), handlers.Shares.GrantHandler)
		resources.GET("/:id/shares", require(""), handlers.Shares.ListByResourceHandler)
		resources.GET("/:id/shares/check", require(""), handlers.Shares.CheckHandler)
	}
	v1.POST("/shares/:id/revoke", require(""), handlers.Shares.RevokeHandler)
	v1.POST("/classify", require("resource:read"), handlers.Labels.ClassifyTextHandler)

	policies := v1.Group("/policies")
	{
		policies.POST("", require("policy:write"), handlers.Policies.CreateHandler)
		policies.GET("", require("policy:read"), handlers.Policies.ListHandler)
		policies.POST("/evaluate", require("policy:read"), handlers.Policies.EvaluateBoundHandler)
		policies.GET("/:id", require("policy:read"), handlers.Policies.GetHandler)
		policies.PUT("/:id", require("policy:write"), handlers.Policies.UpdateHandler)
		policies.DELETE("/:id", require("policy:delete"), handlers.Policies.DeleteHandler)
		policies.POST("/:id/evaluate", require("policy:read"), handlers.Policies.EvaluateHandler)
	}

	rules := v1.Group("/rules")
	{
		rules.POST("", require("rule:write"), handlers.Rules.CreateHandler)
		rules.GET("", require("rule:read"), handlers.Rules.ListHandler)
		rules.POST("/check", require("rule:read"), handlers.Rules.CheckHandler)
		rules.GET("/:id", require("rule:read"), handlers.Rules.GetHandler)
		rules.PUT("/:id", require("rule:write"), handlers.Rules.UpdateHandler)
		rules.DELETE("/:id", require("rule:delete"), handlers.Rules.DeleteHandler)
		rules.POST("/:id/evaluate", require("rule:read"), handlers.Rules.EvaluateHandler)
	}

	v1.GET("/audit-logs", require("audit:read"), handlers.AuditLogs.ListHandler)

	s.router = router
	s.server.Handler = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.server.Handler == nil && s.router != nil {
		s.server.Handler = s.router
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports that the process is up.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.db.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/accessgate/internal/decision/domain"
	decisionUseCase "github.com/allisson/accessgate/internal/decision/usecase"
	"github.com/allisson/accessgate/internal/httputil"
	userHTTP "github.com/allisson/accessgate/internal/user/http"
)

// RequireAccess protects a route with the orchestrator's RBAC checks: the route pattern
// must be on the principal's allow-list and, when permission is not empty, the principal
// must hold it ("resource:action").
//
// MUST be used after PrincipalMiddleware.
//
// Returns:
//   - 401 Unauthorized: Principal unknown or inactive
//   - 403 Forbidden: Denied (body carries the decision)
//   - Continues: Access granted
func RequireAccess(uc decisionUseCase.DecisionUseCase, permission string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		principalID, _ := userHTTP.GetPrincipalID(ctx)

		result, err := uc.CheckAccess(ctx, principalID, domain.Options{
			CheckRBAC:          true,
			RoutePath:          c.FullPath(),
			RequiredPermission: permission,
		})
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		if !result.Allowed {
			logger.Debug("route access denied",
				slog.String("principal_id", principalID.String()),
				slog.String("route", c.FullPath()),
				slog.String("permission", permission),
			)
			c.JSON(http.StatusForbidden, httputil.ErrorResponse{
				Error:   "forbidden",
				Message: result.Err().Error(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

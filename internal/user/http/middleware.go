package http

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/httputil"
)

// PrincipalMiddleware resolves the caller from a header set by the trusted gateway in front
// of the service. The principal id is stored in the request context together with the
// audit actor and request id. Whether the principal exists and is active is decided later
// by the orchestrator.
//
// Error handling:
//   - Missing header → 401 Unauthorized
//   - Header that is not a UUID → 401 Unauthorized
func PrincipalMiddleware(header string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := strings.TrimSpace(c.GetHeader(header))
		if value == "" {
			logger.Debug("principal resolution failed: missing header", slog.String("header", header))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		principalID, err := uuid.Parse(value)
		if err != nil || principalID == uuid.Nil {
			logger.Debug("principal resolution failed: malformed principal id", slog.String("value", value))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		ctx := WithPrincipalID(c.Request.Context(), principalID)
		ctx = auditDomain.WithActorID(ctx, principalID)
		if id := requestid.Get(c); id != "" {
			ctx = auditDomain.WithRequestID(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

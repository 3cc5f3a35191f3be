// Package http provides HTTP handlers for the audit trail.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	"github.com/allisson/accessgate/internal/audit/http/dto"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler retrieves audit logs newest first with pagination and optional filtering.
// GET /v1/audit-logs?offset=0&limit=50&actor_id=...&outcome=DENIED&resource_type=document
// &created_at_from=2026-02-01T00:00:00Z&created_at_to=2026-02-14T23:59:59Z
// Timestamps are RFC3339, converted to UTC, and both boundaries are inclusive.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	auditLogs, err := h.auditLogUseCase.List(c.Request.Context(), offset, limit, filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(auditLogs))
}

func parseFilter(c *gin.Context) (auditDomain.ListFilter, error) {
	var filter auditDomain.ListFilter

	if value := c.Query("actor_id"); value != "" {
		actorID, err := uuid.Parse(value)
		if err != nil {
			return filter, fmt.Errorf("invalid actor_id format: must be a valid UUID")
		}
		filter.ActorID = &actorID
	}

	if value := c.Query("outcome"); value != "" {
		outcome := auditDomain.Outcome(strings.ToUpper(value))
		switch outcome {
		case auditDomain.OutcomeAllowed, auditDomain.OutcomeDenied, auditDomain.OutcomeApplied:
			filter.Outcome = outcome
		default:
			return filter, fmt.Errorf("invalid outcome: must be one of ALLOWED, DENIED, APPLIED")
		}
	}

	filter.ResourceType = c.Query("resource_type")

	from, err := parseTime(c, "created_at_from")
	if err != nil {
		return filter, err
	}
	to, err := parseTime(c, "created_at_to")
	if err != nil {
		return filter, err
	}
	if from != nil && to != nil && from.After(*to) {
		return filter, fmt.Errorf("created_at_from must be before or equal to created_at_to")
	}
	filter.CreatedAtFrom = from
	filter.CreatedAtTo = to

	return filter, nil
}

func parseTime(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)", name)
	}
	utc := parsed.UTC()
	return &utc, nil
}

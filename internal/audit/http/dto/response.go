// Package dto provides request and response types for the audit log API.
package dto

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
)

// AuditLogResponse represents an audit log entry in API responses.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	RequestID    string         `json:"request_id"`
	ActorID      *string        `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Outcome      string         `json:"outcome"`
	Engine       string         `json:"engine,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Label        string         `json:"label"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Signature    string         `json:"signature,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// MapAuditLogToResponse converts a domain audit log to an API response. Unauthenticated
// entries are returned with a null actor.
func MapAuditLogToResponse(auditLog *auditDomain.AuditLog) AuditLogResponse {
	response := AuditLogResponse{
		ID:           auditLog.ID.String(),
		RequestID:    auditLog.RequestID,
		Action:       auditLog.Action,
		ResourceType: auditLog.ResourceType,
		ResourceID:   auditLog.ResourceID,
		Outcome:      string(auditLog.Outcome),
		Engine:       auditLog.Engine,
		Reason:       auditLog.Reason,
		Label:        string(auditLog.Label),
		Metadata:     auditLog.Metadata,
		Signature:    hex.EncodeToString(auditLog.Signature),
		CreatedAt:    auditLog.CreatedAt,
	}
	if auditLog.ActorID != uuid.Nil {
		actorID := auditLog.ActorID.String()
		response.ActorID = &actorID
	}
	return response
}

// ListAuditLogsResponse represents a paginated list of audit logs in API responses.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToListResponse converts a slice of domain audit logs to a list API response.
func MapAuditLogsToListResponse(auditLogs []*auditDomain.AuditLog) ListAuditLogsResponse {
	data := make([]AuditLogResponse, 0, len(auditLogs))
	for _, auditLog := range auditLogs {
		data = append(data, MapAuditLogToResponse(auditLog))
	}
	return ListAuditLogsResponse{Data: data}
}

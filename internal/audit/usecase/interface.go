// Package usecase implements recording, listing, retention and verification of audit logs.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
)

// AuditLogRepository defines persistence operations for audit logs.
type AuditLogRepository interface {
	// Create stores a new audit log entry.
	Create(ctx context.Context, auditLog *auditDomain.AuditLog) error

	// List returns entries ordered newest first.
	List(
		ctx context.Context,
		offset, limit int,
		filter auditDomain.ListFilter,
	) ([]*auditDomain.AuditLog, error)

	// ListByRange returns every entry created within [start, end] ordered oldest first.
	ListByRange(ctx context.Context, start, end time.Time) ([]*auditDomain.AuditLog, error)

	// DeleteOlderThan removes (or counts, when dryRun is set) entries created before olderThan.
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// Recorder is the narrow dependency the access-control use cases hold to emit audit entries.
type Recorder interface {
	Record(ctx context.Context, auditLog *auditDomain.AuditLog) error
}

// AuditLogUseCase defines the audit log operations exposed to handlers and commands.
type AuditLogUseCase interface {
	Recorder

	// List retrieves entries newest first with pagination and optional filtering.
	List(
		ctx context.Context,
		offset, limit int,
		filter auditDomain.ListFilter,
	) ([]*auditDomain.AuditLog, error)

	// DeleteOlderThan removes entries older than the given number of days.
	DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error)

	// VerifyBatch checks the signature of every entry in the time range.
	VerifyBatch(ctx context.Context, start, end time.Time) (*auditDomain.VerificationReport, error)
}

// Package repository implements audit log persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

const auditLogColumns = `id, request_id, actor_id, action, resource_type, resource_id, outcome, engine, reason, label, metadata, signature, created_at`

// SQLAuditLogRepository implements AuditLog persistence. Queries are written with "?"
// placeholders and rebound for the configured driver.
type SQLAuditLogRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new audit log. Nil metadata and an anonymous actor are stored as NULL.
func (r *SQLAuditLogRepository) Create(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, r.db)

	var metadataJSON []byte
	var err error

	if auditLog.Metadata != nil {
		metadataJSON, err = json.Marshal(auditLog.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	actorID := uuid.NullUUID{UUID: auditLog.ActorID, Valid: auditLog.ActorID != uuid.Nil}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		auditLog.ID,
		auditLog.RequestID,
		actorID,
		auditLog.Action,
		auditLog.ResourceType,
		auditLog.ResourceID,
		string(auditLog.Outcome),
		auditLog.Engine,
		auditLog.Reason,
		string(auditLog.Label),
		metadataJSON,
		auditLog.Signature,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// List retrieves audit logs newest first with pagination and optional filters.
func (r *SQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, r.db)

	conditions := make([]string, 0, 5)
	args := make([]any, 0, 7)

	if filter.ActorID != nil {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.CreatedAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.CreatedAtFrom.UTC())
	}
	if filter.CreatedAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.CreatedAtTo.UTC())
	}

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogs(rows)
}

// ListByRange retrieves every audit log created within [start, end] oldest first.
func (r *SQLAuditLogRepository) ListByRange(
	ctx context.Context,
	start, end time.Time,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs
			  WHERE created_at >= ? AND created_at <= ?
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), start.UTC(), end.UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs by range")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogs(rows)
}

// DeleteOlderThan deletes audit logs created before olderThan, or only counts them in
// dry-run mode.
func (r *SQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	if dryRun {
		var count int64
		query := `SELECT COUNT(*) FROM audit_logs WHERE created_at < ?`
		if err := querier.QueryRowContext(ctx, database.Rebind(r.driver, query), olderThan.UTC()).
			Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count audit logs")
		}
		return count, nil
	}

	query := `DELETE FROM audit_logs WHERE created_at < ?`
	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, query), olderThan.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}

	return count, nil
}

func scanAuditLogs(rows *sql.Rows) ([]*auditDomain.AuditLog, error) {
	auditLogs := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog auditDomain.AuditLog
		var actorID uuid.NullUUID
		var outcome, label string
		var metadataJSON []byte

		err := rows.Scan(
			&auditLog.ID,
			&auditLog.RequestID,
			&actorID,
			&auditLog.Action,
			&auditLog.ResourceType,
			&auditLog.ResourceID,
			&outcome,
			&auditLog.Engine,
			&auditLog.Reason,
			&label,
			&metadataJSON,
			&auditLog.Signature,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		if actorID.Valid {
			auditLog.ActorID = actorID.UUID
		}
		auditLog.Outcome = auditDomain.Outcome(outcome)
		auditLog.Label = macDomain.Level(label)

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &auditLog.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
			}
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return auditLogs, nil
}

// NewSQLAuditLogRepository creates a new AuditLog repository for the given driver.
func NewSQLAuditLogRepository(db *sql.DB, driver string) *SQLAuditLogRepository {
	return &SQLAuditLogRepository{db: db, driver: driver}
}

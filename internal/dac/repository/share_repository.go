// Package repository persists share grants for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
)

const selectGrant = `SELECT id, resource_id, principal_id, permissions, granted_by, expires_at, active,
		revoked_reason, revoked_at, created_at, updated_at
	FROM share_grants`

type scanner interface {
	Scan(dest ...any) error
}

// SQLShareRepository persists share grants.
type SQLShareRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new grant. A second row for the same (resource, principal) is a conflict.
func (r *SQLShareRepository) Create(ctx context.Context, grant *domain.ShareGrant) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO share_grants (id, resource_id, principal_id, permissions, granted_by, expires_at, active,
			  revoked_reason, revoked_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		grant.ID,
		grant.ResourceID,
		grant.PrincipalID,
		int(grant.Permissions),
		nullUUID(grant.GrantedBy),
		nullTime(grant.ExpiresAt),
		grant.Active,
		grant.RevokedReason,
		nullTime(grant.RevokedAt),
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "share grant already exists")
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "resource or principal does not exist")
		}
		return apperrors.Wrap(err, "failed to create share grant")
	}

	return nil
}

// Update writes every mutable field of a grant.
func (r *SQLShareRepository) Update(ctx context.Context, grant *domain.ShareGrant) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE share_grants SET permissions = ?, granted_by = ?, expires_at = ?, active = ?,
			  revoked_reason = ?, revoked_at = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		int(grant.Permissions),
		nullUUID(grant.GrantedBy),
		nullTime(grant.ExpiresAt),
		grant.Active,
		grant.RevokedReason,
		nullTime(grant.RevokedAt),
		grant.UpdatedAt,
		grant.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update share grant")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrGrantNotFound
	}

	return nil
}

// GetByID retrieves a grant by id.
func (r *SQLShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareGrant, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectGrant+` WHERE id = ?`), id)
	return scanGrant(row)
}

// GetByResourceAndPrincipal retrieves the single grant row of a (resource, principal) pair.
func (r *SQLShareRepository) GetByResourceAndPrincipal(
	ctx context.Context,
	resourceID, principalID uuid.UUID,
) (*domain.ShareGrant, error) {
	querier := database.GetTx(ctx, r.db)
	query := selectGrant + ` WHERE resource_id = ? AND principal_id = ?`
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, query), resourceID, principalID)
	return scanGrant(row)
}

// ListByResource retrieves every grant of a resource, active or not.
func (r *SQLShareRepository) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.ShareGrant, error) {
	return r.query(ctx, selectGrant+` WHERE resource_id = ? ORDER BY created_at ASC`, resourceID)
}

// ListByPrincipal retrieves the active grants held by a principal.
func (r *SQLShareRepository) ListByPrincipal(
	ctx context.Context,
	principalID uuid.UUID,
) ([]*domain.ShareGrant, error) {
	return r.query(ctx, selectGrant+` WHERE principal_id = ? AND active = ? ORDER BY created_at ASC`,
		principalID, true)
}

// ListExpired retrieves active grants whose expiry is at or before now.
func (r *SQLShareRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.ShareGrant, error) {
	query := selectGrant + ` WHERE active = ? AND expires_at IS NOT NULL AND expires_at <= ?
			  ORDER BY expires_at ASC LIMIT ?`
	return r.query(ctx, query, true, now, limit)
}

func (r *SQLShareRepository) query(ctx context.Context, query string, args ...any) ([]*domain.ShareGrant, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list share grants")
	}
	defer func() {
		_ = rows.Close()
	}()

	grants := make([]*domain.ShareGrant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate share grants")
	}

	return grants, nil
}

func scanGrant(row scanner) (*domain.ShareGrant, error) {
	var grant domain.ShareGrant
	var permissions int
	var grantedBy uuid.NullUUID
	var expiresAt, revokedAt sql.NullTime

	err := row.Scan(
		&grant.ID,
		&grant.ResourceID,
		&grant.PrincipalID,
		&permissions,
		&grantedBy,
		&expiresAt,
		&grant.Active,
		&grant.RevokedReason,
		&revokedAt,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan share grant")
	}

	grant.Permissions = domain.Permission(permissions)
	if grantedBy.Valid {
		id := grantedBy.UUID
		grant.GrantedBy = &id
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		grant.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		grant.RevokedAt = &t
	}

	return &grant, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// NewSQLShareRepository creates a new share grant repository for the given driver.
func NewSQLShareRepository(db *sql.DB, driver string) *SQLShareRepository {
	return &SQLShareRepository{db: db, driver: driver}
}

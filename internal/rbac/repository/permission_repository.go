package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/rbac/domain"
)

const selectPermission = `SELECT id, resource, action, description, created_at FROM permissions`

// SQLPermissionRepository persists permissions and direct per-user entries.
type SQLPermissionRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new permission. A duplicate (resource, action) pair returns ErrConflict.
func (r *SQLPermissionRepository) Create(ctx context.Context, permission *domain.Permission) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO permissions (id, resource, action, description, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		permission.ID,
		permission.Resource,
		permission.Action,
		permission.Description,
		permission.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "permission already exists")
		}
		return apperrors.Wrap(err, "failed to create permission")
	}

	return nil
}

// GetByID retrieves a permission by id.
func (r *SQLPermissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectPermission+` WHERE id = ?`), id)
	return scanPermission(row)
}

// GetByKey retrieves a permission by its (resource, action) pair.
func (r *SQLPermissionRepository) GetByKey(ctx context.Context, key domain.PermissionKey) (*domain.Permission, error) {
	querier := database.GetTx(ctx, r.db)
	query := selectPermission + ` WHERE resource = ? AND action = ?`
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, query), key.Resource, key.Action)
	return scanPermission(row)
}

// List retrieves permissions ordered by resource then action.
func (r *SQLPermissionRepository) List(ctx context.Context, offset, limit int) ([]*domain.Permission, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectPermission + ` ORDER BY resource ASC, action ASC LIMIT ? OFFSET ?`
	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permissions")
	}
	defer func() {
		_ = rows.Close()
	}()

	permissions := make([]*domain.Permission, 0)
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate permissions")
	}

	return permissions, nil
}

// ListUserPermissions retrieves the direct entries of a principal, expired ones included.
func (r *SQLPermissionRepository) ListUserPermissions(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserPermission, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT up.user_id, up.permission_id, p.resource, p.action, up.granted, up.expires_at, up.created_at
			  FROM user_permissions up
			  JOIN permissions p ON p.id = up.permission_id
			  WHERE up.user_id = ?
			  ORDER BY p.resource ASC, p.action ASC`

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list user permissions")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*domain.UserPermission, 0)
	for rows.Next() {
		var entry domain.UserPermission
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&entry.UserID,
			&entry.PermissionID,
			&entry.Resource,
			&entry.Action,
			&entry.Granted,
			&expiresAt,
			&entry.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user permission")
		}
		entry.ExpiresAt = timePtr(expiresAt)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate user permissions")
	}

	return entries, nil
}

// SetUserPermission creates or replaces a principal's direct entry for a permission.
func (r *SQLPermissionRepository) SetUserPermission(ctx context.Context, entry *domain.UserPermission) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO user_permissions (user_id, permission_id, granted, expires_at, created_at)
			  VALUES (?, ?, ?, ?, ?) ` + database.UpsertClause(
		r.driver,
		[]string{"user_id", "permission_id"},
		[]string{"granted", "expires_at"},
	)

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		entry.UserID,
		entry.PermissionID,
		entry.Granted,
		nullTime(entry.ExpiresAt),
		entry.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrNotFound, "user or permission not found")
		}
		return apperrors.Wrap(err, "failed to set user permission")
	}

	return nil
}

// RemoveUserPermission deletes a principal's direct entry for a permission.
func (r *SQLPermissionRepository) RemoveUserPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM user_permissions WHERE user_id = ? AND permission_id = ?`
	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, query), userID, permissionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove user permission")
	}

	return requireAffected(result, domain.ErrPermissionNotFound)
}

func scanPermission(row scanner) (*domain.Permission, error) {
	var permission domain.Permission

	err := row.Scan(
		&permission.ID,
		&permission.Resource,
		&permission.Action,
		&permission.Description,
		&permission.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPermissionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan permission")
	}

	return &permission, nil
}

// NewSQLPermissionRepository creates a new permission repository for the given driver.
func NewSQLPermissionRepository(db *sql.DB, driver string) *SQLPermissionRepository {
	return &SQLPermissionRepository{db: db, driver: driver}
}

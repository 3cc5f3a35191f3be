// Package repository implements persistence for roles, permissions and role assignments.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/rbac/domain"
)

const selectRole = `SELECT id, name, description, level, parent_id, is_system, created_at, updated_at FROM roles`

// SQLRoleRepository persists roles and their permission entries.
type SQLRoleRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new role.
func (r *SQLRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO roles (id, name, description, level, parent_id, is_system, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		role.ID,
		role.Name,
		role.Description,
		role.Level,
		nullUUID(role.ParentID),
		role.IsSystem,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrRoleAlreadyExists
		}
		if database.IsForeignKeyViolation(err) {
			return domain.ErrRoleNotFound
		}
		return apperrors.Wrap(err, "failed to create role")
	}

	return nil
}

// Update replaces the mutable fields of a role.
func (r *SQLRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE roles SET name = ?, description = ?, level = ?, parent_id = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		role.Name,
		role.Description,
		role.Level,
		nullUUID(role.ParentID),
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrRoleAlreadyExists
		}
		if database.IsForeignKeyViolation(err) {
			return domain.ErrRoleNotFound
		}
		return apperrors.Wrap(err, "failed to update role")
	}

	return requireAffected(result, domain.ErrRoleNotFound)
}

// Delete removes a role. Returns ErrRoleInUse while children, users or assignments
// still reference it.
func (r *SQLRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	if _, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, `DELETE FROM role_permissions WHERE role_id = ?`),
		id,
	); err != nil {
		return apperrors.Wrap(err, "failed to delete role permissions")
	}

	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, `DELETE FROM roles WHERE id = ?`), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return domain.ErrRoleInUse
		}
		return apperrors.Wrap(err, "failed to delete role")
	}

	return requireAffected(result, domain.ErrRoleNotFound)
}

// GetByID retrieves a role by id.
func (r *SQLRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectRole+` WHERE id = ?`), id)
	return scanRole(row)
}

// GetByName retrieves a role by its normalized name.
func (r *SQLRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectRole+` WHERE name = ?`), name)
	return scanRole(row)
}

// List retrieves roles ordered by level then name.
func (r *SQLRoleRepository) List(ctx context.Context, offset, limit int) ([]*domain.Role, error) {
	query := selectRole + ` ORDER BY level DESC, name ASC LIMIT ? OFFSET ?`
	return r.queryRoles(ctx, query, limit, offset)
}

// ListAll retrieves every role. The role graph loads them into an id-indexed arena.
func (r *SQLRoleRepository) ListAll(ctx context.Context) ([]*domain.Role, error) {
	return r.queryRoles(ctx, selectRole+` ORDER BY name ASC`)
}

func (r *SQLRoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]*domain.Role, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list roles")
	}
	defer func() {
		_ = rows.Close()
	}()

	roles := make([]*domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate roles")
	}

	return roles, nil
}

// ListRolePermissions retrieves the permission entries of the given roles.
func (r *SQLRoleRepository) ListRolePermissions(
	ctx context.Context,
	roleIDs ...uuid.UUID,
) ([]*domain.RolePermission, error) {
	if len(roleIDs) == 0 {
		return []*domain.RolePermission{}, nil
	}

	querier := database.GetTx(ctx, r.db)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(roleIDs)), ", ")
	query := `SELECT rp.role_id, rp.permission_id, p.resource, p.action, rp.granted, rp.conditions, rp.created_at
			  FROM role_permissions rp
			  JOIN permissions p ON p.id = rp.permission_id
			  WHERE rp.role_id IN (` + placeholders + `)
			  ORDER BY p.resource ASC, p.action ASC`

	args := make([]any, 0, len(roleIDs))
	for _, id := range roleIDs {
		args = append(args, id)
	}

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list role permissions")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*domain.RolePermission, 0)
	for rows.Next() {
		var entry domain.RolePermission
		var conditionsJSON []byte
		if err := rows.Scan(
			&entry.RoleID,
			&entry.PermissionID,
			&entry.Resource,
			&entry.Action,
			&entry.Granted,
			&conditionsJSON,
			&entry.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan role permission")
		}
		if len(conditionsJSON) > 0 {
			if err := json.Unmarshal(conditionsJSON, &entry.Conditions); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal role permission conditions")
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate role permissions")
	}

	return entries, nil
}

// SetRolePermission creates or replaces a role's entry for a permission.
func (r *SQLRoleRepository) SetRolePermission(ctx context.Context, entry *domain.RolePermission) error {
	querier := database.GetTx(ctx, r.db)

	var conditionsJSON []byte
	if entry.Conditions != nil {
		data, err := json.Marshal(entry.Conditions)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal role permission conditions")
		}
		conditionsJSON = data
	}

	query := `INSERT INTO role_permissions (role_id, permission_id, granted, conditions, created_at)
			  VALUES (?, ?, ?, ?, ?) ` + database.UpsertClause(
		r.driver,
		[]string{"role_id", "permission_id"},
		[]string{"granted", "conditions"},
	)

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		entry.RoleID,
		entry.PermissionID,
		entry.Granted,
		conditionsJSON,
		entry.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrNotFound, "role or permission not found")
		}
		return apperrors.Wrap(err, "failed to set role permission")
	}

	return nil
}

// RemoveRolePermission deletes a role's entry for a permission.
func (r *SQLRoleRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM role_permissions WHERE role_id = ? AND permission_id = ?`
	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, query), roleID, permissionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove role permission")
	}

	return requireAffected(result, domain.ErrPermissionNotFound)
}

func scanRole(row scanner) (*domain.Role, error) {
	var role domain.Role
	var parentID uuid.NullUUID

	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.Level,
		&parentID,
		&role.IsSystem,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan role")
	}

	role.ParentID = uuidPtr(parentID)

	return &role, nil
}

// NewSQLRoleRepository creates a new role repository for the given driver.
func NewSQLRoleRepository(db *sql.DB, driver string) *SQLRoleRepository {
	return &SQLRoleRepository{db: db, driver: driver}
}

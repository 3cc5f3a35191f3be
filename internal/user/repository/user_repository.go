// Package repository implements principal persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/user/domain"
)

const selectUser = `SELECT u.id, u.name, u.email, u.role_id, COALESCE(r.name, ''), u.legacy_role,
		u.trusted_subject, u.clearance_level, u.clearance_compartments, u.department, u.attributes,
		u.is_active, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

// SQLUserRepository persists principals. The primary role name is resolved through a join
// so callers never need a second lookup.
type SQLUserRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new user. Returns ErrUserAlreadyExists on a duplicate email.
func (r *SQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	compartments, attributes, err := marshalUserJSON(user)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (id, name, email, role_id, legacy_role, trusted_subject, clearance_level,
			  clearance_compartments, department, attributes, is_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		user.ID,
		user.Name,
		user.Email,
		nullUUID(user.RoleID),
		user.LegacyRole,
		user.TrustedSubject,
		string(user.Clearance.Level),
		compartments,
		user.Department,
		attributes,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "failed to create user")
	}

	return nil
}

// Update persists the mutable profile fields of a user. Clearance is changed only
// through UpdateClearance.
func (r *SQLUserRepository) Update(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	_, attributes, err := marshalUserJSON(user)
	if err != nil {
		return err
	}

	query := `UPDATE users SET name = ?, email = ?, role_id = ?, legacy_role = ?, trusted_subject = ?,
			  department = ?, attributes = ?, is_active = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		user.Name,
		user.Email,
		nullUUID(user.RoleID),
		user.LegacyRole,
		user.TrustedSubject,
		user.Department,
		attributes,
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapWriteError(err, "failed to update user")
	}

	return requireAffected(result, "failed to update user")
}

// UpdateClearance replaces the clearance level and compartments of a user.
func (r *SQLUserRepository) UpdateClearance(ctx context.Context, userID uuid.UUID, clearance macDomain.Label) error {
	querier := database.GetTx(ctx, r.db)

	compartments, err := json.Marshal(clearance.Compartments)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal clearance compartments")
	}

	query := `UPDATE users SET clearance_level = ?, clearance_compartments = ? WHERE id = ?`
	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		string(clearance.Level),
		compartments,
		userID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update user clearance")
	}

	return requireAffected(result, "failed to update user clearance")
}

// ClearPrimaryRole removes the primary role reference when it still points at roleID.
// Returns whether a row changed.
func (r *SQLUserRepository) ClearPrimaryRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET role_id = NULL WHERE id = ? AND role_id = ?`
	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, query), userID, roleID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to clear primary role")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows")
	}

	return rows > 0, nil
}

// GetByID retrieves a user by id. Returns ErrUserNotFound when absent.
func (r *SQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectUser+` WHERE u.id = ?`), id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email. Returns ErrUserNotFound when absent.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectUser+` WHERE u.email = ?`), email)
	return scanUser(row)
}

// List retrieves users ordered by creation time.
func (r *SQLUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectUser + ` ORDER BY u.created_at ASC, u.id ASC LIMIT ? OFFSET ?`
	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	defer func() {
		_ = rows.Close()
	}()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate users")
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var user domain.User
	var roleID uuid.NullUUID
	var level string
	var compartmentsJSON, attributesJSON []byte

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&roleID,
		&user.PrimaryRoleName,
		&user.LegacyRole,
		&user.TrustedSubject,
		&level,
		&compartmentsJSON,
		&user.Department,
		&attributesJSON,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan user")
	}

	if roleID.Valid {
		id := roleID.UUID
		user.RoleID = &id
	}

	var compartments []string
	if len(compartmentsJSON) > 0 {
		if err := json.Unmarshal(compartmentsJSON, &compartments); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal clearance compartments")
		}
	}
	user.Clearance = macDomain.NewLabel(macDomain.Level(level), compartments)

	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &user.Attributes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user attributes")
		}
	}

	return &user, nil
}

func marshalUserJSON(user *domain.User) ([]byte, []byte, error) {
	compartments := user.Clearance.Compartments
	if compartments == nil {
		compartments = macDomain.Compartments{}
	}
	compartmentsJSON, err := json.Marshal(compartments)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal clearance compartments")
	}

	attributes := user.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}
	attributesJSON, err := json.Marshal(attributes)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal user attributes")
	}

	return compartmentsJSON, attributesJSON, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func mapWriteError(err error, message string) error {
	switch {
	case database.IsUniqueViolation(err):
		return domain.ErrUserAlreadyExists
	case database.IsForeignKeyViolation(err):
		return apperrors.Wrap(apperrors.ErrInvalidInput, "referenced role does not exist")
	default:
		return apperrors.Wrap(err, message)
	}
}

func requireAffected(result sql.Result, message string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, message)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// NewSQLUserRepository creates a new user repository for the given driver.
func NewSQLUserRepository(db *sql.DB, driver string) *SQLUserRepository {
	return &SQLUserRepository{db: db, driver: driver}
}

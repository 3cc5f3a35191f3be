package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/rbac/domain"
)

const selectAssignment = `SELECT a.id, a.user_id, a.role_id, r.name, a.status, a.status_reason, a.assigned_by,
		a.expires_at, a.next_review_at, a.last_reviewed_at, a.created_at, a.updated_at
	FROM role_assignments a
	JOIN roles r ON r.id = a.role_id`

// SQLAssignmentRepository persists role assignments.
type SQLAssignmentRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new assignment. A second row for the same (user, role) returns
// ErrAssignmentActive; callers reactivate the existing row instead.
func (r *SQLAssignmentRepository) Create(ctx context.Context, assignment *domain.RoleAssignment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO role_assignments (id, user_id, role_id, status, status_reason, assigned_by, expires_at,
			  next_review_at, last_reviewed_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		assignment.ID,
		assignment.UserID,
		assignment.RoleID,
		string(assignment.Status),
		assignment.StatusReason,
		nullUUID(assignment.AssignedBy),
		nullTime(assignment.ExpiresAt),
		nullTime(assignment.NextReviewAt),
		nullTime(assignment.LastReviewedAt),
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAssignmentActive
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "user or role does not exist")
		}
		return apperrors.Wrap(err, "failed to create role assignment")
	}

	return nil
}

// Update writes the lifecycle fields of an assignment.
func (r *SQLAssignmentRepository) Update(ctx context.Context, assignment *domain.RoleAssignment) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE role_assignments SET status = ?, status_reason = ?, assigned_by = ?, expires_at = ?,
			  next_review_at = ?, last_reviewed_at = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		string(assignment.Status),
		assignment.StatusReason,
		nullUUID(assignment.AssignedBy),
		nullTime(assignment.ExpiresAt),
		nullTime(assignment.NextReviewAt),
		nullTime(assignment.LastReviewedAt),
		assignment.UpdatedAt,
		assignment.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update role assignment")
	}

	return requireAffected(result, domain.ErrAssignmentNotFound)
}

// GetByID retrieves an assignment by id.
func (r *SQLAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RoleAssignment, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectAssignment+` WHERE a.id = ?`), id)
	return scanAssignment(row)
}

// GetByUserAndRole retrieves the single assignment row of a (user, role) pair.
func (r *SQLAssignmentRepository) GetByUserAndRole(
	ctx context.Context,
	userID, roleID uuid.UUID,
) (*domain.RoleAssignment, error) {
	querier := database.GetTx(ctx, r.db)
	query := selectAssignment + ` WHERE a.user_id = ? AND a.role_id = ?`
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, query), userID, roleID)
	return scanAssignment(row)
}

// ListByUser retrieves every assignment of a principal regardless of status.
func (r *SQLAssignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RoleAssignment, error) {
	return r.query(ctx, selectAssignment+` WHERE a.user_id = ? ORDER BY a.created_at ASC`, userID)
}

// List retrieves assignments matching filter, newest first.
func (r *SQLAssignmentRepository) List(
	ctx context.Context,
	filter domain.AssignmentFilter,
	offset, limit int,
) ([]*domain.RoleAssignment, error) {
	query := selectAssignment + ` WHERE 1 = 1`
	args := make([]any, 0, 4)
	if filter.UserID != nil {
		query += ` AND a.user_id = ?`
		args = append(args, *filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.query(ctx, query, args...)
}

// ListExpiring retrieves ACTIVE assignments whose expiry is at or before now.
func (r *SQLAssignmentRepository) ListExpiring(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.RoleAssignment, error) {
	query := selectAssignment + ` WHERE a.status = ? AND a.expires_at IS NOT NULL AND a.expires_at <= ?
			  ORDER BY a.expires_at ASC LIMIT ?`
	return r.query(ctx, query, string(domain.AssignmentActive), now, limit)
}

// ListDueForReview retrieves ACTIVE assignments whose next review is at or before cutoff.
func (r *SQLAssignmentRepository) ListDueForReview(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.RoleAssignment, error) {
	query := selectAssignment + ` WHERE a.status = ? AND a.next_review_at IS NOT NULL AND a.next_review_at <= ?
			  ORDER BY a.next_review_at ASC LIMIT ?`
	return r.query(ctx, query, string(domain.AssignmentActive), cutoff, limit)
}

func (r *SQLAssignmentRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.RoleAssignment, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list role assignments")
	}
	defer func() {
		_ = rows.Close()
	}()

	assignments := make([]*domain.RoleAssignment, 0)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate role assignments")
	}

	return assignments, nil
}

func scanAssignment(row scanner) (*domain.RoleAssignment, error) {
	var assignment domain.RoleAssignment
	var status string
	var assignedBy uuid.NullUUID
	var expiresAt, nextReviewAt, lastReviewedAt sql.NullTime

	err := row.Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.RoleID,
		&assignment.RoleName,
		&status,
		&assignment.StatusReason,
		&assignedBy,
		&expiresAt,
		&nextReviewAt,
		&lastReviewedAt,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan role assignment")
	}

	assignment.Status = domain.AssignmentStatus(status)
	assignment.AssignedBy = uuidPtr(assignedBy)
	assignment.ExpiresAt = timePtr(expiresAt)
	assignment.NextReviewAt = timePtr(nextReviewAt)
	assignment.LastReviewedAt = timePtr(lastReviewedAt)

	return &assignment, nil
}

// NewSQLAssignmentRepository creates a new assignment repository for the given driver.
func NewSQLAssignmentRepository(db *sql.DB, driver string) *SQLAssignmentRepository {
	return &SQLAssignmentRepository{db: db, driver: driver}
}

// Package repository persists access policies for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
)

const selectPolicy = `SELECT id, name, description, policy_type, resource_type, action, effect, conditions, rule_id,
		enabled, priority, created_at, updated_at
	FROM access_policies`

type scanner interface {
	Scan(dest ...any) error
}

// SQLPolicyRepository persists ABAC and RUBAC access policies.
type SQLPolicyRepository struct {
	db     *sql.DB
	driver string
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create inserts a new policy.
func (r *SQLPolicyRepository) Create(ctx context.Context, policy *domain.AccessPolicy) error {
	querier := database.GetTx(ctx, r.db)

	conditions, err := json.Marshal(policy.Conditions)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal policy conditions")
	}

	query := `INSERT INTO access_policies (id, name, description, policy_type, resource_type, action, effect,
			  conditions, rule_id, enabled, priority, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		policy.ID,
		policy.Name,
		policy.Description,
		string(policy.PolicyType),
		policy.ResourceType,
		policy.Action,
		string(policy.Effect),
		conditions,
		nullUUID(policy.RuleID),
		policy.Enabled,
		policy.Priority,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrPolicyAlreadyExists
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "referenced rule does not exist")
		}
		return apperrors.Wrap(err, "failed to create access policy")
	}

	return nil
}

// Update replaces the mutable fields of a policy.
func (r *SQLPolicyRepository) Update(ctx context.Context, policy *domain.AccessPolicy) error {
	querier := database.GetTx(ctx, r.db)

	conditions, err := json.Marshal(policy.Conditions)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal policy conditions")
	}

	query := `UPDATE access_policies SET name = ?, description = ?, policy_type = ?, resource_type = ?, action = ?,
			  effect = ?, conditions = ?, rule_id = ?, enabled = ?, priority = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		policy.Name,
		policy.Description,
		string(policy.PolicyType),
		policy.ResourceType,
		policy.Action,
		string(policy.Effect),
		conditions,
		nullUUID(policy.RuleID),
		policy.Enabled,
		policy.Priority,
		policy.UpdatedAt,
		policy.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrPolicyAlreadyExists
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "referenced rule does not exist")
		}
		return apperrors.Wrap(err, "failed to update access policy")
	}

	return requireAffected(result)
}

// Delete removes a policy.
func (r *SQLPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, `DELETE FROM access_policies WHERE id = ?`), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete access policy")
	}

	return requireAffected(result)
}

// GetByID retrieves a policy by id.
func (r *SQLPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessPolicy, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectPolicy+` WHERE id = ?`), id)
	return scanPolicy(row)
}

// List retrieves policies, optionally filtered by type, ordered by descending priority.
func (r *SQLPolicyRepository) List(
	ctx context.Context,
	policyType domain.PolicyType,
	offset, limit int,
) ([]*domain.AccessPolicy, error) {
	query := selectPolicy
	args := make([]any, 0, 3)
	if policyType != "" {
		query += ` WHERE policy_type = ?`
		args = append(args, string(policyType))
	}
	query += ` ORDER BY priority DESC, name ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.query(ctx, query, args...)
}

// ListBound retrieves the enabled policies of policyType bound to (resourceType, action),
// honoring '*' on either binding column.
func (r *SQLPolicyRepository) ListBound(
	ctx context.Context,
	policyType domain.PolicyType,
	resourceType, action string,
) ([]*domain.AccessPolicy, error) {
	query := selectPolicy + ` WHERE policy_type = ? AND enabled = ?
			  AND (resource_type = ? OR resource_type = ?) AND (action = ? OR action = ?)
			  ORDER BY priority DESC, name ASC`
	return r.query(ctx, query, string(policyType), true, resourceType, domain.Wildcard, action, domain.Wildcard)
}

func (r *SQLPolicyRepository) query(ctx context.Context, query string, args ...any) ([]*domain.AccessPolicy, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access policies")
	}
	defer func() {
		_ = rows.Close()
	}()

	policies := make([]*domain.AccessPolicy, 0)
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate access policies")
	}

	return policies, nil
}

func scanPolicy(row scanner) (*domain.AccessPolicy, error) {
	var policy domain.AccessPolicy
	var policyType, effect string
	var conditions []byte
	var ruleID uuid.NullUUID

	err := row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Description,
		&policyType,
		&policy.ResourceType,
		&policy.Action,
		&effect,
		&conditions,
		&ruleID,
		&policy.Enabled,
		&policy.Priority,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan access policy")
	}

	policy.PolicyType = domain.PolicyType(policyType)
	policy.Effect = domain.Effect(effect)
	policy.Conditions = []domain.Condition{}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &policy.Conditions); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal policy conditions")
		}
	}
	if ruleID.Valid {
		id := ruleID.UUID
		policy.RuleID = &id
	}

	return &policy, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrPolicyNotFound
	}
	return nil
}

// NewSQLPolicyRepository creates a new access policy repository for the given driver.
func NewSQLPolicyRepository(db *sql.DB, driver string) *SQLPolicyRepository {
	return &SQLPolicyRepository{db: db, driver: driver}
}

// Package repository persists access rules for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/rubac/domain"
)

const selectRule = `SELECT id, name, description, rule_type, config, enabled, priority, emergency_override,
		valid_from, valid_until, created_at, updated_at
	FROM access_rules`

type scanner interface {
	Scan(dest ...any) error
}

// SQLRuleRepository persists access rules.
type SQLRuleRepository struct {
	db     *sql.DB
	driver string
}

// Create inserts a new rule.
func (r *SQLRuleRepository) Create(ctx context.Context, rule *domain.AccessRule) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO access_rules (id, name, description, rule_type, config, enabled, priority,
			  emergency_override, valid_from, valid_until, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		[]byte(rule.Config),
		rule.Enabled,
		rule.Priority,
		rule.EmergencyOverride,
		nullTime(rule.ValidFrom),
		nullTime(rule.ValidUntil),
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrRuleAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create access rule")
	}

	return nil
}

// Update replaces the mutable fields of a rule.
func (r *SQLRuleRepository) Update(ctx context.Context, rule *domain.AccessRule) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE access_rules SET name = ?, description = ?, rule_type = ?, config = ?, enabled = ?,
			  priority = ?, emergency_override = ?, valid_from = ?, valid_until = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		database.Rebind(r.driver, query),
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		[]byte(rule.Config),
		rule.Enabled,
		rule.Priority,
		rule.EmergencyOverride,
		nullTime(rule.ValidFrom),
		nullTime(rule.ValidUntil),
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrRuleAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update access rule")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// Delete removes a rule. Returns ErrRuleInUse while a policy references it.
func (r *SQLRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, database.Rebind(r.driver, `DELETE FROM access_rules WHERE id = ?`), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return domain.ErrRuleInUse
		}
		return apperrors.Wrap(err, "failed to delete access rule")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// GetByID retrieves a rule by id.
func (r *SQLRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccessRule, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, database.Rebind(r.driver, selectRule+` WHERE id = ?`), id)
	return scanRule(row)
}

// ListByIDs retrieves the rules with the given ids. Unknown ids are skipped.
func (r *SQLRuleRepository) ListByIDs(ctx context.Context, ids ...uuid.UUID) ([]*domain.AccessRule, error) {
	if len(ids) == 0 {
		return []*domain.AccessRule{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	return r.query(ctx, selectRule+` WHERE id IN (`+placeholders+`) ORDER BY priority DESC, name ASC`, args...)
}

// List retrieves rules ordered by descending priority.
func (r *SQLRuleRepository) List(ctx context.Context, offset, limit int) ([]*domain.AccessRule, error) {
	return r.query(ctx, selectRule+` ORDER BY priority DESC, name ASC LIMIT ? OFFSET ?`, limit, offset)
}

func (r *SQLRuleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.AccessRule, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, database.Rebind(r.driver, query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access rules")
	}
	defer func() {
		_ = rows.Close()
	}()

	rules := make([]*domain.AccessRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate access rules")
	}

	return rules, nil
}

func scanRule(row scanner) (*domain.AccessRule, error) {
	var rule domain.AccessRule
	var ruleType string
	var config []byte
	var validFrom, validUntil sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&ruleType,
		&config,
		&rule.Enabled,
		&rule.Priority,
		&rule.EmergencyOverride,
		&validFrom,
		&validUntil,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan access rule")
	}

	rule.RuleType = domain.RuleType(ruleType)
	rule.Config = config
	if validFrom.Valid {
		t := validFrom.Time
		rule.ValidFrom = &t
	}
	if validUntil.Valid {
		t := validUntil.Time
		rule.ValidUntil = &t
	}

	return &rule, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// NewSQLRuleRepository creates a new access rule repository for the given driver.
func NewSQLRuleRepository(db *sql.DB, driver string) *SQLRuleRepository {
	return &SQLRuleRepository{db: db, driver: driver}
}

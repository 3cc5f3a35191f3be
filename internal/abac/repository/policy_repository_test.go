package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/database"
)

var policyColumns = []string{
	"id", "name", "description", "policy_type", "resource_type", "action", "effect", "conditions", "rule_id",
	"enabled", "priority", "created_at", "updated_at",
}

func TestSQLPolicyRepository_ListBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	policyID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE policy_type = $1 AND enabled = $2",
	)).
		WithArgs("ABAC", true, "document", "*", "read", "*").
		WillReturnRows(sqlmock.NewRows(policyColumns).AddRow(
			policyID.String(), "hr-only", "", "ABAC", "document", "*", "ALLOW",
			[]byte(`[{"attribute":"department","operator":"EQUALS","value":"HR"}]`), nil, true, 100, now, now,
		))

	repo := NewSQLPolicyRepository(db, database.DriverPostgres)
	policies, err := repo.ListBound(context.Background(), domain.PolicyTypeABAC, "document", "read")

	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, domain.EffectAllow, policies[0].Effect)
	require.Len(t, policies[0].Conditions, 1)
	assert.Equal(t, domain.OperatorEquals, policies[0].Conditions[0].Operator)
	assert.Equal(t, "HR", policies[0].Conditions[0].Value)
	assert.Nil(t, policies[0].RuleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPolicyRepository_GetByID(t *testing.T) {
	policyID := uuid.Must(uuid.NewV7())
	ruleID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	t.Run("RubacPolicy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM access_policies WHERE id = ?")).
			WithArgs(policyID).
			WillReturnRows(sqlmock.NewRows(policyColumns).AddRow(
				policyID.String(), "office-only", "", "RUBAC", "*", "*", "ALLOW", nil, ruleID.String(), true, 0,
				now, now,
			))

		repo := NewSQLPolicyRepository(db, database.DriverMySQL)
		policy, err := repo.GetByID(context.Background(), policyID)

		require.NoError(t, err)
		require.NotNil(t, policy.RuleID)
		assert.Equal(t, ruleID, *policy.RuleID)
		assert.Empty(t, policy.Conditions)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM access_policies WHERE id = $1")).WillReturnError(sql.ErrNoRows)

		repo := NewSQLPolicyRepository(db, database.DriverPostgres)
		_, err = repo.GetByID(context.Background(), policyID)
		assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
	})
}

func TestSQLPolicyRepository_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_policies")).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "access_policies_name_key"`))

	repo := NewSQLPolicyRepository(db, database.DriverPostgres)
	err = repo.Create(context.Background(), &domain.AccessPolicy{ID: uuid.Must(uuid.NewV7()), Name: "hr-only"})
	assert.ErrorIs(t, err, domain.ErrPolicyAlreadyExists)
}

func TestSQLPolicyRepository_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	policyID := uuid.Must(uuid.NewV7())
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM access_policies WHERE id = $1")).
		WithArgs(policyID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSQLPolicyRepository(db, database.DriverPostgres)
	assert.ErrorIs(t, repo.Delete(context.Background(), policyID), domain.ErrPolicyNotFound)
}

func TestSQLPolicyRepository_List_ByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE policy_type = $1 ORDER BY priority DESC, name ASC LIMIT $2 OFFSET $3")).
		WithArgs("RUBAC", 50, 0).
		WillReturnRows(sqlmock.NewRows(policyColumns))

	repo := NewSQLPolicyRepository(db, database.DriverPostgres)
	policies, err := repo.List(context.Background(), domain.PolicyTypeRuBAC, 0, 50)

	require.NoError(t, err)
	assert.Empty(t, policies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

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

	"github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
)

var grantColumns = []string{
	"id", "resource_id", "principal_id", "permissions", "granted_by", "expires_at", "active", "revoked_reason",
	"revoked_at", "created_at", "updated_at",
}

func TestSQLShareRepository_GetByResourceAndPrincipal(t *testing.T) {
	resourceID := uuid.Must(uuid.NewV7())
	principalID := uuid.Must(uuid.NewV7())
	grantID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	expires := now.Add(time.Hour)

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM share_grants WHERE resource_id = $1 AND principal_id = $2")).
			WithArgs(resourceID, principalID).
			WillReturnRows(sqlmock.NewRows(grantColumns).AddRow(
				grantID.String(), resourceID.String(), principalID.String(), 9, nil, expires, true, "", nil, now, now,
			))

		repo := NewSQLShareRepository(db, database.DriverPostgres)
		grant, err := repo.GetByResourceAndPrincipal(context.Background(), resourceID, principalID)

		require.NoError(t, err)
		assert.Equal(t, domain.PermissionRead|domain.PermissionShare, grant.Permissions)
		assert.Nil(t, grant.GrantedBy)
		require.NotNil(t, grant.ExpiresAt)
		assert.True(t, grant.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("WHERE resource_id = ? AND principal_id = ?")).
			WillReturnError(sql.ErrNoRows)

		repo := NewSQLShareRepository(db, database.DriverMySQL)
		_, err = repo.GetByResourceAndPrincipal(context.Background(), resourceID, principalID)
		assert.ErrorIs(t, err, domain.ErrGrantNotFound)
	})
}

func TestSQLShareRepository_Create(t *testing.T) {
	grant := &domain.ShareGrant{
		ID:          uuid.Must(uuid.NewV7()),
		ResourceID:  uuid.Must(uuid.NewV7()),
		PrincipalID: uuid.Must(uuid.NewV7()),
		Permissions: domain.PermissionRead,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO share_grants")).
			WithArgs(grant.ID, grant.ResourceID, grant.PrincipalID, 1, sqlmock.AnyArg(), sqlmock.AnyArg(), true, "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewSQLShareRepository(db, database.DriverPostgres)
		require.NoError(t, repo.Create(context.Background(), grant))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO share_grants")).
			WillReturnError(errors.New("Error 1062: Duplicate entry"))

		repo := NewSQLShareRepository(db, database.DriverMySQL)
		err = repo.Create(context.Background(), grant)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestSQLShareRepository_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE share_grants SET permissions = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSQLShareRepository(db, database.DriverPostgres)
	err = repo.Update(context.Background(), &domain.ShareGrant{ID: uuid.Must(uuid.NewV7())})
	assert.ErrorIs(t, err, domain.ErrGrantNotFound)
}

func TestSQLShareRepository_ListExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	grantedBy := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 AND expires_at IS NOT NULL AND expires_at <= $2")).
		WithArgs(true, now, 100).
		WillReturnRows(sqlmock.NewRows(grantColumns).AddRow(
			uuid.Must(uuid.NewV7()).String(), uuid.Must(uuid.NewV7()).String(), uuid.Must(uuid.NewV7()).String(),
			1, grantedBy.String(), past, true, "", nil, past, past,
		))

	repo := NewSQLShareRepository(db, database.DriverPostgres)
	grants, err := repo.ListExpired(context.Background(), now, 100)

	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].GrantedBy)
	assert.Equal(t, grantedBy, *grants[0].GrantedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

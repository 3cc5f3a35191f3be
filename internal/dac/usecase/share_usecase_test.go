package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditMocks "github.com/allisson/accessgate/internal/audit/usecase/mocks"
	"github.com/allisson/accessgate/internal/dac/domain"
	databaseMocks "github.com/allisson/accessgate/internal/database/mocks"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
)

type mockShareRepository struct {
	mock.Mock
}

func (m *mockShareRepository) Create(ctx context.Context, grant *domain.ShareGrant) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *mockShareRepository) Update(ctx context.Context, grant *domain.ShareGrant) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *mockShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShareGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShareGrant), args.Error(1)
}

func (m *mockShareRepository) GetByResourceAndPrincipal(
	ctx context.Context,
	resourceID, principalID uuid.UUID,
) (*domain.ShareGrant, error) {
	args := m.Called(ctx, resourceID, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShareGrant), args.Error(1)
}

func (m *mockShareRepository) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.ShareGrant, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShareGrant), args.Error(1)
}

func (m *mockShareRepository) ListByPrincipal(
	ctx context.Context,
	principalID uuid.UUID,
) ([]*domain.ShareGrant, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShareGrant), args.Error(1)
}

func (m *mockShareRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.ShareGrant, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShareGrant), args.Error(1)
}

type mockResourceReader struct {
	mock.Mock
}

func (m *mockResourceReader) GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resourceDomain.Resource), args.Error(1)
}

func auditAction(action string) interface{} {
	return mock.MatchedBy(func(entry *auditDomain.AuditLog) bool {
		return entry.Action == action
	})
}

type shareFixture struct {
	txManager *databaseMocks.MockTxManager
	shareRepo *mockShareRepository
	resources *mockResourceReader
	audit     *auditMocks.MockAuditLogUseCase
	uc        ShareUseCase
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	f := &shareFixture{
		txManager: databaseMocks.NewMockTxManager(t),
		shareRepo: &mockShareRepository{},
		resources: &mockResourceReader{},
		audit:     &auditMocks.MockAuditLogUseCase{},
	}
	f.uc = NewShareUseCase(f.txManager, f.shareRepo, f.resources, f.audit,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func ownedResource(ownerID uuid.UUID) *resourceDomain.Resource {
	return &resourceDomain.Resource{
		ID:      uuid.Must(uuid.NewV7()),
		Type:    "document",
		OwnerID: &ownerID,
		Label:   macDomain.NewLabel(macDomain.LevelConfidential, nil),
	}
}

func TestShareUseCase_CheckAccess(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV7())
	principalID := uuid.Must(uuid.NewV7())

	t.Run("Owner", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		f.resources.On("GetByID", mock.Anything, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", mock.Anything, resource.ID, ownerID).
			Return(nil, domain.ErrGrantNotFound).Once()

		decision, err := f.uc.CheckAccess(context.Background(), resource.ID, ownerID, domain.PermissionDelete)

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.Owner)
	})

	t.Run("ExpiredGrantDenies", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		past := time.Now().UTC().Add(-time.Hour)
		f.resources.On("GetByID", mock.Anything, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", mock.Anything, resource.ID, principalID).
			Return(&domain.ShareGrant{Active: true, Permissions: domain.PermissionRead, ExpiresAt: &past}, nil).Once()

		decision, err := f.uc.CheckAccess(context.Background(), resource.ID, principalID, domain.PermissionRead)

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, domain.ReasonGrantExpired, decision.Reason)
	})

	t.Run("SharedRead", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		f.resources.On("GetByID", mock.Anything, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", mock.Anything, resource.ID, principalID).
			Return(&domain.ShareGrant{Active: true, Permissions: domain.PermissionRead}, nil).Once()

		decision, err := f.uc.CheckAccess(context.Background(), resource.ID, principalID, domain.PermissionRead)

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("UnknownResource", func(t *testing.T) {
		f := newShareFixture(t)
		resourceID := uuid.Must(uuid.NewV7())
		f.resources.On("GetByID", mock.Anything, resourceID).Return(nil, resourceDomain.ErrResourceNotFound).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", mock.Anything, resourceID, principalID).
			Return(nil, domain.ErrGrantNotFound).Maybe()

		_, err := f.uc.CheckAccess(context.Background(), resourceID, principalID, domain.PermissionRead)
		assert.ErrorIs(t, err, resourceDomain.ErrResourceNotFound)
	})
}

func TestShareUseCase_Grant(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV7())
	principalID := uuid.Must(uuid.NewV7())

	t.Run("OwnerCreatesGrant", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		ctx := auditDomain.WithActorID(context.Background(), ownerID)
		databaseMocks.PassThrough(f.txManager).Once()

		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", ctx, resource.ID, principalID).
			Return(nil, domain.ErrGrantNotFound).Once()
		f.shareRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.audit.On("Record", ctx, mock.MatchedBy(func(entry *auditDomain.AuditLog) bool {
			return entry.Action == "share.grant" && entry.Label == macDomain.LevelConfidential
		})).Return(nil).Once()

		grant, err := f.uc.Grant(ctx, &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionRead | domain.PermissionWrite,
		})

		require.NoError(t, err)
		assert.True(t, grant.Active)
		require.NotNil(t, grant.GrantedBy)
		assert.Equal(t, ownerID, *grant.GrantedBy)
		f.shareRepo.AssertExpectations(t)
		f.audit.AssertExpectations(t)
	})

	t.Run("ExtendsExistingGrant", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		ctx := context.Background()
		databaseMocks.PassThrough(f.txManager).Once()

		existing := &domain.ShareGrant{
			ID:          uuid.Must(uuid.NewV7()),
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionRead,
			Active:      true,
		}
		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", ctx, resource.ID, principalID).Return(existing, nil).Once()
		f.shareRepo.On("Update", ctx, existing).Return(nil).Once()
		f.audit.On("Record", ctx, auditAction("share.grant")).Return(nil).Once()

		grant, err := f.uc.Grant(ctx, &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionShare,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.PermissionRead|domain.PermissionShare, grant.Permissions)
	})

	t.Run("ShareHolderCannotExceedOwnGrant", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		holderID := uuid.Must(uuid.NewV7())
		ctx := auditDomain.WithActorID(context.Background(), holderID)
		databaseMocks.PassThrough(f.txManager).Once()

		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", ctx, resource.ID, holderID).
			Return(&domain.ShareGrant{Active: true, Permissions: domain.PermissionRead | domain.PermissionShare}, nil).
			Once()

		_, err := f.uc.Grant(ctx, &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionWrite,
		})

		assert.ErrorIs(t, err, domain.ErrShareExceedsOwn)
		f.shareRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("StrangerCannotShare", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		strangerID := uuid.Must(uuid.NewV7())
		ctx := auditDomain.WithActorID(context.Background(), strangerID)
		databaseMocks.PassThrough(f.txManager).Once()

		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", ctx, resource.ID, strangerID).
			Return(nil, domain.ErrGrantNotFound).Once()

		_, err := f.uc.Grant(ctx, &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionRead,
		})

		assert.ErrorIs(t, err, domain.ErrNotShareable)
	})

	t.Run("RejectsOwnerAsGrantee", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		databaseMocks.PassThrough(f.txManager).Once()
		f.resources.On("GetByID", mock.Anything, resource.ID).Return(resource, nil).Once()

		_, err := f.uc.Grant(context.Background(), &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: ownerID,
			Permissions: domain.PermissionRead,
		})

		assert.ErrorIs(t, err, domain.ErrShareWithOwner)
	})

	t.Run("RejectsEmptyPermissions", func(t *testing.T) {
		f := newShareFixture(t)

		_, err := f.uc.Grant(context.Background(), &domain.GrantInput{ResourceID: uuid.Must(uuid.NewV7())})

		assert.ErrorIs(t, err, domain.ErrInvalidPermission)
	})

	t.Run("RejectsPastExpiry", func(t *testing.T) {
		f := newShareFixture(t)
		past := time.Now().UTC().Add(-time.Minute)

		_, err := f.uc.Grant(context.Background(), &domain.GrantInput{
			Permissions: domain.PermissionRead,
			ExpiresAt:   &past,
		})

		assert.Error(t, err)
	})

	t.Run("AuditFailureAborts", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		ctx := context.Background()
		databaseMocks.PassThrough(f.txManager).Once()

		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("GetByResourceAndPrincipal", ctx, resource.ID, principalID).
			Return(nil, domain.ErrGrantNotFound).Once()
		f.shareRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.audit.On("Record", ctx, auditAction("share.grant")).Return(errors.New("audit down")).Once()

		grant, err := f.uc.Grant(ctx, &domain.GrantInput{
			ResourceID:  resource.ID,
			PrincipalID: principalID,
			Permissions: domain.PermissionRead,
		})

		assert.Error(t, err)
		assert.Nil(t, grant)
	})
}

func TestShareUseCase_Revoke(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV7())
	principalID := uuid.Must(uuid.NewV7())

	t.Run("OwnerRevokes", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		ctx := auditDomain.WithActorID(context.Background(), ownerID)
		databaseMocks.PassThrough(f.txManager).Once()

		grant := &domain.ShareGrant{ID: uuid.Must(uuid.NewV7()), ResourceID: resource.ID, PrincipalID: principalID,
			Permissions: domain.PermissionRead, Active: true}
		f.shareRepo.On("GetByID", ctx, grant.ID).Return(grant, nil).Once()
		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("Update", ctx, grant).Return(nil).Once()
		f.audit.On("Record", ctx, auditAction("share.revoke")).Return(nil).Once()

		revoked, err := f.uc.Revoke(ctx, grant.ID, "project finished")

		require.NoError(t, err)
		assert.False(t, revoked.Active)
		assert.Equal(t, "project finished", revoked.RevokedReason)
	})

	t.Run("PrincipalDropsOwnGrant", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		ctx := auditDomain.WithActorID(context.Background(), principalID)
		databaseMocks.PassThrough(f.txManager).Once()

		grant := &domain.ShareGrant{ID: uuid.Must(uuid.NewV7()), ResourceID: resource.ID, PrincipalID: principalID,
			Permissions: domain.PermissionRead, Active: true}
		f.shareRepo.On("GetByID", ctx, grant.ID).Return(grant, nil).Once()
		f.resources.On("GetByID", ctx, resource.ID).Return(resource, nil).Once()
		f.shareRepo.On("Update", ctx, grant).Return(nil).Once()
		f.audit.On("Record", ctx, auditAction("share.revoke")).Return(nil).Once()

		_, err := f.uc.Revoke(ctx, grant.ID, "not needed")
		require.NoError(t, err)
	})

	t.Run("AlreadyInactive", func(t *testing.T) {
		f := newShareFixture(t)
		resource := ownedResource(ownerID)
		databaseMocks.PassThrough(f.txManager).Once()

		grant := &domain.ShareGrant{ID: uuid.Must(uuid.NewV7()), ResourceID: resource.ID, PrincipalID: principalID}
		f.shareRepo.On("GetByID", mock.Anything, grant.ID).Return(grant, nil).Once()
		f.resources.On("GetByID", mock.Anything, resource.ID).Return(resource, nil).Once()

		_, err := f.uc.Revoke(context.Background(), grant.ID, "again")
		assert.ErrorIs(t, err, domain.ErrGrantInactive)
	})
}

func TestShareUseCase_ExpireDue(t *testing.T) {
	f := newShareFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	first := &domain.ShareGrant{ID: uuid.Must(uuid.NewV7()), Active: true, ExpiresAt: &past}
	raced := &domain.ShareGrant{ID: uuid.Must(uuid.NewV7()), Active: true, ExpiresAt: &past}
	databaseMocks.PassThrough(f.txManager).Twice()

	f.shareRepo.On("ListExpired", ctx, now, sweepBatchSize).Return([]*domain.ShareGrant{first, raced}, nil).Once()
	f.shareRepo.On("GetByID", ctx, first.ID).Return(first, nil).Once()
	f.shareRepo.On("Update", ctx, first).Return(nil).Once()
	f.audit.On("Record", ctx, auditAction("share.expire")).Return(nil).Once()
	f.shareRepo.On("GetByID", ctx, raced.ID).
		Return(&domain.ShareGrant{ID: raced.ID, Active: false}, nil).Once()

	count, err := f.uc.ExpireDue(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, first.Active)
	assert.Equal(t, reasonExpired, first.RevokedReason)
	f.audit.AssertExpectations(t)
}

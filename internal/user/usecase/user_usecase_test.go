package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditMocks "github.com/allisson/accessgate/internal/audit/usecase/mocks"
	databaseMocks "github.com/allisson/accessgate/internal/database/mocks"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	rbacCache "github.com/allisson/accessgate/internal/rbac/cache"
	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
	"github.com/allisson/accessgate/internal/user/domain"
)

// mockUserRepository is a mock implementation of UserRepository for testing.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) UpdateClearance(
	ctx context.Context,
	userID uuid.UUID,
	clearance macDomain.Label,
) error {
	args := m.Called(ctx, userID, clearance)
	return args.Error(0)
}

func (m *mockUserRepository) ClearPrimaryRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

type mockPermissionCache struct {
	mock.Mock
}

func (m *mockPermissionCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUserUseCase_Create(t *testing.T) {
	actorID := uuid.Must(uuid.NewV7())
	ctx := auditDomain.WithActorID(context.Background(), actorID)

	t.Run("Success_NormalizesAndAudits", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil).Once()

		var recorded *auditDomain.AuditLog
		mockRecorder.On("Record", ctx, mock.AnythingOfType("*domain.AuditLog")).
			Run(func(args mock.Arguments) {
				recorded = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil).
			Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, &mockPermissionCache{}, mockRecorder, testLogger())
		user, err := uc.Create(ctx, &domain.CreateUserInput{
			Name:       "  Alice ",
			Email:      "Alice@Example.com",
			LegacyRole: "employee",
			Department: "HR",
		})

		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "EMPLOYEE", user.LegacyRole)
		assert.Equal(t, macDomain.LevelPublic, user.Clearance.Level)
		assert.True(t, user.IsActive)

		require.NotNil(t, recorded)
		assert.Equal(t, actorID, recorded.ActorID)
		assert.Equal(t, "user.create", recorded.Action)
		assert.Equal(t, auditDomain.OutcomeApplied, recorded.Outcome)
		assert.Equal(t, user.ID.String(), recorded.ResourceID)
		mockRepo.AssertExpectations(t)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("Error_DuplicateEmail", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockRepo.On("Create", ctx, mock.Anything).Return(domain.ErrUserAlreadyExists).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, &mockPermissionCache{}, mockRecorder, testLogger())
		_, err := uc.Create(ctx, &domain.CreateUserInput{Name: "Bob", Email: "bob@example.com"})

		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		mockRecorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("Error_AuditFailureAbortsMutation", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
		mockRecorder.On("Record", ctx, mock.Anything).Return(errors.New("audit down")).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, &mockPermissionCache{}, mockRecorder, testLogger())
		_, err := uc.Create(ctx, &domain.CreateUserInput{Name: "Bob", Email: "bob@example.com"})

		assert.Error(t, err)
	})
}

func TestUserUseCase_Update(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	roleID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}

		existing := &domain.User{ID: userID, Name: "Old", Email: "old@example.com", IsActive: true}
		reloaded := &domain.User{ID: userID, Name: "New", RoleID: &roleID, PrimaryRoleName: "STAFF"}
		mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()
		mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Name == "New" && u.RoleID != nil && *u.RoleID == roleID && u.TrustedSubject
		})).Return(nil).Once()
		mockRepo.On("GetByID", ctx, userID).Return(reloaded, nil).Once()

		var recorded *auditDomain.AuditLog
		mockRecorder := &auditMocks.MockAuditLogUseCase{}
		mockRecorder.On("Record", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				recorded = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil).
			Once()

		mockCache := &mockPermissionCache{}
		mockCache.On("Invalidate", ctx).Return(nil).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, mockCache, mockRecorder, testLogger())
		user, err := uc.Update(ctx, userID, &domain.UpdateUserInput{
			Name:           "New",
			Email:          "new@example.com",
			RoleID:         &roleID,
			TrustedSubject: true,
			IsActive:       true,
		})

		require.NoError(t, err)
		assert.Equal(t, "STAFF", user.RoleName())
		assert.Equal(t, macDomain.LevelRestricted, recorded.Label)
		mockRepo.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Success_RoleUnchangedKeepsCache", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockCache := &mockPermissionCache{}

		sameRole := roleID
		existing := &domain.User{ID: userID, Name: "Old", RoleID: &roleID, LegacyRole: "EMPLOYEE", IsActive: true}
		mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()
		mockRepo.On("Update", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, mockCache, auditMocks.NopRecorder{}, testLogger())
		_, err := uc.Update(ctx, userID, &domain.UpdateUserInput{
			Name:       "Renamed",
			Email:      "old@example.com",
			RoleID:     &sameRole,
			LegacyRole: "employee",
			IsActive:   true,
		})

		require.NoError(t, err)
		mockCache.AssertNotCalled(t, "Invalidate", mock.Anything)
	})

	t.Run("Success_InvalidationFailureDoesNotFailUpdate", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockCache := &mockPermissionCache{}

		existing := &domain.User{ID: userID, RoleID: &roleID, IsActive: true}
		mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()
		mockRepo.On("Update", ctx, mock.Anything).Return(nil).Once()
		mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()
		mockCache.On("Invalidate", ctx).Return(errors.New("redis down")).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, mockCache, auditMocks.NopRecorder{}, testLogger())
		_, err := uc.Update(ctx, userID, &domain.UpdateUserInput{Name: "x", IsActive: true})

		require.NoError(t, err)
		mockCache.AssertExpectations(t)
	})

	t.Run("Error_UpdateFailureSkipsInvalidation", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockCache := &mockPermissionCache{}

		mockRepo.On("GetByID", ctx, userID).Return(&domain.User{ID: userID, IsActive: true}, nil).Once()
		mockRepo.On("Update", ctx, mock.Anything).Return(errors.New("db down")).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, mockCache, auditMocks.NopRecorder{}, testLogger())
		_, err := uc.Update(ctx, userID, &domain.UpdateUserInput{Name: "x", RoleID: &roleID, IsActive: true})

		assert.Error(t, err)
		mockCache.AssertNotCalled(t, "Invalidate", mock.Anything)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockUserRepository{}
		mockRepo.On("GetByID", ctx, userID).Return(nil, domain.ErrUserNotFound).Once()

		uc := NewUserUseCase(mockTxManager, mockRepo, &mockPermissionCache{}, auditMocks.NopRecorder{}, testLogger())
		_, err := uc.Update(ctx, userID, &domain.UpdateUserInput{Name: "x"})

		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserUseCase_Deactivate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	mockTxManager := databaseMocks.NewMockTxManager(t)
	databaseMocks.PassThrough(mockTxManager).Once()
	mockRepo := &mockUserRepository{}
	mockRepo.On("GetByID", ctx, userID).Return(&domain.User{ID: userID, IsActive: true}, nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool { return !u.IsActive })).
		Return(nil).
		Once()

	mockCache := &mockPermissionCache{}
	mockCache.On("Invalidate", ctx).Return(nil).Once()

	uc := NewUserUseCase(mockTxManager, mockRepo, mockCache, auditMocks.NopRecorder{}, testLogger())
	err := uc.Deactivate(ctx, userID)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// TestUserUseCase_DemotionDropsCachedPermissions resolves a DEPT_HEAD permission set into
// Redis, moves the principal to STAFF and checks the cached set is gone.
func TestUserUseCase_DemotionDropsCachedPermissions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	deptHeadID := uuid.Must(uuid.NewV7())
	staffID := uuid.Must(uuid.NewV7())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := rbacCache.NewRedisPermissionCache(client, 5*time.Minute)

	deptHeadSet := rbacDomain.PermissionSet{
		{Resource: "visitor", Action: "read"}: {Granted: true, Source: rbacDomain.SourceRole, Role: "DEPT_HEAD"},
	}
	require.NoError(t, cache.Set(ctx, userID, deptHeadSet))

	cached, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, cached.Allows("visitor", "read"))

	mockTxManager := databaseMocks.NewMockTxManager(t)
	databaseMocks.PassThrough(mockTxManager).Once()
	mockRepo := &mockUserRepository{}
	existing := &domain.User{ID: userID, Name: "Dana", RoleID: &deptHeadID, IsActive: true}
	mockRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()
	mockRepo.On("Update", ctx, mock.Anything).Return(nil).Once()
	mockRepo.On("GetByID", ctx, userID).
		Return(&domain.User{ID: userID, RoleID: &staffID, PrimaryRoleName: "STAFF", IsActive: true}, nil).
		Once()

	uc := NewUserUseCase(mockTxManager, mockRepo, cache, auditMocks.NopRecorder{}, testLogger())
	_, err = uc.Update(ctx, userID, &domain.UpdateUserInput{
		Name:     "Dana",
		Email:    "dana@example.com",
		RoleID:   &staffID,
		IsActive: true,
	})
	require.NoError(t, err)

	_, ok, err = cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok, "demoted principal must not resolve from the old role's cached set")
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type mockRoleRepository struct {
	mock.Mock
}

func (m *mockRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	return m.Called(ctx, role).Error(0)
}

func (m *mockRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	return m.Called(ctx, role).Error(0)
}

func (m *mockRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) List(ctx context.Context, offset, limit int) ([]*domain.Role, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) ListAll(ctx context.Context) ([]*domain.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) ListRolePermissions(
	ctx context.Context,
	roleIDs ...uuid.UUID,
) ([]*domain.RolePermission, error) {
	args := m.Called(ctx, roleIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RolePermission), args.Error(1)
}

func (m *mockRoleRepository) SetRolePermission(ctx context.Context, entry *domain.RolePermission) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRoleRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return m.Called(ctx, roleID, permissionID).Error(0)
}

type mockPermissionRepository struct {
	mock.Mock
}

func (m *mockPermissionRepository) Create(ctx context.Context, permission *domain.Permission) error {
	return m.Called(ctx, permission).Error(0)
}

func (m *mockPermissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Permission), args.Error(1)
}

func (m *mockPermissionRepository) GetByKey(
	ctx context.Context,
	key domain.PermissionKey,
) (*domain.Permission, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Permission), args.Error(1)
}

func (m *mockPermissionRepository) List(ctx context.Context, offset, limit int) ([]*domain.Permission, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Permission), args.Error(1)
}

func (m *mockPermissionRepository) ListUserPermissions(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UserPermission, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserPermission), args.Error(1)
}

func (m *mockPermissionRepository) SetUserPermission(ctx context.Context, entry *domain.UserPermission) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockPermissionRepository) RemoveUserPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	return m.Called(ctx, userID, permissionID).Error(0)
}

type mockAssignmentRepository struct {
	mock.Mock
}

func (m *mockAssignmentRepository) Create(ctx context.Context, assignment *domain.RoleAssignment) error {
	return m.Called(ctx, assignment).Error(0)
}

func (m *mockAssignmentRepository) Update(ctx context.Context, assignment *domain.RoleAssignment) error {
	return m.Called(ctx, assignment).Error(0)
}

func (m *mockAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentRepository) GetByUserAndRole(
	ctx context.Context,
	userID, roleID uuid.UUID,
) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, userID, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.RoleAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentRepository) List(
	ctx context.Context,
	filter domain.AssignmentFilter,
	offset, limit int,
) ([]*domain.RoleAssignment, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentRepository) ListExpiring(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.RoleAssignment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentRepository) ListDueForReview(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.RoleAssignment, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleAssignment), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *mockUserRepository) ClearPrimaryRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}

// memoryCache is an in-memory PermissionCache recording invalidations.
type memoryCache struct {
	sets          map[uuid.UUID]domain.PermissionSet
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{sets: map[uuid.UUID]domain.PermissionSet{}}
}

func (c *memoryCache) Get(_ context.Context, userID uuid.UUID) (domain.PermissionSet, bool, error) {
	set, ok := c.sets[userID]
	return set, ok, nil
}

func (c *memoryCache) Set(_ context.Context, userID uuid.UUID, set domain.PermissionSet) error {
	c.sets[userID] = set
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.sets = map[uuid.UUID]domain.PermissionSet{}
	c.invalidations++
	return nil
}

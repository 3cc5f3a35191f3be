package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type mockRoleUseCase struct {
	mock.Mock
}

func (m *mockRoleUseCase) CreateRole(ctx context.Context, input *domain.RoleInput) (*domain.Role, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleUseCase) UpdateRole(
	ctx context.Context,
	roleID uuid.UUID,
	input *domain.RoleInput,
) (*domain.Role, error) {
	args := m.Called(ctx, roleID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleUseCase) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	return m.Called(ctx, roleID).Error(0)
}

func (m *mockRoleUseCase) GetRole(ctx context.Context, roleID uuid.UUID) (*domain.Role, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleUseCase) ListRoles(ctx context.Context, offset, limit int) ([]*domain.Role, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Role), args.Error(1)
}

func (m *mockRoleUseCase) CreatePermission(
	ctx context.Context,
	key domain.PermissionKey,
	description string,
) (*domain.Permission, error) {
	args := m.Called(ctx, key, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Permission), args.Error(1)
}

func (m *mockRoleUseCase) ListPermissions(ctx context.Context, offset, limit int) ([]*domain.Permission, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Permission), args.Error(1)
}

func (m *mockRoleUseCase) SetRolePermission(
	ctx context.Context,
	roleID uuid.UUID,
	key domain.PermissionKey,
	granted bool,
	conditions map[string]any,
) (*domain.RolePermission, error) {
	args := m.Called(ctx, roleID, key, granted, conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RolePermission), args.Error(1)
}

func (m *mockRoleUseCase) RemoveRolePermission(ctx context.Context, roleID uuid.UUID, key domain.PermissionKey) error {
	return m.Called(ctx, roleID, key).Error(0)
}

func (m *mockRoleUseCase) SetUserPermission(
	ctx context.Context,
	userID uuid.UUID,
	key domain.PermissionKey,
	granted bool,
	expiresAt *time.Time,
) (*domain.UserPermission, error) {
	args := m.Called(ctx, userID, key, granted, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserPermission), args.Error(1)
}

func (m *mockRoleUseCase) RemoveUserPermission(ctx context.Context, userID uuid.UUID, key domain.PermissionKey) error {
	return m.Called(ctx, userID, key).Error(0)
}

type mockRoleGraph struct {
	mock.Mock
}

func (m *mockRoleGraph) GetRolePermissions(ctx context.Context, roleID uuid.UUID) (*domain.RolePermissions, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RolePermissions), args.Error(1)
}

func (m *mockRoleGraph) GetUserPermissions(
	ctx context.Context,
	user *userDomain.User,
) (domain.PermissionSet, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.PermissionSet), args.Error(1)
}

func (m *mockRoleGraph) GetUserPermissionsByID(ctx context.Context, userID uuid.UUID) (domain.PermissionSet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.PermissionSet), args.Error(1)
}

func (m *mockRoleGraph) UserHasPermission(
	ctx context.Context,
	userID uuid.UUID,
	resource, action string,
) (bool, error) {
	args := m.Called(ctx, userID, resource, action)
	return args.Bool(0), args.Error(1)
}

type mockAssignmentUseCase struct {
	mock.Mock
}

func (m *mockAssignmentUseCase) Assign(
	ctx context.Context,
	input *domain.AssignRoleInput,
) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentUseCase) Revoke(
	ctx context.Context,
	assignmentID uuid.UUID,
	reason string,
) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, assignmentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentUseCase) Get(ctx context.Context, assignmentID uuid.UUID) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentUseCase) List(
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

func (m *mockAssignmentUseCase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *mockAssignmentUseCase) ListDueForReview(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleAssignment), args.Error(1)
}

func (m *mockAssignmentUseCase) CompleteReview(
	ctx context.Context,
	assignmentID uuid.UUID,
	outcome domain.ReviewOutcome,
	reason string,
) (*domain.RoleAssignment, error) {
	args := m.Called(ctx, assignmentID, outcome, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleAssignment), args.Error(1)
}

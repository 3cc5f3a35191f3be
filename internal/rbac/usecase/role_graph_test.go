package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

var visitorRead = domain.PermissionKey{Resource: "visitor", Action: "read"}

type graphFixture struct {
	roleRepo       *mockRoleRepository
	permissionRepo *mockPermissionRepository
	assignmentRepo *mockAssignmentRepository
	userRepo       *mockUserRepository
	cache          *memoryCache
	graph          RoleGraph
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	f := &graphFixture{
		roleRepo:       &mockRoleRepository{},
		permissionRepo: &mockPermissionRepository{},
		assignmentRepo: &mockAssignmentRepository{},
		userRepo:       &mockUserRepository{},
		cache:          newMemoryCache(),
	}
	f.graph = NewRoleGraph(
		f.roleRepo, f.permissionRepo, f.assignmentRepo, f.userRepo, f.cache,
		"super_admin", slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func newRole(name string, parent *domain.Role) *domain.Role {
	role := &domain.Role{ID: uuid.Must(uuid.NewV7()), Name: name}
	if parent != nil {
		role.ParentID = &parent.ID
	}
	return role
}

func entry(role *domain.Role, key domain.PermissionKey, granted bool) *domain.RolePermission {
	return &domain.RolePermission{RoleID: role.ID, Resource: key.Resource, Action: key.Action, Granted: granted}
}

func TestRoleGraph_GetRolePermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("child deny overrides parent grant", func(t *testing.T) {
		f := newGraphFixture(t)
		deptHead := newRole("DEPT_HEAD", nil)
		staff := newRole("STAFF", deptHead)

		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{deptHead, staff}, nil).Once()
		f.roleRepo.On("ListRolePermissions", ctx, []uuid.UUID{staff.ID, deptHead.ID}).
			Return([]*domain.RolePermission{
				entry(deptHead, visitorRead, true),
				entry(staff, visitorRead, false),
			}, nil).Once()

		resolved, err := f.graph.GetRolePermissions(ctx, staff.ID)

		require.NoError(t, err)
		assert.Equal(t, "STAFF", resolved.Role.Name)
		assert.True(t, resolved.Inherited[visitorRead].Granted)
		assert.False(t, resolved.Direct[visitorRead].Granted)
		assert.False(t, resolved.Merged.Allows("visitor", "read"))
		f.roleRepo.AssertExpectations(t)
	})

	t.Run("inherited deny is not lifted by a child grant", func(t *testing.T) {
		f := newGraphFixture(t)
		root := newRole("ROOT", nil)
		mid := newRole("MID", root)
		leaf := newRole("LEAF", mid)

		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{root, mid, leaf}, nil).Once()
		f.roleRepo.On("ListRolePermissions", ctx, []uuid.UUID{leaf.ID, mid.ID, root.ID}).
			Return([]*domain.RolePermission{
				entry(root, visitorRead, false),
				entry(leaf, visitorRead, true),
				entry(mid, domain.PermissionKey{Resource: "report", Action: "read"}, true),
			}, nil).Once()

		resolved, err := f.graph.GetRolePermissions(ctx, leaf.ID)

		require.NoError(t, err)
		assert.False(t, resolved.Merged.Allows("visitor", "read"))
		assert.True(t, resolved.Merged.Allows("report", "read"))
		assert.Equal(t, "MID", resolved.Merged[domain.PermissionKey{Resource: "report", Action: "read"}].Role)
	})

	t.Run("cycle", func(t *testing.T) {
		f := newGraphFixture(t)
		a := newRole("A", nil)
		b := newRole("B", a)
		a.ParentID = &b.ID

		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{a, b}, nil).Once()

		_, err := f.graph.GetRolePermissions(ctx, a.ID)
		assert.ErrorIs(t, err, domain.ErrRoleCycle)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newGraphFixture(t)
		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{}, nil).Once()

		_, err := f.graph.GetRolePermissions(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, domain.ErrRoleNotFound)
	})
}

func TestRoleGraph_GetUserPermissions(t *testing.T) {
	ctx := context.Background()
	reportExport := domain.PermissionKey{Resource: "report", Action: "export"}
	badgePrint := domain.PermissionKey{Resource: "badge", Action: "print"}

	t.Run("merges primary role, assignments and direct entries", func(t *testing.T) {
		f := newGraphFixture(t)
		deptHead := newRole("DEPT_HEAD", nil)
		staff := newRole("STAFF", deptHead)
		auditor := newRole("AUDITOR", nil)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), RoleID: &staff.ID}

		past := time.Now().Add(-time.Hour)
		f.assignmentRepo.On("ListByUser", ctx, user.ID).Return([]*domain.RoleAssignment{
			{RoleID: auditor.ID, Status: domain.AssignmentActive},
			{RoleID: deptHead.ID, Status: domain.AssignmentRevoked},
			{RoleID: deptHead.ID, Status: domain.AssignmentActive, ExpiresAt: &past},
		}, nil).Once()
		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{deptHead, staff, auditor}, nil).Once()
		f.roleRepo.On("ListRolePermissions", ctx, []uuid.UUID{staff.ID, deptHead.ID, auditor.ID}).
			Return([]*domain.RolePermission{
				entry(deptHead, visitorRead, true),
				entry(auditor, reportExport, true),
			}, nil).Once()
		f.permissionRepo.On("ListUserPermissions", ctx, user.ID).Return([]*domain.UserPermission{
			{Resource: "badge", Action: "print", Granted: true, ExpiresAt: &past},
			{Resource: "report", Action: "export", Granted: false},
		}, nil).Once()

		set, err := f.graph.GetUserPermissions(ctx, user)

		require.NoError(t, err)
		assert.True(t, set.Allows("visitor", "read"))
		assert.Equal(t, domain.SourceInherited, set[visitorRead].Source)
		assert.False(t, set.Allows("report", "export"))
		assert.Equal(t, domain.SourceDirect, set[reportExport].Source)
		_, ok := set[badgePrint]
		assert.False(t, ok)
		assert.Contains(t, f.cache.sets, user.ID)
	})

	t.Run("assignment deny poisons primary grant", func(t *testing.T) {
		f := newGraphFixture(t)
		staff := newRole("STAFF", nil)
		restricted := newRole("RESTRICTED_DESK", nil)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), RoleID: &staff.ID}

		f.assignmentRepo.On("ListByUser", ctx, user.ID).Return([]*domain.RoleAssignment{
			{RoleID: restricted.ID, Status: domain.AssignmentActive},
		}, nil).Once()
		f.roleRepo.On("ListAll", ctx).Return([]*domain.Role{staff, restricted}, nil).Once()
		f.roleRepo.On("ListRolePermissions", ctx, mock.Anything).Return([]*domain.RolePermission{
			entry(staff, visitorRead, true),
			entry(restricted, visitorRead, false),
		}, nil).Once()
		f.permissionRepo.On("ListUserPermissions", ctx, user.ID).Return([]*domain.UserPermission{
			{Resource: "visitor", Action: "read", Granted: true},
		}, nil).Once()

		set, err := f.graph.GetUserPermissions(ctx, user)

		require.NoError(t, err)
		assert.False(t, set.Allows("visitor", "read"))
		assert.Equal(t, domain.SourceAssignment, set[visitorRead].Source)
	})

	t.Run("no roles", func(t *testing.T) {
		f := newGraphFixture(t)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7())}

		f.assignmentRepo.On("ListByUser", ctx, user.ID).Return([]*domain.RoleAssignment{}, nil).Once()
		f.permissionRepo.On("ListUserPermissions", ctx, user.ID).Return([]*domain.UserPermission{}, nil).Once()

		set, err := f.graph.GetUserPermissions(ctx, user)

		require.NoError(t, err)
		assert.Empty(t, set)
		f.roleRepo.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("cache hit", func(t *testing.T) {
		f := newGraphFixture(t)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7())}
		f.cache.sets[user.ID] = domain.PermissionSet{visitorRead: {Granted: true, Source: domain.SourceDirect}}

		set, err := f.graph.GetUserPermissions(ctx, user)

		require.NoError(t, err)
		assert.True(t, set.Allows("visitor", "read"))
		f.assignmentRepo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
	})
}

func TestRoleGraph_UserHasPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("bypass role short-circuits", func(t *testing.T) {
		f := newGraphFixture(t)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), PrimaryRoleName: "SUPER_ADMIN"}
		f.userRepo.On("GetByID", ctx, user.ID).Return(user, nil).Once()

		allowed, err := f.graph.UserHasPermission(ctx, user.ID, "anything", "delete")

		require.NoError(t, err)
		assert.True(t, allowed)
		f.assignmentRepo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
	})

	t.Run("resolves through the graph", func(t *testing.T) {
		f := newGraphFixture(t)
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), LegacyRole: "EMPLOYEE"}
		f.userRepo.On("GetByID", ctx, user.ID).Return(user, nil).Twice()
		f.assignmentRepo.On("ListByUser", ctx, user.ID).Return([]*domain.RoleAssignment{}, nil).Once()
		f.permissionRepo.On("ListUserPermissions", ctx, user.ID).Return([]*domain.UserPermission{
			{Resource: "visitor", Action: "*", Granted: true},
		}, nil).Once()

		allowed, err := f.graph.UserHasPermission(ctx, user.ID, "visitor", "read")
		require.NoError(t, err)
		assert.True(t, allowed)

		// Second lookup is served from the cache.
		allowed, err = f.graph.UserHasPermission(ctx, user.ID, "visitor", "read")
		require.NoError(t, err)
		assert.True(t, allowed)
		f.assignmentRepo.AssertNumberOfCalls(t, "ListByUser", 1)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newGraphFixture(t)
		userID := uuid.Must(uuid.NewV7())
		f.userRepo.On("GetByID", ctx, userID).Return(nil, userDomain.ErrUserNotFound).Once()

		_, err := f.graph.UserHasPermission(ctx, userID, "visitor", "read")
		assert.ErrorIs(t, err, userDomain.ErrUserNotFound)
	})
}

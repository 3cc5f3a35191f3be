package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type roleGraph struct {
	roleRepo       RoleRepository
	permissionRepo PermissionRepository
	assignmentRepo AssignmentRepository
	userRepo       UserRepository
	cache          PermissionCache
	bypassRole     string
	logger         *slog.Logger
}

// arena indexes every role by id. Parents are referenced by id, so resolution is an
// iterative walk over the index rather than a traversal of linked objects.
type arena map[uuid.UUID]*domain.Role

func (g *roleGraph) loadArena(ctx context.Context) (arena, error) {
	roles, err := g.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	a := make(arena, len(roles))
	for _, role := range roles {
		a[role.ID] = role
	}
	return a, nil
}

// chain returns roleID followed by its ancestors, closest first.
func (a arena) chain(roleID uuid.UUID) ([]*domain.Role, error) {
	role, ok := a[roleID]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}

	visited := map[uuid.UUID]bool{}
	chain := make([]*domain.Role, 0, 4)
	for role != nil {
		if visited[role.ID] {
			return nil, domain.ErrRoleCycle
		}
		visited[role.ID] = true
		chain = append(chain, role)

		if role.ParentID == nil {
			break
		}
		role = a[*role.ParentID]
	}
	return chain, nil
}

// resolve computes the permissions of several roles with a single entry lookup.
func (g *roleGraph) resolve(
	ctx context.Context,
	a arena,
	roleIDs ...uuid.UUID,
) (map[uuid.UUID]*domain.RolePermissions, error) {
	chains := make(map[uuid.UUID][]*domain.Role, len(roleIDs))
	ids := make([]uuid.UUID, 0)
	seen := map[uuid.UUID]bool{}
	for _, roleID := range roleIDs {
		chain, err := a.chain(roleID)
		if err != nil {
			return nil, err
		}
		chains[roleID] = chain
		for _, role := range chain {
			if !seen[role.ID] {
				seen[role.ID] = true
				ids = append(ids, role.ID)
			}
		}
	}

	entries, err := g.roleRepo.ListRolePermissions(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byRole := make(map[uuid.UUID][]*domain.RolePermission)
	for _, entry := range entries {
		byRole[entry.RoleID] = append(byRole[entry.RoleID], entry)
	}

	result := make(map[uuid.UUID]*domain.RolePermissions, len(chains))
	for roleID, chain := range chains {
		resolved := &domain.RolePermissions{
			Role:      chain[0],
			Direct:    domain.PermissionSet{},
			Inherited: domain.PermissionSet{},
		}

		// Root ancestor first so closer ancestors overwrite farther grants.
		for i := len(chain) - 1; i >= 1; i-- {
			for _, entry := range byRole[chain[i].ID] {
				resolved.Inherited.Apply(
					domain.PermissionKey{Resource: entry.Resource, Action: entry.Action},
					domain.PermissionEntry{Granted: entry.Granted, Source: domain.SourceInherited, Role: chain[i].Name},
				)
			}
		}
		for _, entry := range byRole[chain[0].ID] {
			resolved.Direct.Apply(
				domain.PermissionKey{Resource: entry.Resource, Action: entry.Action},
				domain.PermissionEntry{Granted: entry.Granted, Source: domain.SourceRole, Role: chain[0].Name},
			)
		}

		resolved.Merged = resolved.Inherited.Clone()
		resolved.Merged.Merge(resolved.Direct)
		result[roleID] = resolved
	}

	return result, nil
}

func (g *roleGraph) GetRolePermissions(ctx context.Context, roleID uuid.UUID) (*domain.RolePermissions, error) {
	a, err := g.loadArena(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := g.resolve(ctx, a, roleID)
	if err != nil {
		return nil, err
	}
	return resolved[roleID], nil
}

func (g *roleGraph) GetUserPermissions(ctx context.Context, user *userDomain.User) (domain.PermissionSet, error) {
	if cached, ok, err := g.cache.Get(ctx, user.ID); err != nil {
		g.logger.Warn("permission cache read failed", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	} else if ok {
		return cached, nil
	}

	now := time.Now().UTC()

	assignments, err := g.assignmentRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	assignedRoles := make([]uuid.UUID, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.IsEffective(now) {
			assignedRoles = append(assignedRoles, assignment.RoleID)
		}
	}

	roleIDs := assignedRoles
	if user.RoleID != nil {
		roleIDs = append([]uuid.UUID{*user.RoleID}, assignedRoles...)
	}

	set := domain.PermissionSet{}
	if len(roleIDs) > 0 {
		a, err := g.loadArena(ctx)
		if err != nil {
			return nil, err
		}
		resolved, err := g.resolve(ctx, a, roleIDs...)
		if err != nil {
			return nil, err
		}

		if user.RoleID != nil {
			primary := resolved[*user.RoleID]
			set.Merge(primary.Inherited)
			set.Merge(primary.Direct)
		}
		for _, roleID := range assignedRoles {
			for _, key := range resolved[roleID].Merged.Keys() {
				entry := resolved[roleID].Merged[key]
				entry.Source = domain.SourceAssignment
				set.Apply(key, entry)
			}
		}
	}

	direct, err := g.permissionRepo.ListUserPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, entry := range direct {
		if entry.IsExpired(now) {
			continue
		}
		set.Apply(
			domain.PermissionKey{Resource: entry.Resource, Action: entry.Action},
			domain.PermissionEntry{Granted: entry.Granted, Source: domain.SourceDirect},
		)
	}

	if err := g.cache.Set(ctx, user.ID, set); err != nil {
		g.logger.Warn("permission cache write failed", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	}

	return set, nil
}

func (g *roleGraph) GetUserPermissionsByID(ctx context.Context, userID uuid.UUID) (domain.PermissionSet, error) {
	user, err := g.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.GetUserPermissions(ctx, user)
}

func (g *roleGraph) UserHasPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	user, err := g.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.HoldsRole(g.bypassRole) {
		return true, nil
	}

	set, err := g.GetUserPermissions(ctx, user)
	if err != nil {
		return false, err
	}
	return set.Allows(resource, action), nil
}

// NewRoleGraph creates the permission resolver. bypassRole names the role that is
// always allowed; an empty name disables the bypass.
func NewRoleGraph(
	roleRepo RoleRepository,
	permissionRepo PermissionRepository,
	assignmentRepo AssignmentRepository,
	userRepo UserRepository,
	cache PermissionCache,
	bypassRole string,
	logger *slog.Logger,
) RoleGraph {
	return &roleGraph{
		roleRepo:       roleRepo,
		permissionRepo: permissionRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		cache:          cache,
		bypassRole:     domain.NormalizeRoleName(bypassRole),
		logger:         logger,
	}
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/rbac/domain"
)

type roleUseCase struct {
	txManager      database.TxManager
	roleRepo       RoleRepository
	permissionRepo PermissionRepository
	userRepo       UserRepository
	cache          PermissionCache
	recorder       auditUseCase.Recorder
	logger         *slog.Logger
}

// invalidate drops cached permission sets after a committed write. A failure leaves
// stale sets alive until their TTL.
func (r *roleUseCase) invalidate(ctx context.Context) {
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Error("failed to invalidate permission cache", slog.Any("error", err))
	}
}

// checkParent rejects a parent that does not exist or whose ancestry already contains roleID.
func (r *roleUseCase) checkParent(ctx context.Context, roleID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == roleID {
		return domain.ErrRoleCycle
	}

	roles, err := r.roleRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	a := make(arena, len(roles))
	for _, role := range roles {
		a[role.ID] = role
	}

	chain, err := a.chain(*parentID)
	if err != nil {
		return err
	}
	for _, ancestor := range chain {
		if ancestor.ID == roleID {
			return domain.ErrRoleCycle
		}
	}
	return nil
}

func (r *roleUseCase) CreateRole(ctx context.Context, input *domain.RoleInput) (*domain.Role, error) {
	now := database.Now()
	role := &domain.Role{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        domain.NormalizeRoleName(input.Name),
		Description: input.Description,
		Level:       input.Level,
		ParentID:    input.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.checkParent(ctx, role.ID, role.ParentID); err != nil {
		return nil, err
	}

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.roleRepo.Create(ctx, role); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.create", "role", role.ID.String(), macDomain.LevelInternal,
			map[string]any{"name": role.Name},
		))
	})
	if err != nil {
		return nil, err
	}

	return role, nil
}

func (r *roleUseCase) UpdateRole(ctx context.Context, roleID uuid.UUID, input *domain.RoleInput) (*domain.Role, error) {
	role, err := r.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, domain.ErrSystemRole
	}
	if err := r.checkParent(ctx, roleID, input.ParentID); err != nil {
		return nil, err
	}

	role.Name = domain.NormalizeRoleName(input.Name)
	role.Description = input.Description
	role.Level = input.Level
	role.ParentID = input.ParentID
	role.UpdatedAt = database.Now()

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.roleRepo.Update(ctx, role); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.update", "role", role.ID.String(), macDomain.LevelInternal,
			map[string]any{"name": role.Name},
		))
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx)
	return role, nil
}

func (r *roleUseCase) DeleteRole(ctx context.Context, roleID uuid.UUID) error {
	role, err := r.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return domain.ErrSystemRole
	}

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.roleRepo.Delete(ctx, roleID); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.delete", "role", roleID.String(), macDomain.LevelInternal,
			map[string]any{"name": role.Name},
		))
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

func (r *roleUseCase) GetRole(ctx context.Context, roleID uuid.UUID) (*domain.Role, error) {
	return r.roleRepo.GetByID(ctx, roleID)
}

func (r *roleUseCase) ListRoles(ctx context.Context, offset, limit int) ([]*domain.Role, error) {
	return r.roleRepo.List(ctx, offset, limit)
}

func (r *roleUseCase) CreatePermission(
	ctx context.Context,
	key domain.PermissionKey,
	description string,
) (*domain.Permission, error) {
	permission := &domain.Permission{
		ID:          uuid.Must(uuid.NewV7()),
		Resource:    key.Resource,
		Action:      key.Action,
		Description: description,
		CreatedAt:   database.Now(),
	}

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.permissionRepo.Create(ctx, permission); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "permission.create", "permission", permission.ID.String(), macDomain.LevelInternal,
			map[string]any{"permission": key.String()},
		))
	})
	if err != nil {
		return nil, err
	}

	return permission, nil
}

func (r *roleUseCase) ListPermissions(ctx context.Context, offset, limit int) ([]*domain.Permission, error) {
	return r.permissionRepo.List(ctx, offset, limit)
}

// ensurePermission returns the permission for key, registering it when absent.
func (r *roleUseCase) ensurePermission(ctx context.Context, key domain.PermissionKey) (*domain.Permission, error) {
	permission, err := r.permissionRepo.GetByKey(ctx, key)
	if err == nil {
		return permission, nil
	}
	if !errors.Is(err, domain.ErrPermissionNotFound) {
		return nil, err
	}

	permission = &domain.Permission{
		ID:        uuid.Must(uuid.NewV7()),
		Resource:  key.Resource,
		Action:    key.Action,
		CreatedAt: database.Now(),
	}
	if err := r.permissionRepo.Create(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

func (r *roleUseCase) SetRolePermission(
	ctx context.Context,
	roleID uuid.UUID,
	key domain.PermissionKey,
	granted bool,
	conditions map[string]any,
) (*domain.RolePermission, error) {
	var entry *domain.RolePermission
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		role, err := r.roleRepo.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		permission, err := r.ensurePermission(ctx, key)
		if err != nil {
			return err
		}

		entry = &domain.RolePermission{
			RoleID:       role.ID,
			PermissionID: permission.ID,
			Resource:     permission.Resource,
			Action:       permission.Action,
			Granted:      granted,
			Conditions:   conditions,
			CreatedAt:    database.Now(),
		}
		if err := r.roleRepo.SetRolePermission(ctx, entry); err != nil {
			return err
		}

		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.permission.set", "role", role.ID.String(), macDomain.LevelInternal,
			map[string]any{"role": role.Name, "permission": key.String(), "granted": granted},
		))
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx)
	return entry, nil
}

func (r *roleUseCase) RemoveRolePermission(ctx context.Context, roleID uuid.UUID, key domain.PermissionKey) error {
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		permission, err := r.permissionRepo.GetByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := r.roleRepo.RemoveRolePermission(ctx, roleID, permission.ID); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.permission.remove", "role", roleID.String(), macDomain.LevelInternal,
			map[string]any{"permission": key.String()},
		))
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

func (r *roleUseCase) SetUserPermission(
	ctx context.Context,
	userID uuid.UUID,
	key domain.PermissionKey,
	granted bool,
	expiresAt *time.Time,
) (*domain.UserPermission, error) {
	var entry *domain.UserPermission
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.userRepo.GetByID(ctx, userID); err != nil {
			return err
		}
		permission, err := r.ensurePermission(ctx, key)
		if err != nil {
			return err
		}

		entry = &domain.UserPermission{
			UserID:       userID,
			PermissionID: permission.ID,
			Resource:     permission.Resource,
			Action:       permission.Action,
			Granted:      granted,
			ExpiresAt:    expiresAt,
			CreatedAt:    database.Now(),
		}
		if err := r.permissionRepo.SetUserPermission(ctx, entry); err != nil {
			return err
		}

		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "user.permission.set", "user", userID.String(), macDomain.LevelInternal,
			map[string]any{"permission": key.String(), "granted": granted},
		))
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx)
	return entry, nil
}

func (r *roleUseCase) RemoveUserPermission(ctx context.Context, userID uuid.UUID, key domain.PermissionKey) error {
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		permission, err := r.permissionRepo.GetByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := r.permissionRepo.RemoveUserPermission(ctx, userID, permission.ID); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "user.permission.remove", "user", userID.String(), macDomain.LevelInternal,
			map[string]any{"permission": key.String()},
		))
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

// NewRoleUseCase creates role administration.
func NewRoleUseCase(
	txManager database.TxManager,
	roleRepo RoleRepository,
	permissionRepo PermissionRepository,
	userRepo UserRepository,
	cache PermissionCache,
	recorder auditUseCase.Recorder,
	logger *slog.Logger,
) RoleUseCase {
	return &roleUseCase{
		txManager:      txManager,
		roleRepo:       roleRepo,
		permissionRepo: permissionRepo,
		userRepo:       userRepo,
		cache:          cache,
		recorder:       recorder,
		logger:         logger,
	}
}

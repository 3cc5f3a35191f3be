package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/user/domain"
)

const auditResourceType = "user"

type userUseCase struct {
	txManager database.TxManager
	userRepo  UserRepository
	cache     PermissionCache
	recorder  auditUseCase.Recorder
	logger    *slog.Logger
}

// invalidate drops cached permission sets after a committed write. A failure leaves
// entries to expire on their TTL.
func (u *userUseCase) invalidate(ctx context.Context) {
	if err := u.cache.Invalidate(ctx); err != nil {
		u.logger.Error("failed to invalidate permission cache", slog.Any("error", err))
	}
}

// rolesChanged reports whether an update touches anything permission resolution reads.
func rolesChanged(before, after *domain.User) bool {
	if before.LegacyRole != after.LegacyRole || before.IsActive != after.IsActive {
		return true
	}
	switch {
	case before.RoleID == nil && after.RoleID == nil:
		return false
	case before.RoleID == nil || after.RoleID == nil:
		return true
	default:
		return *before.RoleID != *after.RoleID
	}
}

func (u *userUseCase) Create(ctx context.Context, input *domain.CreateUserInput) (*domain.User, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.Must(uuid.NewV7()),
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		RoleID:         input.RoleID,
		LegacyRole:     strings.ToUpper(strings.TrimSpace(input.LegacyRole)),
		TrustedSubject: input.TrustedSubject,
		Clearance:      macDomain.NewLabel(macDomain.LevelPublic, nil),
		Department:     strings.TrimSpace(input.Department),
		Attributes:     input.Attributes,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return u.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "user.create", auditResourceType, user.ID.String(), userAuditLabel(user),
			map[string]any{"email": user.Email, "trusted_subject": user.TrustedSubject},
		))
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (u *userUseCase) Update(
	ctx context.Context,
	userID uuid.UUID,
	input *domain.UpdateUserInput,
) (*domain.User, error) {
	var (
		user    *domain.User
		changed bool
	)

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = u.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		before := *user

		user.Name = strings.TrimSpace(input.Name)
		user.Email = strings.ToLower(strings.TrimSpace(input.Email))
		user.RoleID = input.RoleID
		user.LegacyRole = strings.ToUpper(strings.TrimSpace(input.LegacyRole))
		user.TrustedSubject = input.TrustedSubject
		user.Department = strings.TrimSpace(input.Department)
		user.Attributes = input.Attributes
		user.IsActive = input.IsActive
		user.UpdatedAt = time.Now().UTC()
		changed = rolesChanged(&before, user)

		if err := u.userRepo.Update(ctx, user); err != nil {
			return err
		}

		return u.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "user.update", auditResourceType, user.ID.String(), userAuditLabel(user),
			map[string]any{"is_active": user.IsActive, "trusted_subject": user.TrustedSubject},
		))
	})
	if err != nil {
		return nil, err
	}
	if changed {
		u.invalidate(ctx)
	}

	// Re-read so the resolved primary role name reflects the new RoleID.
	return u.userRepo.GetByID(ctx, userID)
}

func (u *userUseCase) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, userID)
}

func (u *userUseCase) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	return u.userRepo.List(ctx, offset, limit)
}

func (u *userUseCase) Deactivate(ctx context.Context, userID uuid.UUID) error {
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		user, err := u.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		user.IsActive = false
		user.UpdatedAt = time.Now().UTC()
		if err := u.userRepo.Update(ctx, user); err != nil {
			return err
		}

		return u.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "user.deactivate", auditResourceType, user.ID.String(), userAuditLabel(user), nil,
		))
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx)
	return nil
}

// userAuditLabel classifies audit entries about a principal: trusted subjects are
// RESTRICTED, everyone else INTERNAL.
func userAuditLabel(user *domain.User) macDomain.Level {
	if user.TrustedSubject {
		return macDomain.LevelRestricted
	}
	return macDomain.LevelInternal
}

// NewUserUseCase creates a new UserUseCase.
func NewUserUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	cache PermissionCache,
	recorder auditUseCase.Recorder,
	logger *slog.Logger,
) UserUseCase {
	return &userUseCase{
		txManager: txManager,
		userRepo:  userRepo,
		cache:     cache,
		recorder:  recorder,
		logger:    logger,
	}
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/dac/domain"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
)

const (
	sweepBatchSize = 500
	reasonExpired  = "share grant expired"
)

type shareUseCase struct {
	txManager    database.TxManager
	shareRepo    ShareRepository
	resourceRepo ResourceReader
	recorder     auditUseCase.Recorder
	logger       *slog.Logger
}

func (s *shareUseCase) CheckAccess(
	ctx context.Context,
	resourceID, principalID uuid.UUID,
	permission domain.Permission,
) (domain.Decision, error) {
	var resource *resourceDomain.Resource
	var grant *domain.ShareGrant

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resource, err = s.resourceRepo.GetByID(gctx, resourceID)
		return err
	})
	g.Go(func() error {
		found, err := s.shareRepo.GetByResourceAndPrincipal(gctx, resourceID, principalID)
		if errors.Is(err, domain.ErrGrantNotFound) {
			return nil
		}
		grant = found
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Decision{}, err
	}

	return domain.CheckAccess(resource.OwnerID, principalID, grant, permission, database.Now()), nil
}

// authorizeSharer returns the actor's own grant when the actor is not the owner.
// Calls without an actor (CLI, sweeps) are trusted.
func (s *shareUseCase) authorizeSharer(
	ctx context.Context,
	resource *resourceDomain.Resource,
	now time.Time,
) (*domain.ShareGrant, error) {
	actorID := auditDomain.ActorIDFromContext(ctx)
	if actorID == uuid.Nil || resource.IsOwnedBy(actorID) {
		return nil, nil
	}

	own, err := s.shareRepo.GetByResourceAndPrincipal(ctx, resource.ID, actorID)
	if errors.Is(err, domain.ErrGrantNotFound) {
		return nil, domain.ErrNotShareable
	}
	if err != nil {
		return nil, err
	}
	if !own.IsEffective(now) || !own.Permissions.Has(domain.PermissionShare) {
		return nil, domain.ErrNotShareable
	}
	return own, nil
}

func (s *shareUseCase) Grant(ctx context.Context, input *domain.GrantInput) (*domain.ShareGrant, error) {
	if input.Permissions == 0 || input.Permissions&^domain.PermissionAll != 0 {
		return nil, domain.ErrInvalidPermission
	}

	now := database.Now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "expiry must be in the future")
	}

	var grant *domain.ShareGrant
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		resource, err := s.resourceRepo.GetByID(ctx, input.ResourceID)
		if err != nil {
			return err
		}
		if resource.IsOwnedBy(input.PrincipalID) {
			return domain.ErrShareWithOwner
		}

		own, err := s.authorizeSharer(ctx, resource, now)
		if err != nil {
			return err
		}
		if own != nil && !own.Permissions.Has(input.Permissions) {
			return domain.ErrShareExceedsOwn
		}

		var grantedBy *uuid.UUID
		if actorID := auditDomain.ActorIDFromContext(ctx); actorID != uuid.Nil {
			grantedBy = &actorID
		}

		existing, err := s.shareRepo.GetByResourceAndPrincipal(ctx, input.ResourceID, input.PrincipalID)
		switch {
		case errors.Is(err, domain.ErrGrantNotFound):
			grant = &domain.ShareGrant{
				ID:          uuid.Must(uuid.NewV7()),
				ResourceID:  input.ResourceID,
				PrincipalID: input.PrincipalID,
				Permissions: input.Permissions,
				GrantedBy:   grantedBy,
				ExpiresAt:   input.ExpiresAt,
				Active:      true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.shareRepo.Create(ctx, grant); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			existing.Extend(input.Permissions, input.ExpiresAt, grantedBy, now)
			if err := s.shareRepo.Update(ctx, existing); err != nil {
				return err
			}
			grant = existing
		}

		return s.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "share.grant", "share_grant", grant.ID.String(), resource.Label.Level,
			map[string]any{
				"resource_id":  resource.ID.String(),
				"principal_id": grant.PrincipalID.String(),
				"permissions":  grant.Permissions.Names(),
			},
		))
	})
	if err != nil {
		return nil, err
	}

	return grant, nil
}

func (s *shareUseCase) Revoke(ctx context.Context, grantID uuid.UUID, reason string) (*domain.ShareGrant, error) {
	now := database.Now()

	var grant *domain.ShareGrant
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.shareRepo.GetByID(ctx, grantID)
		if err != nil {
			return err
		}
		resource, err := s.resourceRepo.GetByID(ctx, current.ResourceID)
		if err != nil {
			return err
		}

		// A principal may always drop its own grant.
		if auditDomain.ActorIDFromContext(ctx) != current.PrincipalID {
			if _, err := s.authorizeSharer(ctx, resource, now); err != nil {
				return err
			}
		}

		if err := current.Deactivate(reason, now); err != nil {
			return err
		}
		if err := s.shareRepo.Update(ctx, current); err != nil {
			return err
		}
		grant = current

		return s.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "share.revoke", "share_grant", current.ID.String(), resource.Label.Level,
			map[string]any{
				"resource_id":  resource.ID.String(),
				"principal_id": current.PrincipalID.String(),
				"reason":       reason,
			},
		))
	})
	if err != nil {
		return nil, err
	}

	return grant, nil
}

func (s *shareUseCase) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.ShareGrant, error) {
	if _, err := s.resourceRepo.GetByID(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.shareRepo.ListByResource(ctx, resourceID)
}

func (s *shareUseCase) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*domain.ShareGrant, error) {
	return s.shareRepo.ListByPrincipal(ctx, principalID)
}

func (s *shareUseCase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.shareRepo.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range due {
		err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
			grant, err := s.shareRepo.GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if err := grant.Deactivate(reasonExpired, now); err != nil {
				return err
			}
			if err := s.shareRepo.Update(ctx, grant); err != nil {
				return err
			}
			return s.recorder.Record(ctx, auditDomain.Mutation(
				ctx, "share.expire", "share_grant", grant.ID.String(), macDomain.LevelInternal,
				map[string]any{
					"resource_id":  grant.ResourceID.String(),
					"principal_id": grant.PrincipalID.String(),
				},
			))
		})
		if errors.Is(err, domain.ErrGrantInactive) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired share grants", slog.Int("count", expired))
	}

	return expired, nil
}

// NewShareUseCase creates a new ShareUseCase.
func NewShareUseCase(
	txManager database.TxManager,
	shareRepo ShareRepository,
	resourceRepo ResourceReader,
	recorder auditUseCase.Recorder,
	logger *slog.Logger,
) ShareUseCase {
	return &shareUseCase{
		txManager:    txManager,
		shareRepo:    shareRepo,
		resourceRepo: resourceRepo,
		recorder:     recorder,
		logger:       logger,
	}
}

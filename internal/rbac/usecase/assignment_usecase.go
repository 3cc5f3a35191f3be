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

// sweepBatchSize bounds how many rows one sweep or review listing handles.
const sweepBatchSize = 500

const reasonExpired = "assignment expired"

type assignmentUseCase struct {
	txManager      database.TxManager
	roleRepo       RoleRepository
	assignmentRepo AssignmentRepository
	userRepo       UserRepository
	cache          PermissionCache
	recorder       auditUseCase.Recorder
	reviewInterval time.Duration
	leadWindow     time.Duration
	logger         *slog.Logger
}

func (a *assignmentUseCase) invalidate(ctx context.Context) {
	if err := a.cache.Invalidate(ctx); err != nil {
		a.logger.Error("failed to invalidate permission cache", slog.Any("error", err))
	}
}

func (a *assignmentUseCase) actorRef(ctx context.Context) *uuid.UUID {
	actorID := auditDomain.ActorIDFromContext(ctx)
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}

func (a *assignmentUseCase) Assign(
	ctx context.Context,
	input *domain.AssignRoleInput,
) (*domain.RoleAssignment, error) {
	role, err := a.roleRepo.GetByID(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	now := database.Now()
	nextReview := now.Add(a.reviewInterval)
	assignedBy := a.actorRef(ctx)

	var assignment *domain.RoleAssignment
	err = a.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := a.userRepo.GetByID(ctx, input.UserID); err != nil {
			return err
		}

		existing, err := a.assignmentRepo.GetByUserAndRole(ctx, input.UserID, input.RoleID)
		switch {
		case errors.Is(err, domain.ErrAssignmentNotFound):
			assignment = &domain.RoleAssignment{
				ID:           uuid.Must(uuid.NewV7()),
				UserID:       input.UserID,
				RoleID:       role.ID,
				RoleName:     role.Name,
				Status:       domain.AssignmentActive,
				AssignedBy:   assignedBy,
				ExpiresAt:    input.ExpiresAt,
				NextReviewAt: &nextReview,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := a.assignmentRepo.Create(ctx, assignment); err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.IsEffective(now):
			return domain.ErrAssignmentActive
		default:
			existing.Reactivate(assignedBy, input.ExpiresAt, &nextReview, now)
			if err := a.assignmentRepo.Update(ctx, existing); err != nil {
				return err
			}
			assignment = existing
		}

		return a.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "role.assign", "role_assignment", assignment.ID.String(), macDomain.LevelInternal,
			map[string]any{"user_id": input.UserID.String(), "role": role.Name},
		))
	})
	if err != nil {
		return nil, err
	}

	a.invalidate(ctx)
	return assignment, nil
}

// transition loads an assignment, applies fn and persists it with one audit record.
func (a *assignmentUseCase) transition(
	ctx context.Context,
	assignmentID uuid.UUID,
	action string,
	fn func(ctx context.Context, assignment *domain.RoleAssignment) (map[string]any, error),
) (*domain.RoleAssignment, error) {
	var assignment *domain.RoleAssignment
	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := a.assignmentRepo.GetByID(ctx, assignmentID)
		if err != nil {
			return err
		}

		metadata, err := fn(ctx, current)
		if err != nil {
			return err
		}
		if err := a.assignmentRepo.Update(ctx, current); err != nil {
			return err
		}
		assignment = current

		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["user_id"] = current.UserID.String()
		metadata["role"] = current.RoleName
		metadata["status"] = string(current.Status)

		return a.recorder.Record(ctx, auditDomain.Mutation(
			ctx, action, "role_assignment", current.ID.String(), macDomain.LevelInternal, metadata,
		))
	})
	if err != nil {
		return nil, err
	}

	a.invalidate(ctx)
	return assignment, nil
}

func (a *assignmentUseCase) Revoke(
	ctx context.Context,
	assignmentID uuid.UUID,
	reason string,
) (*domain.RoleAssignment, error) {
	return a.transition(ctx, assignmentID, "role.revoke",
		func(_ context.Context, assignment *domain.RoleAssignment) (map[string]any, error) {
			return map[string]any{"reason": reason},
				assignment.Transition(domain.AssignmentRevoked, reason, database.Now())
		},
	)
}

func (a *assignmentUseCase) Get(ctx context.Context, assignmentID uuid.UUID) (*domain.RoleAssignment, error) {
	return a.assignmentRepo.GetByID(ctx, assignmentID)
}

func (a *assignmentUseCase) List(
	ctx context.Context,
	filter domain.AssignmentFilter,
	offset, limit int,
) ([]*domain.RoleAssignment, error) {
	return a.assignmentRepo.List(ctx, filter, offset, limit)
}

func (a *assignmentUseCase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := a.assignmentRepo.ListExpiring(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, assignment := range due {
		_, err := a.transition(ctx, assignment.ID, "role.expire",
			func(_ context.Context, current *domain.RoleAssignment) (map[string]any, error) {
				return nil, current.Transition(domain.AssignmentExpired, reasonExpired, now)
			},
		)
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Revoked or suspended concurrently.
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	return expired, nil
}

func (a *assignmentUseCase) ListDueForReview(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error) {
	return a.assignmentRepo.ListDueForReview(ctx, now.Add(a.leadWindow), sweepBatchSize)
}

func (a *assignmentUseCase) CompleteReview(
	ctx context.Context,
	assignmentID uuid.UUID,
	outcome domain.ReviewOutcome,
	reason string,
) (*domain.RoleAssignment, error) {
	now := database.Now()

	switch outcome {
	case domain.ReviewApproved:
		return a.transition(ctx, assignmentID, "role.review.approve",
			func(_ context.Context, assignment *domain.RoleAssignment) (map[string]any, error) {
				if assignment.Status != domain.AssignmentActive {
					return nil, domain.ErrInvalidTransition
				}
				next := now.Add(a.reviewInterval)
				assignment.LastReviewedAt = &now
				assignment.NextReviewAt = &next
				assignment.UpdatedAt = now
				return map[string]any{"outcome": string(outcome)}, nil
			},
		)
	case domain.ReviewFailed:
		return a.transition(ctx, assignmentID, "role.review.fail",
			func(ctx context.Context, assignment *domain.RoleAssignment) (map[string]any, error) {
				if err := assignment.Transition(domain.AssignmentSuspended, reason, now); err != nil {
					return nil, err
				}
				assignment.LastReviewedAt = &now
				assignment.NextReviewAt = nil

				cleared, err := a.userRepo.ClearPrimaryRole(ctx, assignment.UserID, assignment.RoleID)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"outcome":              string(outcome),
					"reason":               reason,
					"primary_role_revoked": cleared,
				}, nil
			},
		)
	default:
		return nil, domain.ErrInvalidReviewOutcome
	}
}

// NewAssignmentUseCase creates the assignment lifecycle use case.
func NewAssignmentUseCase(
	txManager database.TxManager,
	roleRepo RoleRepository,
	assignmentRepo AssignmentRepository,
	userRepo UserRepository,
	cache PermissionCache,
	recorder auditUseCase.Recorder,
	reviewInterval, leadWindow time.Duration,
	logger *slog.Logger,
) AssignmentUseCase {
	return &assignmentUseCase{
		txManager:      txManager,
		roleRepo:       roleRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		cache:          cache,
		recorder:       recorder,
		reviewInterval: reviewInterval,
		leadWindow:     leadWindow,
		logger:         logger,
	}
}

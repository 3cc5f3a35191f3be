package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
)

const auditResourceType = "resource"

type resourceUseCase struct {
	txManager    database.TxManager
	resourceRepo ResourceRepository
	principals   PrincipalReader
	recorder     auditUseCase.Recorder
}

func (r *resourceUseCase) Register(
	ctx context.Context,
	input *domain.RegisterResourceInput,
) (*domain.Resource, error) {
	label := macDomain.NewLabel(input.Label.Level, input.Label.Compartments)
	if label.Level == "" {
		label.Level = macDomain.LevelInternal
	}
	if !label.Level.IsValid() {
		return nil, macDomain.ErrInvalidLevel
	}

	if err := r.checkClassify(ctx, label.Level); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resource := &domain.Resource{
		ID:         uuid.Must(uuid.NewV7()),
		Type:       strings.TrimSpace(input.Type),
		ExternalID: strings.TrimSpace(input.ExternalID),
		OwnerID:    input.OwnerID,
		Label:      label,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.resourceRepo.Create(ctx, resource); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "resource.register", resource.Type, resource.ExternalID, label.Level,
			map[string]any{"level": string(label.Level), "compartments": []string(label.Compartments)},
		))
	})
	if err != nil {
		return nil, err
	}

	return resource, nil
}

// checkClassify applies the classify rule to the acting principal. Calls without an
// actor (CLI and background jobs) are not restricted.
func (r *resourceUseCase) checkClassify(ctx context.Context, level macDomain.Level) error {
	actorID := auditDomain.ActorIDFromContext(ctx)
	if actorID == uuid.Nil {
		return nil
	}

	actor, err := r.principals.GetByID(ctx, actorID)
	if err != nil {
		return err
	}

	decision := macDomain.CanClassify(actor.Clearance.Level, level, actor.TrustedSubject)
	if !decision.Allowed {
		return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
	}
	return nil
}

func (r *resourceUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	return r.resourceRepo.GetByID(ctx, id)
}

func (r *resourceUseCase) GetByRef(
	ctx context.Context,
	resourceType, externalID string,
) (*domain.Resource, error) {
	return r.resourceRepo.GetByRef(ctx, resourceType, externalID)
}

func (r *resourceUseCase) List(
	ctx context.Context,
	resourceType string,
	offset, limit int,
) ([]*domain.Resource, error) {
	return r.resourceRepo.List(ctx, resourceType, offset, limit)
}

func (r *resourceUseCase) ListAttributes(ctx context.Context, id uuid.UUID) ([]*domain.Attribute, error) {
	if _, err := r.resourceRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return r.resourceRepo.ListAttributes(ctx, id)
}

func (r *resourceUseCase) SetAttribute(
	ctx context.Context,
	id uuid.UUID,
	name string,
	value any,
) (*domain.Attribute, error) {
	name = strings.TrimSpace(name)
	if domain.IsReservedAttribute(name) {
		return nil, domain.ErrReservedAttribute
	}

	attribute := &domain.Attribute{
		ResourceID: id,
		Name:       name,
		Value:      value,
		Calculated: false,
		Source:     domain.SourceDeclared,
		UpdatedAt:  time.Now().UTC(),
	}

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		resource, err := r.resourceRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.resourceRepo.UpsertAttribute(ctx, attribute); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "resource.attribute.set", resource.Type, resource.ExternalID, resource.Label.Level,
			map[string]any{"attribute": name},
		))
	})
	if err != nil {
		return nil, err
	}

	return attribute, nil
}

func (r *resourceUseCase) DeleteAttribute(ctx context.Context, id uuid.UUID, name string) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		resource, err := r.resourceRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.resourceRepo.DeleteAttribute(ctx, id, name); err != nil {
			return err
		}
		return r.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "resource.attribute.delete", resource.Type, resource.ExternalID, resource.Label.Level,
			map[string]any{"attribute": name},
		))
	})
}

// NewResourceUseCase creates a new ResourceUseCase.
func NewResourceUseCase(
	txManager database.TxManager,
	resourceRepo ResourceRepository,
	principals PrincipalReader,
	recorder auditUseCase.Recorder,
) ResourceUseCase {
	return &resourceUseCase{
		txManager:    txManager,
		resourceRepo: resourceRepo,
		principals:   principals,
		recorder:     recorder,
	}
}

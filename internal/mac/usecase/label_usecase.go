package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	abacService "github.com/allisson/accessgate/internal/abac/service"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/database"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// Calculated attribute names written by auto-classification.
const (
	AttributeClassification             = "classification"
	AttributeClassificationCompartments = "classificationCompartments"
)

const reasonGrantAboveSubject = "cannot grant clearance above own"

// ErrLowerWithClassify indicates a classify request that would lower the level.
var ErrLowerWithClassify = apperrors.Wrap(apperrors.ErrInvalidInput, "use declassify to lower a level")

type labelUseCase struct {
	txManager    database.TxManager
	userRepo     UserRepository
	resourceRepo ResourceRepository
	classifier   ContentClassifier
	recorder     auditUseCase.Recorder
}

// actor returns the acting principal, or nil for calls made without one (CLI, jobs).
func (l *labelUseCase) actor(ctx context.Context) (*userDomain.User, error) {
	actorID := auditDomain.ActorIDFromContext(ctx)
	if actorID == uuid.Nil {
		return nil, nil
	}
	return l.userRepo.GetByID(ctx, actorID)
}

func (l *labelUseCase) GrantClearance(
	ctx context.Context,
	userID uuid.UUID,
	clearance macDomain.Label,
) (*userDomain.User, error) {
	clearance = macDomain.NewLabel(clearance.Level, clearance.Compartments)
	if !clearance.Level.IsValid() {
		return nil, macDomain.ErrInvalidLevel
	}

	actor, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor != nil && !actor.TrustedSubject && !actor.Clearance.Dominates(clearance) {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, reasonGrantAboveSubject)
	}

	var user *userDomain.User
	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := l.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := l.userRepo.UpdateClearance(ctx, userID, clearance); err != nil {
			return err
		}

		previous := current.Clearance
		current.Clearance = clearance
		user = current

		return l.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "clearance.grant", "user", userID.String(),
			macDomain.MaxLevel(previous.Level, clearance.Level),
			map[string]any{"level": string(clearance.Level), "compartments": []string(clearance.Compartments)},
		))
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (l *labelUseCase) Classify(
	ctx context.Context,
	resourceID uuid.UUID,
	label macDomain.Label,
) (*resourceDomain.Resource, error) {
	label = macDomain.NewLabel(label.Level, label.Compartments)

	actor, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		decision := macDomain.CanClassify(actor.Clearance.Level, label.Level, actor.TrustedSubject)
		if !decision.Allowed {
			return nil, apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
		}
	} else if !label.Level.IsValid() {
		return nil, macDomain.ErrInvalidLevel
	}

	return l.relabel(ctx, resourceID, label, "resource.classify", func(current macDomain.Label) error {
		if label.Level.Rank() < current.Level.Rank() {
			return ErrLowerWithClassify
		}
		if actor == nil {
			return nil
		}
		decision := macDomain.CanRelabel(actor.Clearance, current, label, actor.TrustedSubject)
		if !decision.Allowed {
			return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
		}
		return nil
	})
}

func (l *labelUseCase) Declassify(
	ctx context.Context,
	resourceID uuid.UUID,
	label macDomain.Label,
) (*resourceDomain.Resource, error) {
	label = macDomain.NewLabel(label.Level, label.Compartments)
	if !label.Level.IsValid() {
		return nil, macDomain.ErrInvalidLevel
	}

	actor, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	trusted := actor == nil || actor.TrustedSubject

	return l.relabel(ctx, resourceID, label, "resource.declassify", func(current macDomain.Label) error {
		decision := macDomain.CanDeclassify(current.Level, label.Level, trusted)
		if !decision.Allowed {
			if trusted {
				return apperrors.Wrap(apperrors.ErrInvalidInput, decision.Reason)
			}
			return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
		}
		return nil
	})
}

// relabel loads the resource, runs check against its current label and stores the new
// label together with its audit record.
func (l *labelUseCase) relabel(
	ctx context.Context,
	resourceID uuid.UUID,
	label macDomain.Label,
	action string,
	check func(current macDomain.Label) error,
) (*resourceDomain.Resource, error) {
	var resource *resourceDomain.Resource
	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := l.resourceRepo.GetByID(ctx, resourceID)
		if err != nil {
			return err
		}
		if err := check(current.Label); err != nil {
			return err
		}
		if err := l.resourceRepo.UpdateLabel(ctx, resourceID, label); err != nil {
			return err
		}

		previous := current.Label
		current.Label = label
		current.UpdatedAt = time.Now().UTC()
		resource = current

		return l.recorder.Record(ctx, auditDomain.Mutation(
			ctx, action, current.Type, current.ExternalID,
			macDomain.MaxLevel(previous.Level, label.Level),
			map[string]any{
				"from":         string(previous.Level),
				"to":           string(label.Level),
				"compartments": []string(label.Compartments),
			},
		))
	})
	if err != nil {
		return nil, err
	}

	return resource, nil
}

func (l *labelUseCase) AutoClassify(
	ctx context.Context,
	resourceID uuid.UUID,
	text string,
	apply bool,
) (*AutoClassification, error) {
	result := l.classifier.Classify(text)

	actor, err := l.actor(ctx)
	if err != nil {
		return nil, err
	}
	if apply && actor != nil {
		decision := macDomain.CanClassify(actor.Clearance.Level, result.Label.Level, actor.TrustedSubject)
		if !decision.Allowed {
			return nil, apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
		}
	}

	outcome := &AutoClassification{Classification: result}
	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		resource, err := l.resourceRepo.GetByID(ctx, resourceID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		calculated := []*resourceDomain.Attribute{
			{Name: AttributeClassification, Value: string(result.Label.Level)},
			{Name: AttributeClassificationCompartments, Value: []string(result.Label.Compartments)},
		}
		for _, attribute := range calculated {
			attribute.ResourceID = resourceID
			attribute.Calculated = true
			attribute.Source = resourceDomain.SourceAutoClassifier
			attribute.UpdatedAt = now
			if err := l.resourceRepo.UpsertAttribute(ctx, attribute); err != nil {
				return err
			}
		}

		previous := resource.Label
		if apply && result.Label.Level.Rank() > previous.Level.Rank() {
			compartments := append([]string{}, previous.Compartments...)
			compartments = append(compartments, result.Label.Compartments...)
			raised := macDomain.NewLabel(result.Label.Level, compartments)
			if actor != nil {
				decision := macDomain.CanRelabel(actor.Clearance, previous, raised, actor.TrustedSubject)
				if !decision.Allowed {
					return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
				}
			}
			if err := l.resourceRepo.UpdateLabel(ctx, resourceID, raised); err != nil {
				return err
			}
			resource.Label = raised
			resource.UpdatedAt = now
			outcome.Applied = true
		}
		outcome.Resource = resource

		return l.recorder.Record(ctx, auditDomain.Mutation(
			ctx, "resource.auto_classify", resource.Type, resource.ExternalID,
			macDomain.MaxLevel(previous.Level, result.Label.Level),
			map[string]any{
				"level":        string(result.Label.Level),
				"compartments": []string(result.Label.Compartments),
				"applied":      outcome.Applied,
			},
		))
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func (l *labelUseCase) ClassifyText(text string) abacService.Classification {
	return l.classifier.Classify(text)
}

// NewLabelUseCase creates a new LabelUseCase.
func NewLabelUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	resourceRepo ResourceRepository,
	classifier ContentClassifier,
	recorder auditUseCase.Recorder,
) LabelUseCase {
	return &labelUseCase{
		txManager:    txManager,
		userRepo:     userRepo,
		resourceRepo: resourceRepo,
		classifier:   classifier,
		recorder:     recorder,
	}
}

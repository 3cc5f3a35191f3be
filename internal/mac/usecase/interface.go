// Package usecase implements clearance grants and resource classification.
package usecase

import (
	"context"

	"github.com/google/uuid"

	abacService "github.com/allisson/accessgate/internal/abac/service"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

// UserRepository is the subset of principal persistence used for clearance changes.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	UpdateClearance(ctx context.Context, userID uuid.UUID, clearance macDomain.Label) error
}

// ResourceRepository is the subset of resource persistence used for labelling.
type ResourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error)
	UpdateLabel(ctx context.Context, id uuid.UUID, label macDomain.Label) error
	UpsertAttribute(ctx context.Context, attribute *resourceDomain.Attribute) error
}

// ContentClassifier derives a label from free text.
type ContentClassifier interface {
	Classify(text string) abacService.Classification
}

// AutoClassification is the outcome of classifying a resource from its content.
type AutoClassification struct {
	Classification abacService.Classification
	Resource       *resourceDomain.Resource
	Applied        bool
}

// LabelUseCase defines MAC administration. Every mutation emits one audit record
// labelled with the higher of the old and new levels.
type LabelUseCase interface {
	// GrantClearance sets a principal's clearance. An untrusted actor cannot grant a
	// clearance its own clearance does not dominate.
	GrantClearance(ctx context.Context, userID uuid.UUID, clearance macDomain.Label) (*userDomain.User, error)

	// Classify raises a resource label or changes its compartments at the same level.
	Classify(ctx context.Context, resourceID uuid.UUID, label macDomain.Label) (*resourceDomain.Resource, error)

	// Declassify lowers a resource label. Only trusted subjects may declassify.
	Declassify(ctx context.Context, resourceID uuid.UUID, label macDomain.Label) (*resourceDomain.Resource, error)

	// AutoClassify classifies text on behalf of a resource and stores the result as
	// calculated attributes. When apply is set and the result is above the current
	// level, the resource label is raised.
	AutoClassify(ctx context.Context, resourceID uuid.UUID, text string, apply bool) (*AutoClassification, error)

	// ClassifyText classifies text without touching any resource.
	ClassifyText(text string) abacService.Classification
}

package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	abacService "github.com/allisson/accessgate/internal/abac/service"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditMocks "github.com/allisson/accessgate/internal/audit/usecase/mocks"
	databaseMocks "github.com/allisson/accessgate/internal/database/mocks"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	resourceDomain "github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateClearance(ctx context.Context, userID uuid.UUID, clearance macDomain.Label) error {
	args := m.Called(ctx, userID, clearance)
	return args.Error(0)
}

type mockResourceRepository struct {
	mock.Mock
}

func (m *mockResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*resourceDomain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resourceDomain.Resource), args.Error(1)
}

func (m *mockResourceRepository) UpdateLabel(ctx context.Context, id uuid.UUID, label macDomain.Label) error {
	args := m.Called(ctx, id, label)
	return args.Error(0)
}

func (m *mockResourceRepository) UpsertAttribute(ctx context.Context, attribute *resourceDomain.Attribute) error {
	args := m.Called(ctx, attribute)
	return args.Error(0)
}

func actorContext(actor *userDomain.User, users *mockUserRepository) context.Context {
	ctx := auditDomain.WithActorID(context.Background(), actor.ID)
	users.On("GetByID", ctx, actor.ID).Return(actor, nil).Maybe()
	return ctx
}

func newActor(level macDomain.Level, trusted bool, compartments ...string) *userDomain.User {
	return &userDomain.User{
		ID:             uuid.Must(uuid.NewV7()),
		Clearance:      macDomain.NewLabel(level, compartments),
		TrustedSubject: trusted,
		IsActive:       true,
	}
}

func newUseCase(t *testing.T, users *mockUserRepository, resources *mockResourceRepository) (LabelUseCase, *databaseMocks.MockTxManager) {
	txManager := databaseMocks.NewMockTxManager(t)
	classifier := abacService.NewClassifier(abacService.DefaultKeywordConfig())
	return NewLabelUseCase(txManager, users, resources, classifier, auditMocks.NopRecorder{}), txManager
}

func TestLabelUseCase_GrantClearance(t *testing.T) {
	targetID := uuid.Must(uuid.NewV7())

	t.Run("Success_ActorDominates", func(t *testing.T) {
		users := &mockUserRepository{}
		uc, txManager := newUseCase(t, users, &mockResourceRepository{})
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelTopSecret, false, "FINANCIAL"), users)
		clearance := macDomain.NewLabel(macDomain.LevelRestricted, []string{"financial"})

		users.On("GetByID", ctx, targetID).Return(&userDomain.User{ID: targetID}, nil).Once()
		users.On("UpdateClearance", ctx, targetID, clearance).Return(nil).Once()

		user, err := uc.GrantClearance(ctx, targetID, clearance)

		require.NoError(t, err)
		assert.Equal(t, clearance, user.Clearance)
		users.AssertExpectations(t)
	})

	t.Run("Error_CompartmentNotHeld", func(t *testing.T) {
		users := &mockUserRepository{}
		uc, _ := newUseCase(t, users, &mockResourceRepository{})

		ctx := actorContext(newActor(macDomain.LevelTopSecret, false), users)

		_, err := uc.GrantClearance(ctx, targetID, macDomain.NewLabel(macDomain.LevelPublic, []string{"PERSONNEL"}))

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		users.AssertNotCalled(t, "UpdateClearance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_TrustedActorGrantsAnything", func(t *testing.T) {
		users := &mockUserRepository{}
		uc, txManager := newUseCase(t, users, &mockResourceRepository{})
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelPublic, true), users)
		clearance := macDomain.NewLabel(macDomain.LevelTopSecret, []string{"OPERATIONAL"})

		users.On("GetByID", ctx, targetID).Return(&userDomain.User{ID: targetID}, nil).Once()
		users.On("UpdateClearance", ctx, targetID, clearance).Return(nil).Once()

		_, err := uc.GrantClearance(ctx, targetID, clearance)
		require.NoError(t, err)
	})

	t.Run("Error_InvalidLevel", func(t *testing.T) {
		uc, _ := newUseCase(t, &mockUserRepository{}, &mockResourceRepository{})
		_, err := uc.GrantClearance(context.Background(), targetID, macDomain.Label{Level: "NOPE"})
		assert.ErrorIs(t, err, macDomain.ErrInvalidLevel)
	})
}

func TestLabelUseCase_Classify(t *testing.T) {
	resourceID := uuid.Must(uuid.NewV7())
	current := func() *resourceDomain.Resource {
		return &resourceDomain.Resource{
			ID:    resourceID,
			Type:  "document",
			Label: macDomain.NewLabel(macDomain.LevelConfidential, nil),
		}
	}

	t.Run("Success_Raise", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelRestricted, false), users)
		label := macDomain.NewLabel(macDomain.LevelRestricted, nil)

		resources.On("GetByID", ctx, resourceID).Return(current(), nil).Once()
		resources.On("UpdateLabel", ctx, resourceID, label).Return(nil).Once()

		resource, err := uc.Classify(ctx, resourceID, label)

		require.NoError(t, err)
		assert.Equal(t, macDomain.LevelRestricted, resource.Label.Level)
		resources.AssertExpectations(t)
	})

	t.Run("Error_AboveOwnClearance", func(t *testing.T) {
		users := &mockUserRepository{}
		uc, _ := newUseCase(t, users, &mockResourceRepository{})

		ctx := actorContext(newActor(macDomain.LevelConfidential, false), users)

		_, err := uc.Classify(ctx, resourceID, macDomain.NewLabel(macDomain.LevelTopSecret, nil))

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		assert.Contains(t, err.Error(), macDomain.ReasonClassifyAboveSubject)
	})

	t.Run("Error_LowerRequiresDeclassify", func(t *testing.T) {
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, &mockUserRepository{}, resources)
		databaseMocks.PassThrough(txManager).Once()

		resources.On("GetByID", context.Background(), resourceID).Return(current(), nil).Once()

		_, err := uc.Classify(context.Background(), resourceID, macDomain.NewLabel(macDomain.LevelPublic, nil))

		assert.ErrorIs(t, err, ErrLowerWithClassify)
		resources.AssertNotCalled(t, "UpdateLabel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_UntrustedDropsCompartment", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelConfidential, false), users)
		personnel := &resourceDomain.Resource{
			ID:    resourceID,
			Type:  "document",
			Label: macDomain.NewLabel(macDomain.LevelConfidential, []string{"PERSONNEL"}),
		}
		resources.On("GetByID", ctx, resourceID).Return(personnel, nil).Once()

		_, err := uc.Classify(ctx, resourceID, macDomain.NewLabel(macDomain.LevelConfidential, nil))

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		assert.Contains(t, err.Error(), macDomain.ReasonDeclassifyUntrusted)
		resources.AssertNotCalled(t, "UpdateLabel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_UntrustedAddsCompartmentNotHeld", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelRestricted, false, "FINANCIAL"), users)
		resources.On("GetByID", ctx, resourceID).Return(current(), nil).Once()

		_, err := uc.Classify(ctx, resourceID, macDomain.NewLabel(macDomain.LevelConfidential, []string{"PERSONNEL"}))

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		assert.Contains(t, err.Error(), macDomain.ReasonCompartmentNotHeld)
		resources.AssertNotCalled(t, "UpdateLabel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_UntrustedAddsHeldCompartment", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelRestricted, false, "FINANCIAL"), users)
		label := macDomain.NewLabel(macDomain.LevelConfidential, []string{"FINANCIAL"})
		resources.On("GetByID", ctx, resourceID).Return(current(), nil).Once()
		resources.On("UpdateLabel", ctx, resourceID, label).Return(nil).Once()

		resource, err := uc.Classify(ctx, resourceID, label)

		require.NoError(t, err)
		assert.Equal(t, macDomain.Compartments{"FINANCIAL"}, resource.Label.Compartments)
	})

	t.Run("Success_TrustedDropsCompartment", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelPublic, true), users)
		label := macDomain.NewLabel(macDomain.LevelConfidential, nil)
		resources.On("GetByID", ctx, resourceID).Return(&resourceDomain.Resource{
			ID:    resourceID,
			Label: macDomain.NewLabel(macDomain.LevelConfidential, []string{"PERSONNEL"}),
		}, nil).Once()
		resources.On("UpdateLabel", ctx, resourceID, label).Return(nil).Once()

		_, err := uc.Classify(ctx, resourceID, label)

		require.NoError(t, err)
		resources.AssertExpectations(t)
	})
}

func TestLabelUseCase_Declassify(t *testing.T) {
	resourceID := uuid.Must(uuid.NewV7())
	current := &resourceDomain.Resource{ID: resourceID, Label: macDomain.NewLabel(macDomain.LevelRestricted, nil)}

	t.Run("Error_UntrustedActor", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelTopSecret, false), users)
		resources.On("GetByID", ctx, resourceID).Return(current, nil).Once()

		_, err := uc.Declassify(ctx, resourceID, macDomain.NewLabel(macDomain.LevelInternal, nil))

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		assert.Contains(t, err.Error(), macDomain.ReasonDeclassifyUntrusted)
	})

	t.Run("Success_TrustedActor", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelPublic, true), users)
		label := macDomain.NewLabel(macDomain.LevelInternal, nil)
		resources.On("GetByID", ctx, resourceID).Return(current, nil).Once()
		resources.On("UpdateLabel", ctx, resourceID, label).Return(nil).Once()

		resource, err := uc.Declassify(ctx, resourceID, label)

		require.NoError(t, err)
		assert.Equal(t, macDomain.LevelInternal, resource.Label.Level)
	})

	t.Run("Error_NotLower", func(t *testing.T) {
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, &mockUserRepository{}, resources)
		databaseMocks.PassThrough(txManager).Once()

		resources.On("GetByID", context.Background(), resourceID).
			Return(&resourceDomain.Resource{ID: resourceID, Label: macDomain.NewLabel(macDomain.LevelInternal, nil)}, nil).
			Once()

		_, err := uc.Declassify(context.Background(), resourceID, macDomain.NewLabel(macDomain.LevelRestricted, nil))
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestLabelUseCase_AutoClassify(t *testing.T) {
	resourceID := uuid.Must(uuid.NewV7())

	t.Run("Success_StoresCalculatedAttributesAndRaises", func(t *testing.T) {
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, &mockUserRepository{}, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := context.Background()
		resources.On("GetByID", ctx, resourceID).Return(&resourceDomain.Resource{
			ID:    resourceID,
			Type:  "document",
			Label: macDomain.NewLabel(macDomain.LevelInternal, []string{"OPERATIONAL"}),
		}, nil).Once()
		resources.On("UpsertAttribute", ctx, mock.MatchedBy(func(a *resourceDomain.Attribute) bool {
			return a.Calculated && a.Source == resourceDomain.SourceAutoClassifier
		})).Return(nil).Twice()
		resources.On("UpdateLabel", ctx, resourceID,
			macDomain.NewLabel(macDomain.LevelConfidential, []string{"OPERATIONAL", "FINANCIAL"})).Return(nil).Once()

		outcome, err := uc.AutoClassify(ctx, resourceID, "Quarterly salary budget", true)

		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, macDomain.LevelConfidential, outcome.Classification.Label.Level)
		assert.Equal(t, macDomain.Compartments{"FINANCIAL", "OPERATIONAL"}, outcome.Resource.Label.Compartments)
		resources.AssertExpectations(t)
	})

	t.Run("Success_NeverLowers", func(t *testing.T) {
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, &mockUserRepository{}, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := context.Background()
		resources.On("GetByID", ctx, resourceID).Return(&resourceDomain.Resource{
			ID:    resourceID,
			Label: macDomain.NewLabel(macDomain.LevelTopSecret, nil),
		}, nil).Once()
		resources.On("UpsertAttribute", ctx, mock.Anything).Return(nil).Twice()

		outcome, err := uc.AutoClassify(ctx, resourceID, "press release", true)

		require.NoError(t, err)
		assert.False(t, outcome.Applied)
		assert.Equal(t, macDomain.LevelTopSecret, outcome.Resource.Label.Level)
		resources.AssertNotCalled(t, "UpdateLabel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_ApplyAboveActorClearance", func(t *testing.T) {
		users := &mockUserRepository{}
		uc, _ := newUseCase(t, users, &mockResourceRepository{})

		ctx := actorContext(newActor(macDomain.LevelInternal, false), users)

		_, err := uc.AutoClassify(ctx, resourceID, "top secret plans", true)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("Error_ApplyAddsCompartmentNotHeld", func(t *testing.T) {
		users := &mockUserRepository{}
		resources := &mockResourceRepository{}
		uc, txManager := newUseCase(t, users, resources)
		databaseMocks.PassThrough(txManager).Once()

		ctx := actorContext(newActor(macDomain.LevelRestricted, false), users)
		resources.On("GetByID", ctx, resourceID).Return(&resourceDomain.Resource{
			ID:    resourceID,
			Label: macDomain.NewLabel(macDomain.LevelInternal, nil),
		}, nil).Once()
		resources.On("UpsertAttribute", ctx, mock.Anything).Return(nil).Twice()

		_, err := uc.AutoClassify(ctx, resourceID, "Quarterly salary budget", true)

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		assert.Contains(t, err.Error(), macDomain.ReasonCompartmentNotHeld)
		resources.AssertNotCalled(t, "UpdateLabel", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLabelUseCase_ClassifyText(t *testing.T) {
	uc, _ := newUseCase(t, &mockUserRepository{}, &mockResourceRepository{})
	result := uc.ClassifyText("nothing to see")
	assert.Equal(t, macDomain.LevelInternal, result.Label.Level)
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditMocks "github.com/allisson/accessgate/internal/audit/usecase/mocks"
	databaseMocks "github.com/allisson/accessgate/internal/database/mocks"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	"github.com/allisson/accessgate/internal/resource/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type mockResourceRepository struct {
	mock.Mock
}

func (m *mockResourceRepository) Create(ctx context.Context, resource *domain.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *mockResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *mockResourceRepository) GetByRef(
	ctx context.Context,
	resourceType, externalID string,
) (*domain.Resource, error) {
	args := m.Called(ctx, resourceType, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *mockResourceRepository) List(
	ctx context.Context,
	resourceType string,
	offset, limit int,
) ([]*domain.Resource, error) {
	args := m.Called(ctx, resourceType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Resource), args.Error(1)
}

func (m *mockResourceRepository) UpdateLabel(ctx context.Context, id uuid.UUID, label macDomain.Label) error {
	args := m.Called(ctx, id, label)
	return args.Error(0)
}

func (m *mockResourceRepository) ListAttributes(
	ctx context.Context,
	resourceID uuid.UUID,
) ([]*domain.Attribute, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attribute), args.Error(1)
}

func (m *mockResourceRepository) UpsertAttribute(ctx context.Context, attribute *domain.Attribute) error {
	args := m.Called(ctx, attribute)
	return args.Error(0)
}

func (m *mockResourceRepository) DeleteAttribute(ctx context.Context, resourceID uuid.UUID, name string) error {
	args := m.Called(ctx, resourceID, name)
	return args.Error(0)
}

type mockPrincipalReader struct {
	mock.Mock
}

func (m *mockPrincipalReader) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func TestResourceUseCase_Register(t *testing.T) {
	actorID := uuid.Must(uuid.NewV7())
	ctx := auditDomain.WithActorID(context.Background(), actorID)

	t.Run("Success_WithinClearance", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockPrincipals := &mockPrincipalReader{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockPrincipals.On("GetByID", ctx, actorID).Return(&userDomain.User{
			ID:        actorID,
			Clearance: macDomain.NewLabel(macDomain.LevelRestricted, nil),
			IsActive:  true,
		}, nil).Once()
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Resource")).Return(nil).Once()

		var recorded *auditDomain.AuditLog
		mockRecorder.On("Record", ctx, mock.AnythingOfType("*domain.AuditLog")).
			Run(func(args mock.Arguments) {
				recorded = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil).
			Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, mockPrincipals, mockRecorder)
		resource, err := uc.Register(ctx, &domain.RegisterResourceInput{
			Type:       " document ",
			ExternalID: "doc-1",
			Label:      macDomain.Label{Level: macDomain.LevelConfidential, Compartments: []string{"financial"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "document", resource.Type)
		assert.Equal(t, macDomain.Compartments{"FINANCIAL"}, resource.Label.Compartments)
		require.NotNil(t, recorded)
		assert.Equal(t, "resource.register", recorded.Action)
		assert.Equal(t, macDomain.LevelConfidential, recorded.Label)
		mockRepo.AssertExpectations(t)
		mockPrincipals.AssertExpectations(t)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("Error_ClassifyAboveClearance", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		mockRepo := &mockResourceRepository{}
		mockPrincipals := &mockPrincipalReader{}

		mockPrincipals.On("GetByID", ctx, actorID).Return(&userDomain.User{
			ID:        actorID,
			Clearance: macDomain.NewLabel(macDomain.LevelInternal, nil),
		}, nil).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, mockPrincipals, auditMocks.NopRecorder{})
		_, err := uc.Register(ctx, &domain.RegisterResourceInput{
			Type:       "document",
			ExternalID: "doc-2",
			Label:      macDomain.Label{Level: macDomain.LevelTopSecret},
		})

		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Success_NoActorDefaultsToInternal", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockPrincipals := &mockPrincipalReader{}

		mockRepo.On("Create", context.Background(), mock.Anything).Return(nil).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, mockPrincipals, auditMocks.NopRecorder{})
		resource, err := uc.Register(context.Background(), &domain.RegisterResourceInput{
			Type:       "document",
			ExternalID: "doc-3",
		})

		require.NoError(t, err)
		assert.Equal(t, macDomain.LevelInternal, resource.Label.Level)
		mockPrincipals.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidLevel", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		uc := NewResourceUseCase(mockTxManager, &mockResourceRepository{}, &mockPrincipalReader{}, auditMocks.NopRecorder{})
		_, err := uc.Register(ctx, &domain.RegisterResourceInput{
			Type:  "document",
			Label: macDomain.Label{Level: "SECRETISH"},
		})
		assert.ErrorIs(t, err, macDomain.ErrInvalidLevel)
	})
}

func TestResourceUseCase_SetAttribute(t *testing.T) {
	ctx := context.Background()
	resourceID := uuid.Must(uuid.NewV7())
	resource := &domain.Resource{
		ID:         resourceID,
		Type:       "document",
		ExternalID: "doc-1",
		Label:      macDomain.NewLabel(macDomain.LevelRestricted, nil),
	}

	t.Run("Success", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockRepo.On("GetByID", ctx, resourceID).Return(resource, nil).Once()
		mockRepo.On("UpsertAttribute", ctx, mock.MatchedBy(func(a *domain.Attribute) bool {
			return a.Name == "department" && a.Value == "HR" && !a.Calculated && a.Source == domain.SourceDeclared
		})).Return(nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(a *auditDomain.AuditLog) bool {
			return a.Action == "resource.attribute.set" && a.Label == macDomain.LevelRestricted
		})).Return(nil).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, &mockPrincipalReader{}, mockRecorder)
		attribute, err := uc.SetAttribute(ctx, resourceID, "department", "HR")

		require.NoError(t, err)
		assert.Equal(t, "department", attribute.Name)
		mockRepo.AssertExpectations(t)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("Error_ReservedName", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		uc := NewResourceUseCase(mockTxManager, &mockResourceRepository{}, &mockPrincipalReader{}, auditMocks.NopRecorder{})
		_, err := uc.SetAttribute(ctx, resourceID, "securityLevel", "PUBLIC")
		assert.ErrorIs(t, err, domain.ErrReservedAttribute)
	})

	t.Run("Error_AuditFailureAbortsMutation", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockRecorder := &auditMocks.MockAuditLogUseCase{}

		mockRepo.On("GetByID", ctx, resourceID).Return(resource, nil).Once()
		mockRepo.On("UpsertAttribute", ctx, mock.Anything).Return(nil).Once()
		mockRecorder.On("Record", ctx, mock.Anything).Return(errors.New("audit down")).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, &mockPrincipalReader{}, mockRecorder)
		_, err := uc.SetAttribute(ctx, resourceID, "department", "HR")
		assert.EqualError(t, err, "audit down")
	})
}

func TestResourceUseCase_DeleteAttribute(t *testing.T) {
	ctx := context.Background()
	resourceID := uuid.Must(uuid.NewV7())

	t.Run("Error_ResourceNotFound", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockRepo.On("GetByID", ctx, resourceID).Return(nil, domain.ErrResourceNotFound).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, &mockPrincipalReader{}, auditMocks.NopRecorder{})
		err := uc.DeleteAttribute(ctx, resourceID, "department")
		assert.ErrorIs(t, err, domain.ErrResourceNotFound)
		mockRepo.AssertNotCalled(t, "DeleteAttribute", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		mockTxManager := databaseMocks.NewMockTxManager(t)
		databaseMocks.PassThrough(mockTxManager).Once()
		mockRepo := &mockResourceRepository{}
		mockRepo.On("GetByID", ctx, resourceID).Return(&domain.Resource{ID: resourceID, Type: "document"}, nil).Once()
		mockRepo.On("DeleteAttribute", ctx, resourceID, "department").Return(nil).Once()

		uc := NewResourceUseCase(mockTxManager, mockRepo, &mockPrincipalReader{}, auditMocks.NopRecorder{})
		require.NoError(t, uc.DeleteAttribute(ctx, resourceID, "department"))
		mockRepo.AssertExpectations(t)
	})
}

func TestResourceUseCase_ListAttributes(t *testing.T) {
	ctx := context.Background()
	resourceID := uuid.Must(uuid.NewV7())

	mockRepo := &mockResourceRepository{}
	mockRepo.On("GetByID", ctx, resourceID).Return(&domain.Resource{ID: resourceID}, nil).Once()
	mockRepo.On("ListAttributes", ctx, resourceID).Return([]*domain.Attribute{{Name: "a"}}, nil).Once()

	uc := NewResourceUseCase(databaseMocks.NewMockTxManager(t), mockRepo, &mockPrincipalReader{}, auditMocks.NopRecorder{})
	attributes, err := uc.ListAttributes(ctx, resourceID)

	require.NoError(t, err)
	assert.Len(t, attributes, 1)
}

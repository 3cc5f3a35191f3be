package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/abac/http/dto"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
)

type mockPolicyUseCase struct {
	mock.Mock
}

func (m *mockPolicyUseCase) CreatePolicy(ctx context.Context, input *domain.PolicyInput) (*domain.AccessPolicy, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessPolicy), args.Error(1)
}

func (m *mockPolicyUseCase) UpdatePolicy(
	ctx context.Context,
	policyID uuid.UUID,
	input *domain.PolicyInput,
) (*domain.AccessPolicy, error) {
	args := m.Called(ctx, policyID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessPolicy), args.Error(1)
}

func (m *mockPolicyUseCase) DeletePolicy(ctx context.Context, policyID uuid.UUID) error {
	return m.Called(ctx, policyID).Error(0)
}

func (m *mockPolicyUseCase) GetPolicy(ctx context.Context, policyID uuid.UUID) (*domain.AccessPolicy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessPolicy), args.Error(1)
}

func (m *mockPolicyUseCase) ListPolicies(
	ctx context.Context,
	policyType domain.PolicyType,
	offset, limit int,
) ([]*domain.AccessPolicy, error) {
	args := m.Called(ctx, policyType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AccessPolicy), args.Error(1)
}

func (m *mockPolicyUseCase) EvaluatePolicy(
	ctx context.Context,
	policyID uuid.UUID,
	subject abacUseCase.Subject,
) (domain.Decision, error) {
	args := m.Called(ctx, policyID, subject)
	return args.Get(0).(domain.Decision), args.Error(1)
}

func (m *mockPolicyUseCase) EvaluateBound(
	ctx context.Context,
	action string,
	subject abacUseCase.Subject,
) (domain.Decision, error) {
	args := m.Called(ctx, action, subject)
	return args.Get(0).(domain.Decision), args.Error(1)
}

func newTestRouter(uc *mockPolicyUseCase, actorID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewPolicyHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := gin.New()
	if actorID != uuid.Nil {
		router.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(auditDomain.WithActorID(c.Request.Context(), actorID))
			c.Next()
		})
	}
	router.POST("/v1/policies", handler.CreateHandler)
	router.GET("/v1/policies", handler.ListHandler)
	router.POST("/v1/policies/evaluate", handler.EvaluateBoundHandler)
	router.GET("/v1/policies/:id", handler.GetHandler)
	router.PUT("/v1/policies/:id", handler.UpdateHandler)
	router.DELETE("/v1/policies/:id", handler.DeleteHandler)
	router.POST("/v1/policies/:id/evaluate", handler.EvaluateHandler)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	bodyBytes, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPolicyHandler_CreateHandler(t *testing.T) {
	t.Run("DefaultsToEnabledABAC", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		uc.On("CreatePolicy", mock.Anything, mock.MatchedBy(func(input *domain.PolicyInput) bool {
			return input.PolicyType == domain.PolicyTypeABAC && input.Enabled &&
				len(input.Conditions) == 1 && input.Conditions[0].Operator == domain.OperatorIn
		})).Return(&domain.AccessPolicy{
			ID:         uuid.Must(uuid.NewV7()),
			Name:       "hr-read",
			PolicyType: domain.PolicyTypeABAC,
			Effect:     domain.EffectAllow,
			Enabled:    true,
		}, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/policies", dto.PolicyRequest{
			Name:         "hr-read",
			ResourceType: "document",
			Action:       "read",
			Effect:       "ALLOW",
			Conditions: []dto.ConditionRequest{
				{Attribute: "department", Operator: "IN", Value: []string{"HR", "Finance"}},
			},
		})

		require.Equal(t, http.StatusCreated, w.Code)
		var response dto.PolicyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "hr-read", response.Name)
		assert.NotNil(t, response.Conditions)
		uc.AssertExpectations(t)
	})

	t.Run("UnknownOperator", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		w := doRequest(router, http.MethodPost, "/v1/policies", dto.PolicyRequest{
			Name:         "bad",
			ResourceType: "document",
			Action:       "read",
			Effect:       "ALLOW",
			Conditions:   []dto.ConditionRequest{{Attribute: "department", Operator: "LIKE", Value: "H%"}},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		uc.AssertNotCalled(t, "CreatePolicy", mock.Anything, mock.Anything)
	})

	t.Run("RubacRequiresRule", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		w := doRequest(router, http.MethodPost, "/v1/policies", dto.PolicyRequest{
			Name:         "office-hours",
			PolicyType:   "RUBAC",
			ResourceType: "document",
			Action:       "*",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPolicyHandler_ListHandler_InvalidType(t *testing.T) {
	uc := &mockPolicyUseCase{}
	router := newTestRouter(uc, uuid.Nil)

	w := doRequest(router, http.MethodGet, "/v1/policies?policy_type=dac", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPolicyHandler_EvaluateHandler(t *testing.T) {
	t.Run("DefaultsToCaller", func(t *testing.T) {
		actorID := uuid.Must(uuid.NewV7())
		policyID := uuid.Must(uuid.NewV7())
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, actorID)

		uc.On("EvaluatePolicy", mock.Anything, policyID, mock.MatchedBy(func(subject abacUseCase.Subject) bool {
			return subject.UserID == actorID && subject.ResourceID == uuid.Nil &&
				subject.Environment.ThreatScore == 20
		})).Return(domain.Decision{Allowed: true, Reason: `allowed by policy "hr-read"`}, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/policies/"+policyID.String()+"/evaluate", dto.EvaluateRequest{
			ResourceType: "document",
			Environment:  dto.EnvironmentRequest{ThreatScore: 20},
		})

		require.Equal(t, http.StatusOK, w.Code)
		var response dto.DecisionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Allowed)
		uc.AssertExpectations(t)
	})

	t.Run("NoSubject", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		w := doRequest(router, http.MethodPost, "/v1/policies/"+uuid.Must(uuid.NewV7()).String()+"/evaluate",
			dto.EvaluateRequest{ResourceType: "document"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPolicyHandler_EvaluateBoundHandler(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	resourceID := uuid.Must(uuid.NewV7())

	t.Run("Denied", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		uc.On("EvaluateBound", mock.Anything, "read", mock.MatchedBy(func(subject abacUseCase.Subject) bool {
			return subject.UserID == userID && subject.ResourceID == resourceID
		})).Return(domain.Decision{Allowed: false, Reason: domain.ReasonNoPolicyMatched}, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/policies/evaluate", dto.EvaluateRequest{
			UserID:       userID.String(),
			ResourceType: "document",
			ResourceID:   resourceID.String(),
			Action:       "read",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"allowed":false,"reason":"no policy matched"}`, w.Body.String())
	})

	t.Run("MissingAction", func(t *testing.T) {
		uc := &mockPolicyUseCase{}
		router := newTestRouter(uc, uuid.Nil)

		w := doRequest(router, http.MethodPost, "/v1/policies/evaluate", dto.EvaluateRequest{
			UserID:       userID.String(),
			ResourceType: "document",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

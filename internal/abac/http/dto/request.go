// Package dto provides data transfer objects for attribute policy administration.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/accessgate/internal/abac/domain"
	abacUseCase "github.com/allisson/accessgate/internal/abac/usecase"
	"github.com/allisson/accessgate/internal/httputil"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// ConditionRequest is one attribute test.
type ConditionRequest struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

// Validate checks if the condition is valid.
func (r ConditionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Attribute, validation.Required, customValidation.NoWhitespace, validation.Length(1, 100)),
		validation.Field(&r.Operator, validation.Required, validation.In(
			string(domain.OperatorEquals),
			string(domain.OperatorContains),
			string(domain.OperatorGreaterThan),
			string(domain.OperatorLessThan),
			string(domain.OperatorIn),
		)),
		validation.Field(&r.Value, validation.NotNil),
	)
}

// PolicyRequest contains the parameters for creating or updating a policy.
// Enabled defaults to true and PolicyType to ABAC.
type PolicyRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	PolicyType   string             `json:"policy_type"`
	ResourceType string             `json:"resource_type"`
	Action       string             `json:"action"`
	Effect       string             `json:"effect"`
	Conditions   []ConditionRequest `json:"conditions"`
	RuleID       *string            `json:"rule_id"`
	Enabled      *bool              `json:"enabled"`
	Priority     int                `json:"priority"`
}

func (r *PolicyRequest) policyType() domain.PolicyType {
	if r.PolicyType == "" {
		return domain.PolicyTypeABAC
	}
	return domain.PolicyType(r.PolicyType)
}

// Validate checks if the policy request is valid.
func (r *PolicyRequest) Validate() error {
	isABAC := r.policyType() == domain.PolicyTypeABAC
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
		validation.Field(&r.PolicyType, validation.In(string(domain.PolicyTypeABAC), string(domain.PolicyTypeRuBAC))),
		validation.Field(&r.ResourceType, validation.Required, customValidation.Identifier),
		validation.Field(&r.Action, validation.Required, customValidation.Identifier),
		validation.Field(&r.Effect,
			validation.When(isABAC, validation.Required),
			validation.In(string(domain.EffectAllow), string(domain.EffectDeny)),
		),
		validation.Field(&r.Conditions),
		validation.Field(&r.RuleID, validation.When(!isABAC, validation.Required), customValidation.UUID),
		validation.Field(&r.Priority, validation.Min(-1000), validation.Max(1000)),
	)
}

// Input converts the request into a domain input. Call after Validate.
func (r *PolicyRequest) Input() *domain.PolicyInput {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	conditions := make([]domain.Condition, 0, len(r.Conditions))
	for _, condition := range r.Conditions {
		conditions = append(conditions, domain.Condition{
			Attribute: condition.Attribute,
			Operator:  domain.Operator(condition.Operator),
			Value:     condition.Value,
		})
	}
	return &domain.PolicyInput{
		Name:         r.Name,
		Description:  r.Description,
		PolicyType:   r.policyType(),
		ResourceType: r.ResourceType,
		Action:       r.Action,
		Effect:       domain.Effect(r.Effect),
		Conditions:   conditions,
		RuleID:       httputil.OptionalUUID(r.RuleID),
		Enabled:      enabled,
		Priority:     r.Priority,
	}
}

// EnvironmentRequest carries request-time attributes.
type EnvironmentRequest struct {
	NetworkSecurityLevel string         `json:"network_security_level"`
	ThreatScore          float64        `json:"threat_score"`
	MaintenanceMode      bool           `json:"maintenance_mode"`
	CurrentTime          *time.Time     `json:"current_time"`
	Extra                map[string]any `json:"extra"`
}

// Validate checks if the environment request is valid.
func (r EnvironmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ThreatScore, validation.Min(0.0), validation.Max(100.0)),
	)
}

// Environment converts the request into a domain environment.
func (r EnvironmentRequest) Environment() domain.Environment {
	env := domain.Environment{
		NetworkSecurityLevel: r.NetworkSecurityLevel,
		ThreatScore:          r.ThreatScore,
		MaintenanceMode:      r.MaintenanceMode,
		Extra:                r.Extra,
	}
	if r.CurrentTime != nil {
		env.CurrentTime = r.CurrentTime.UTC()
	}
	return env
}

// EvaluateRequest names the subject of an evaluation. UserID defaults to the caller;
// ResourceID is optional.
type EvaluateRequest struct {
	UserID       string             `json:"user_id"`
	ResourceType string             `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
	Action       string             `json:"action"`
	Environment  EnvironmentRequest `json:"environment"`
}

// Validate checks if the evaluate request is valid. requireAction is set for bound
// evaluations.
func (r *EvaluateRequest) Validate(requireAction bool) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, customValidation.UUID),
		validation.Field(&r.ResourceType, validation.Required, customValidation.Identifier),
		validation.Field(&r.ResourceID, customValidation.UUID),
		validation.Field(&r.Action, validation.When(requireAction, validation.Required), customValidation.Identifier),
		validation.Field(&r.Environment),
	)
}

// Subject converts the request into an evaluation subject. callerID is used when the
// request names no user. Call after Validate.
func (r *EvaluateRequest) Subject(callerID uuid.UUID) abacUseCase.Subject {
	subject := abacUseCase.Subject{
		UserID:       callerID,
		ResourceType: r.ResourceType,
		Environment:  r.Environment.Environment(),
	}
	if r.UserID != "" {
		subject.UserID = uuid.MustParse(r.UserID)
	}
	if r.ResourceID != "" {
		subject.ResourceID = uuid.MustParse(r.ResourceID)
	}
	return subject
}

// Package domain defines access policies and the attribute conditions they evaluate.
// Policies of type ABAC carry conditions and an effect; policies of type RUBAC bind an
// access rule to a (resource type, action) pair.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
)

// PolicyType selects the engine a policy feeds.
type PolicyType string

const (
	PolicyTypeABAC  PolicyType = "ABAC"
	PolicyTypeRuBAC PolicyType = "RUBAC"
)

// Effect is the outcome a fired policy contributes.
type Effect string

const (
	EffectAllow Effect = "ALLOW"
	EffectDeny  Effect = "DENY"
)

// Operator compares an attribute value with a condition value.
type Operator string

const (
	OperatorEquals      Operator = "EQUALS"
	OperatorContains    Operator = "CONTAINS"
	OperatorGreaterThan Operator = "GREATER_THAN"
	OperatorLessThan    Operator = "LESS_THAN"
	OperatorIn          Operator = "IN"
)

// Wildcard matches any resource type or action in a policy binding.
const Wildcard = "*"

// Condition is one attribute test. Attribute names may be bare ("department") or
// qualified with subject., resource. or environment.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
}

// AccessPolicy binds an ABAC condition set or a RuBAC rule to a (resource type, action) pair.
type AccessPolicy struct {
	ID           uuid.UUID
	Name         string
	Description  string
	PolicyType   PolicyType
	ResourceType string
	Action       string
	Effect       Effect
	Conditions   []Condition
	RuleID       *uuid.UUID
	Enabled      bool
	Priority     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Binds reports whether the policy applies to resourceType and action.
func (p *AccessPolicy) Binds(resourceType, action string) bool {
	return (p.ResourceType == Wildcard || p.ResourceType == resourceType) &&
		(p.Action == Wildcard || p.Action == action)
}

// IsValid reports whether op is a known operator.
func (op Operator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorContains, OperatorGreaterThan, OperatorLessThan, OperatorIn:
		return true
	}
	return false
}

// IsValid reports whether e is ALLOW or DENY.
func (e Effect) IsValid() bool {
	return e == EffectAllow || e == EffectDeny
}

// IsValid reports whether t is ABAC or RUBAC.
func (t PolicyType) IsValid() bool {
	return t == PolicyTypeABAC || t == PolicyTypeRuBAC
}

// Validate checks the policy shape. ABAC policies need a valid effect and well-formed
// conditions; RUBAC policies need a rule reference.
func (p *AccessPolicy) Validate() error {
	if !p.PolicyType.IsValid() {
		return errors.Wrap(errors.ErrInvalidInput, "invalid policy type")
	}
	if p.ResourceType == "" || p.Action == "" {
		return errors.Wrap(errors.ErrInvalidInput, "resource type and action are required")
	}
	if p.PolicyType == PolicyTypeRuBAC {
		if p.RuleID == nil {
			return ErrRuleRequired
		}
		return nil
	}
	if !p.Effect.IsValid() {
		return errors.Wrap(errors.ErrInvalidInput, "invalid policy effect")
	}
	for _, condition := range p.Conditions {
		if strings.TrimSpace(condition.Attribute) == "" || !condition.Operator.IsValid() {
			return ErrInvalidCondition
		}
	}
	return nil
}

// PolicyInput holds the fields accepted when creating or updating a policy.
type PolicyInput struct {
	Name         string
	Description  string
	PolicyType   PolicyType
	ResourceType string
	Action       string
	Effect       Effect
	Conditions   []Condition
	RuleID       *uuid.UUID
	Enabled      bool
	Priority     int
}

// Domain-specific errors for policy operations.
var (
	// ErrPolicyNotFound indicates the referenced policy does not exist.
	ErrPolicyNotFound = errors.Wrap(errors.ErrNotFound, "policy not found")

	// ErrPolicyAlreadyExists indicates a policy with the same name already exists.
	ErrPolicyAlreadyExists = errors.Wrap(errors.ErrConflict, "policy already exists")

	// ErrRuleRequired indicates a RUBAC policy without a rule reference.
	ErrRuleRequired = errors.Wrap(errors.ErrInvalidInput, "rubac policy requires a rule")

	// ErrInvalidCondition indicates a condition with an unknown operator or empty attribute.
	ErrInvalidCondition = errors.Wrap(errors.ErrInvalidInput, "invalid policy condition")
)

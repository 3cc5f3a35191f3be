package dto

import (
	"time"

	"github.com/allisson/accessgate/internal/abac/domain"
)

// PolicyResponse represents a policy in API responses.
type PolicyResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	PolicyType   string             `json:"policy_type"`
	ResourceType string             `json:"resource_type"`
	Action       string             `json:"action"`
	Effect       string             `json:"effect"`
	Conditions   []domain.Condition `json:"conditions"`
	RuleID       *string            `json:"rule_id,omitempty"`
	Enabled      bool               `json:"enabled"`
	Priority     int                `json:"priority"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// MapPolicyToResponse converts a domain policy to an API response.
func MapPolicyToResponse(policy *domain.AccessPolicy) PolicyResponse {
	response := PolicyResponse{
		ID:           policy.ID.String(),
		Name:         policy.Name,
		Description:  policy.Description,
		PolicyType:   string(policy.PolicyType),
		ResourceType: policy.ResourceType,
		Action:       policy.Action,
		Effect:       string(policy.Effect),
		Conditions:   policy.Conditions,
		Enabled:      policy.Enabled,
		Priority:     policy.Priority,
		CreatedAt:    policy.CreatedAt,
		UpdatedAt:    policy.UpdatedAt,
	}
	if response.Conditions == nil {
		response.Conditions = []domain.Condition{}
	}
	if policy.RuleID != nil {
		ruleID := policy.RuleID.String()
		response.RuleID = &ruleID
	}
	return response
}

// ListPoliciesResponse represents a paginated list of policies.
type ListPoliciesResponse struct {
	Data []PolicyResponse `json:"data"`
}

// MapPoliciesToListResponse converts domain policies to a list API response.
func MapPoliciesToListResponse(policies []*domain.AccessPolicy) ListPoliciesResponse {
	data := make([]PolicyResponse, 0, len(policies))
	for _, policy := range policies {
		data = append(data, MapPolicyToResponse(policy))
	}
	return ListPoliciesResponse{Data: data}
}

// DecisionResponse reports a policy verdict.
type DecisionResponse struct {
	Allowed  bool    `json:"allowed"`
	Reason   string  `json:"reason"`
	PolicyID *string `json:"policy_id,omitempty"`
}

// MapDecisionToResponse converts a domain decision to an API response.
func MapDecisionToResponse(decision domain.Decision) DecisionResponse {
	response := DecisionResponse{Allowed: decision.Allowed, Reason: decision.Reason}
	if decision.Policy != nil {
		policyID := decision.Policy.ID.String()
		response.PolicyID = &policyID
	}
	return response
}

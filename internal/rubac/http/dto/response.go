package dto

import (
	"encoding/json"
	"time"

	"github.com/allisson/accessgate/internal/rubac/domain"
)

// RuleResponse represents an access rule in API responses.
type RuleResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	RuleType          string          `json:"rule_type"`
	Config            json.RawMessage `json:"config"`
	Enabled           bool            `json:"enabled"`
	Priority          int             `json:"priority"`
	EmergencyOverride bool            `json:"emergency_override"`
	ValidFrom         *time.Time      `json:"valid_from,omitempty"`
	ValidUntil        *time.Time      `json:"valid_until,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MapRuleToResponse converts a domain rule to an API response.
func MapRuleToResponse(rule *domain.AccessRule) RuleResponse {
	return RuleResponse{
		ID:                rule.ID.String(),
		Name:              rule.Name,
		Description:       rule.Description,
		RuleType:          string(rule.RuleType),
		Config:            rule.Config,
		Enabled:           rule.Enabled,
		Priority:          rule.Priority,
		EmergencyOverride: rule.EmergencyOverride,
		ValidFrom:         rule.ValidFrom,
		ValidUntil:        rule.ValidUntil,
		CreatedAt:         rule.CreatedAt,
		UpdatedAt:         rule.UpdatedAt,
	}
}

// ListRulesResponse represents a paginated list of rules.
type ListRulesResponse struct {
	Data []RuleResponse `json:"data"`
}

// MapRulesToListResponse converts domain rules to a list API response.
func MapRulesToListResponse(rules []*domain.AccessRule) ListRulesResponse {
	data := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		data = append(data, MapRuleToResponse(rule))
	}
	return ListRulesResponse{Data: data}
}

// DecisionResponse reports a rule verdict. EmergencyOverride is set when the denying
// rule may be bypassed by the emergency workflow.
type DecisionResponse struct {
	Allowed           bool    `json:"allowed"`
	Reason            string  `json:"reason"`
	RuleID            *string `json:"rule_id,omitempty"`
	EmergencyOverride bool    `json:"emergency_override"`
}

// MapDecisionToResponse converts a domain decision to an API response.
func MapDecisionToResponse(decision domain.Decision) DecisionResponse {
	response := DecisionResponse{Allowed: decision.Allowed, Reason: decision.Reason}
	if decision.Rule != nil {
		ruleID := decision.Rule.ID.String()
		response.RuleID = &ruleID
		response.EmergencyOverride = decision.Rule.EmergencyOverride
	}
	return response
}

package dto

import (
	"github.com/allisson/accessgate/internal/decision/domain"
)

// DecisionResponse reports an access decision. CheckedMechanisms holds only the
// mechanisms that ran.
type DecisionResponse struct {
	Allowed           bool                           `json:"allowed"`
	Reasons           []string                       `json:"reasons"`
	DeniedBy          string                         `json:"denied_by,omitempty"`
	Bypass            bool                           `json:"bypass,omitempty"`
	CheckedMechanisms map[string]domain.EngineResult `json:"checked_mechanisms"`
}

// MapResultToResponse converts a decision result to an API response.
func MapResultToResponse(result *domain.Result) DecisionResponse {
	response := DecisionResponse{
		Allowed:           result.Allowed,
		Reasons:           result.Reasons,
		DeniedBy:          string(result.DeniedBy),
		Bypass:            result.Bypass,
		CheckedMechanisms: make(map[string]domain.EngineResult, len(result.CheckedMechanisms)),
	}
	if response.Reasons == nil {
		response.Reasons = []string{}
	}
	for m, r := range result.CheckedMechanisms {
		response.CheckedMechanisms[string(m)] = r
	}
	return response
}

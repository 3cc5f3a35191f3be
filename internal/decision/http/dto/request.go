// Package dto provides request and response types for the decision API.
package dto

import (
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	abacDto "github.com/allisson/accessgate/internal/abac/http/dto"
	"github.com/allisson/accessgate/internal/decision/domain"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	rubacDto "github.com/allisson/accessgate/internal/rubac/http/dto"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

// DecisionRequest asks for an access decision. PrincipalID defaults to the caller.
type DecisionRequest struct {
	PrincipalID        *string                    `json:"principal_id"`
	ResourceType       string                     `json:"resource_type"`
	ResourceID         *string                    `json:"resource_id"`
	Action             string                     `json:"action"`
	Mechanisms         []string                   `json:"mechanisms"`
	TargetLevel        string                     `json:"target_level"`
	TargetCompartments []string                   `json:"target_compartments"`
	RoutePath          string                     `json:"route_path"`
	RequiredPermission string                     `json:"required_permission"`
	Context            rubacDto.ContextRequest    `json:"context"`
	Environment        abacDto.EnvironmentRequest `json:"environment"`
}

// Validate checks the request shape. Whether the selected mechanisms have what they
// need is decided by the orchestrator.
func (r *DecisionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PrincipalID, customValidation.UUID),
		validation.Field(&r.ResourceID, customValidation.UUID),
		validation.Field(&r.Mechanisms,
			validation.Required,
			validation.Each(validation.By(func(value interface{}) error {
				name, _ := value.(string)
				if _, ok := domain.ParseMechanism(strings.ToLower(name)); !ok {
					return validation.NewError("validation_mechanism", "must be one of rbac, mac, dac, rubac, abac")
				}
				return nil
			})),
		),
		validation.Field(&r.TargetLevel, customValidation.SecurityLevel),
		validation.Field(&r.Context),
		validation.Field(&r.Environment),
	)
}

// Principal returns the requested principal, or callerID when none was given.
func (r *DecisionRequest) Principal(callerID uuid.UUID) uuid.UUID {
	if r.PrincipalID == nil {
		return callerID
	}
	return uuid.MustParse(*r.PrincipalID)
}

// Options converts the request into decision options for principalID.
func (r *DecisionRequest) Options(principalID uuid.UUID, clientIP string) domain.Options {
	opts := domain.Options{
		ResourceType:       r.ResourceType,
		Action:             r.Action,
		TargetLevel:        macDomain.Level(strings.ToUpper(strings.TrimSpace(r.TargetLevel))),
		TargetCompartments: r.TargetCompartments,
		RoutePath:          r.RoutePath,
		RequiredPermission: r.RequiredPermission,
		Request:            r.Context.Context(principalID, clientIP),
		Environment:        r.Environment.Environment(),
	}
	if r.ResourceID != nil {
		resourceID := uuid.MustParse(*r.ResourceID)
		opts.ResourceID = &resourceID
	}
	for _, name := range r.Mechanisms {
		m, _ := domain.ParseMechanism(strings.ToLower(name))
		switch m {
		case domain.MechanismRBAC:
			opts.CheckRBAC = true
		case domain.MechanismMAC:
			opts.CheckMAC = true
		case domain.MechanismDAC:
			opts.CheckDAC = true
		case domain.MechanismRuBAC:
			opts.CheckRuBAC = true
		case domain.MechanismABAC:
			opts.CheckABAC = true
		}
	}
	return opts
}

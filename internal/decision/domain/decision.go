// Package domain defines the access decision request, its per-mechanism outcome and
// the errors surfaced at the decision boundary.
package domain

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	abacDomain "github.com/allisson/accessgate/internal/abac/domain"
	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	rubacDomain "github.com/allisson/accessgate/internal/rubac/domain"
)

// Mechanism names one access-control engine.
type Mechanism string

const (
	MechanismRBAC  Mechanism = "rbac"
	MechanismMAC   Mechanism = "mac"
	MechanismDAC   Mechanism = "dac"
	MechanismRuBAC Mechanism = "rubac"
	MechanismABAC  Mechanism = "abac"
)

// Order is the fixed evaluation order of the mechanisms.
var Order = []Mechanism{MechanismRBAC, MechanismMAC, MechanismDAC, MechanismRuBAC, MechanismABAC}

// ParseMechanism parses a mechanism name.
func ParseMechanism(s string) (Mechanism, bool) {
	m := Mechanism(s)
	return m, slices.Contains(Order, m)
}

// Decision reasons.
const (
	ReasonNotAuthenticated  = "not authenticated"
	ReasonBypass            = "bypass"
	ReasonTimeout           = "evaluation timeout"
	ReasonEvaluationFailure = "evaluation failure"
	ReasonResourceNotFound  = "resource not found"
	ReasonAllowed           = "all checks passed"
)

// Options selects the mechanisms to run and carries the facts they need.
type Options struct {
	ResourceType string
	ResourceID   *uuid.UUID
	Action       string

	CheckRBAC  bool
	CheckMAC   bool
	CheckDAC   bool
	CheckRuBAC bool
	CheckABAC  bool

	// TargetLevel and TargetCompartments override the resource label for MAC.
	TargetLevel        macDomain.Level
	TargetCompartments []string

	// RoutePath and RequiredPermission ("resource:action") drive the static RBAC sub-checks.
	RoutePath          string
	RequiredPermission string

	// Request carries the contextual facts for RuBAC. UserID is filled in by the orchestrator.
	Request rubacDomain.Context

	// Environment carries the request-time attributes for ABAC.
	Environment abacDomain.Environment
}

// Enabled reports whether m was requested.
func (o Options) Enabled(m Mechanism) bool {
	switch m {
	case MechanismRBAC:
		return o.CheckRBAC
	case MechanismMAC:
		return o.CheckMAC
	case MechanismDAC:
		return o.CheckDAC
	case MechanismRuBAC:
		return o.CheckRuBAC
	case MechanismABAC:
		return o.CheckABAC
	}
	return false
}

// Validate checks that every requested mechanism has the facts it needs. Failures
// wrap ErrMalformedInput.
func (o Options) Validate() error {
	needsTarget := o.CheckDAC || o.CheckRuBAC || o.CheckABAC
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ResourceType, validation.When(needsTarget, validation.Required)),
		validation.Field(&o.Action, validation.When(needsTarget, validation.Required)),
		validation.Field(&o.ResourceID, validation.When(o.CheckDAC, validation.Required)),
		validation.Field(&o.TargetLevel, validation.When(o.CheckMAC && o.ResourceID == nil, validation.Required),
			validation.By(func(value interface{}) error {
				level, _ := value.(macDomain.Level)
				if level != "" && !level.IsValid() {
					return validation.NewError("validation_security_level", "must be a valid security level")
				}
				return nil
			})),
		validation.Field(&o.CheckRBAC, validation.When(!o.anyEnabled(), validation.Required.Error(
			"at least one mechanism must be requested"))),
	)
	if err != nil {
		return errors.Wrap(ErrMalformedInput, err.Error())
	}
	if o.CheckRBAC && o.RoutePath == "" && o.RequiredPermission == "" && (o.ResourceType == "" || o.Action == "") {
		return errors.Wrap(ErrMalformedInput, "rbac needs a route, a required permission or a resource type and action")
	}
	return nil
}

func (o Options) anyEnabled() bool {
	return slices.ContainsFunc(Order, o.Enabled)
}

// EngineResult is the verdict of one mechanism.
type EngineResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Result is the outcome of an access decision. CheckedMechanisms only holds the
// mechanisms that actually ran, or all five when the bypass role applied.
type Result struct {
	Allowed           bool
	Reasons           []string
	DeniedBy          Mechanism
	Bypass            bool
	CheckedMechanisms map[Mechanism]EngineResult
}

// Err returns the denial as an error, or nil when the request was allowed.
func (r *Result) Err() error {
	if r.Allowed {
		return nil
	}
	if r.DeniedBy == "" {
		return ErrAccessDenied
	}
	reason := ""
	if checked, ok := r.CheckedMechanisms[r.DeniedBy]; ok {
		reason = checked.Reason
	}
	return &EngineDeniedError{Engine: r.DeniedBy, Reason: reason}
}

// EngineDeniedError reports the first mechanism that denied a request.
type EngineDeniedError struct {
	Engine Mechanism
	Reason string
}

func (e *EngineDeniedError) Error() string {
	return fmt.Sprintf("denied by %s: %s", e.Engine, e.Reason)
}

// Unwrap lets callers match the denial against errors.ErrForbidden.
func (e *EngineDeniedError) Unwrap() error {
	return errors.ErrForbidden
}

var (
	// ErrAuthenticationRequired indicates the principal is unknown or inactive.
	ErrAuthenticationRequired = errors.Wrap(errors.ErrUnauthorized, ReasonNotAuthenticated)

	// ErrMalformedInput indicates the decision options are incomplete or invalid.
	ErrMalformedInput = errors.Wrap(errors.ErrInvalidInput, "malformed decision request")

	// ErrAccessDenied indicates a denial that no single mechanism produced, such as a timeout.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "access denied")
)

// Package domain defines contextual access rules: time windows, network ranges,
// geofences and device trust requirements.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
)

// RuleType selects the predicate a rule evaluates.
type RuleType string

const (
	RuleTypeTimeWindow  RuleType = "TIME_WINDOW"
	RuleTypeIPRange     RuleType = "IP_RANGE"
	RuleTypeGeofence    RuleType = "GEOFENCE"
	RuleTypeDeviceTrust RuleType = "DEVICE_TRUST"
)

// IsValid reports whether t is a known rule type.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeTimeWindow, RuleTypeIPRange, RuleTypeGeofence, RuleTypeDeviceTrust:
		return true
	}
	return false
}

// AccessRule is a typed contextual predicate. Config is the JSON document of the
// matching *Config type.
type AccessRule struct {
	ID                uuid.UUID
	Name              string
	Description       string
	RuleType          RuleType
	Config            json.RawMessage
	Enabled           bool
	Priority          int
	EmergencyOverride bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive reports whether the rule constrains requests at now. Disabled rules and rules
// outside their validity window are inert.
func (r *AccessRule) IsActive(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !now.Before(*r.ValidUntil) {
		return false
	}
	return true
}

// Validate checks the validity window and decodes the config for the rule type.
func (r *AccessRule) Validate() error {
	if !r.RuleType.IsValid() {
		return ErrInvalidRuleType
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && !r.ValidUntil.After(*r.ValidFrom) {
		return errors.Wrap(errors.ErrInvalidInput, "valid_until must be after valid_from")
	}
	_, err := r.predicate()
	return err
}

// RuleInput holds the fields accepted when creating or updating a rule.
type RuleInput struct {
	Name              string
	Description       string
	RuleType          RuleType
	Config            json.RawMessage
	Enabled           bool
	Priority          int
	EmergencyOverride bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// GeoLocation is the caller position resolved upstream.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
	Country   string
}

// DeviceInfo describes the device a request originates from.
type DeviceInfo struct {
	Platform   string
	Managed    bool
	Encrypted  bool
	TrustScore float64
}

// Context carries the request facts rules are evaluated against.
type Context struct {
	IPAddress   string
	UserID      uuid.UUID
	DeviceID    string
	DeviceInfo  *DeviceInfo
	GeoLocation *GeoLocation
	CurrentTime time.Time
}

func (c Context) now() time.Time {
	if c.CurrentTime.IsZero() {
		return time.Now().UTC()
	}
	return c.CurrentTime
}

// Domain-specific errors for rule operations.
var (
	// ErrRuleNotFound indicates the referenced rule does not exist.
	ErrRuleNotFound = errors.Wrap(errors.ErrNotFound, "rule not found")

	// ErrRuleAlreadyExists indicates a rule with the same name already exists.
	ErrRuleAlreadyExists = errors.Wrap(errors.ErrConflict, "rule already exists")

	// ErrRuleInUse indicates a rule still referenced by a policy.
	ErrRuleInUse = errors.Wrap(errors.ErrConflict, "rule is referenced by a policy")

	// ErrInvalidRuleType indicates an unknown rule type.
	ErrInvalidRuleType = errors.Wrap(errors.ErrInvalidInput, "invalid rule type")

	// ErrInvalidRuleConfig indicates a config document that does not decode or validate.
	ErrInvalidRuleConfig = errors.Wrap(errors.ErrInvalidInput, "invalid rule config")
)

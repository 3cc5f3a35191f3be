// Package dto provides data transfer objects for access rule administration.
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/accessgate/internal/rubac/domain"
	customValidation "github.com/allisson/accessgate/internal/validation"
)

var ruleType = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !domain.RuleType(s).IsValid() {
		return validation.NewError("validation_rule_type", "must be one of TIME_WINDOW, IP_RANGE, GEOFENCE, DEVICE_TRUST")
	}
	return nil
})

// RuleRequest contains the parameters for creating or updating an access rule.
// Enabled defaults to true.
type RuleRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	RuleType          string          `json:"rule_type"`
	Config            json.RawMessage `json:"config"`
	Enabled           *bool           `json:"enabled"`
	Priority          int             `json:"priority"`
	EmergencyOverride bool            `json:"emergency_override"`
	ValidFrom         *time.Time      `json:"valid_from"`
	ValidUntil        *time.Time      `json:"valid_until"`
}

// Validate checks if the rule request is valid. Config contents are checked by the
// rule itself.
func (r *RuleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
		validation.Field(&r.RuleType, validation.Required, ruleType),
		validation.Field(&r.Config, validation.Required),
		validation.Field(&r.Priority, validation.Min(-1000), validation.Max(1000)),
	)
}

// Input converts the request into a domain input.
func (r *RuleRequest) Input() *domain.RuleInput {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &domain.RuleInput{
		Name:              r.Name,
		Description:       r.Description,
		RuleType:          domain.RuleType(r.RuleType),
		Config:            r.Config,
		Enabled:           enabled,
		Priority:          r.Priority,
		EmergencyOverride: r.EmergencyOverride,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
	}
}

// DeviceInfoRequest describes the requesting device.
type DeviceInfoRequest struct {
	Platform   string  `json:"platform"`
	Managed    bool    `json:"managed"`
	Encrypted  bool    `json:"encrypted"`
	TrustScore float64 `json:"trust_score"`
}

// GeoLocationRequest is the caller position.
type GeoLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// ContextRequest carries the request facts contextual rules are evaluated against.
type ContextRequest struct {
	IPAddress   string              `json:"ip_address"`
	DeviceID    string              `json:"device_id"`
	DeviceInfo  *DeviceInfoRequest  `json:"device_info"`
	GeoLocation *GeoLocationRequest `json:"geo_location"`
	CurrentTime *time.Time          `json:"current_time"`
}

// Validate checks if the context request is valid.
func (r ContextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IPAddress, customValidation.IPAddress),
		validation.Field(&r.DeviceID, validation.Length(0, 200)),
	)
}

// Context converts the request into a rule context. fallbackIP is used when the
// request names no address.
func (r ContextRequest) Context(userID uuid.UUID, fallbackIP string) domain.Context {
	ctx := domain.Context{
		IPAddress: r.IPAddress,
		UserID:    userID,
		DeviceID:  r.DeviceID,
	}
	if ctx.IPAddress == "" {
		ctx.IPAddress = fallbackIP
	}
	if r.DeviceInfo != nil {
		ctx.DeviceInfo = &domain.DeviceInfo{
			Platform:   r.DeviceInfo.Platform,
			Managed:    r.DeviceInfo.Managed,
			Encrypted:  r.DeviceInfo.Encrypted,
			TrustScore: r.DeviceInfo.TrustScore,
		}
	}
	if r.GeoLocation != nil {
		ctx.GeoLocation = &domain.GeoLocation{
			Latitude:  r.GeoLocation.Latitude,
			Longitude: r.GeoLocation.Longitude,
			Country:   r.GeoLocation.Country,
		}
	}
	if r.CurrentTime != nil {
		ctx.CurrentTime = r.CurrentTime.UTC()
	}
	return ctx
}

// CheckRulesRequest asks for the bound-rule verdict of a (resource type, action) pair.
type CheckRulesRequest struct {
	ResourceType string         `json:"resource_type"`
	Action       string         `json:"action"`
	Context      ContextRequest `json:"context"`
}

// Validate checks if the check request is valid.
func (r *CheckRulesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ResourceType, validation.Required, customValidation.Identifier),
		validation.Field(&r.Action, validation.Required, customValidation.Identifier),
		validation.Field(&r.Context),
	)
}

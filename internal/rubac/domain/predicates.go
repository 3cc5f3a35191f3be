package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/allisson/accessgate/internal/errors"
)

// Denial reasons. Reasons never echo the caller's address, position or device.
const (
	ReasonOutsideTimeWindow   = "outside permitted time window"
	ReasonIPUnavailable       = "ip address unavailable"
	ReasonIPNotPermitted      = "ip address not permitted"
	ReasonLocationUnavailable = "location unavailable"
	ReasonOutsideGeofence     = "location outside geofence"
	ReasonCountryNotPermitted = "country not permitted"
	ReasonDeviceUnavailable   = "device information unavailable"
	ReasonDeviceNotTrusted    = "device not trusted"
	ReasonInvalidConfig       = "invalid rule configuration"
)

const earthRadiusMeters = 6371000.0

type predicate interface {
	// check returns an empty string when the context satisfies the rule.
	check(ctx Context) string
	validate() error
}

// TimeWindowConfig admits requests between Start and End ("HH:MM", End exclusive) on
// the listed days in Timezone. Start after End wraps midnight; Start equal to End
// spans the whole day. No days means every day.
type TimeWindowConfig struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Days     []string `json:"days,omitempty"`
	Timezone string   `json:"timezone,omitempty"`

	startMinute int
	endMinute   int
	location    *time.Location
}

func (c *TimeWindowConfig) validate() error {
	var err error
	if c.startMinute, err = parseClock(c.Start); err != nil {
		return err
	}
	if c.endMinute, err = parseClock(c.End); err != nil {
		return err
	}
	for _, day := range c.Days {
		if !slices.Contains(weekdays, strings.ToLower(day)) {
			return fmt.Errorf("unknown day %q", day)
		}
	}
	c.location = time.UTC
	if c.Timezone != "" {
		if c.location, err = time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", c.Timezone)
		}
	}
	return nil
}

var weekdays = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (c *TimeWindowConfig) check(ctx Context) string {
	now := ctx.now().In(c.location)

	if len(c.Days) > 0 {
		today := weekdays[now.Weekday()]
		if !slices.ContainsFunc(c.Days, func(day string) bool { return strings.ToLower(day) == today }) {
			return ReasonOutsideTimeWindow
		}
	}

	minute := now.Hour()*60 + now.Minute()
	var inside bool
	switch {
	case c.startMinute < c.endMinute:
		inside = minute >= c.startMinute && minute < c.endMinute
	case c.startMinute > c.endMinute:
		inside = minute >= c.startMinute || minute < c.endMinute
	default:
		inside = true
	}
	if !inside {
		return ReasonOutsideTimeWindow
	}
	return ""
}

// IPRangeConfig admits addresses inside any Allowed prefix and outside every Blocked
// prefix. Entries are CIDR prefixes or bare addresses. An empty Allowed list admits
// any address not blocked.
type IPRangeConfig struct {
	Allowed []string `json:"allowed,omitempty"`
	Blocked []string `json:"blocked,omitempty"`

	allowed []netip.Prefix
	blocked []netip.Prefix
}

func (c *IPRangeConfig) validate() error {
	if len(c.Allowed) == 0 && len(c.Blocked) == 0 {
		return fmt.Errorf("allowed or blocked ranges are required")
	}
	var err error
	if c.allowed, err = parsePrefixes(c.Allowed); err != nil {
		return err
	}
	c.blocked, err = parsePrefixes(c.Blocked)
	return err
}

func parsePrefixes(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid prefix %q", value)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", value)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	return slices.ContainsFunc(prefixes, func(prefix netip.Prefix) bool { return prefix.Contains(addr) })
}

func (c *IPRangeConfig) check(ctx Context) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ctx.IPAddress))
	if err != nil {
		return ReasonIPUnavailable
	}
	addr = addr.Unmap()
	if containsAddr(c.blocked, addr) {
		return ReasonIPNotPermitted
	}
	if len(c.allowed) > 0 && !containsAddr(c.allowed, addr) {
		return ReasonIPNotPermitted
	}
	return ""
}

// GeofenceConfig admits callers within RadiusMeters of a center point and, when
// Countries is set, located in one of the listed ISO country codes. A zero radius
// disables the distance check.
type GeofenceConfig struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	RadiusMeters float64  `json:"radius_meters"`
	Countries    []string `json:"countries,omitempty"`
}

func (c *GeofenceConfig) validate() error {
	if c.RadiusMeters < 0 {
		return fmt.Errorf("radius_meters must not be negative")
	}
	if c.RadiusMeters == 0 && len(c.Countries) == 0 {
		return fmt.Errorf("radius_meters or countries is required")
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("center is not a valid coordinate")
	}
	return nil
}

func (c *GeofenceConfig) check(ctx Context) string {
	if ctx.GeoLocation == nil {
		return ReasonLocationUnavailable
	}
	if len(c.Countries) > 0 && !slices.ContainsFunc(c.Countries, func(country string) bool {
		return strings.EqualFold(country, ctx.GeoLocation.Country)
	}) {
		return ReasonCountryNotPermitted
	}
	if c.RadiusMeters > 0 &&
		DistanceMeters(c.Latitude, c.Longitude, ctx.GeoLocation.Latitude, ctx.GeoLocation.Longitude) > c.RadiusMeters {
		return ReasonOutsideGeofence
	}
	return ""
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// DeviceTrustConfig admits devices listed in TrustedDevices or meeting every posture
// requirement. At least one requirement must be set.
type DeviceTrustConfig struct {
	TrustedDevices   []string `json:"trusted_devices,omitempty"`
	RequireManaged   bool     `json:"require_managed,omitempty"`
	RequireEncrypted bool     `json:"require_encrypted,omitempty"`
	MinTrustScore    float64  `json:"min_trust_score,omitempty"`
	Platforms        []string `json:"platforms,omitempty"`
}

func (c *DeviceTrustConfig) validate() error {
	if len(c.TrustedDevices) == 0 && !c.RequireManaged && !c.RequireEncrypted && c.MinTrustScore == 0 &&
		len(c.Platforms) == 0 {
		return fmt.Errorf("at least one device requirement is required")
	}
	return nil
}

func (c *DeviceTrustConfig) check(ctx Context) string {
	if ctx.DeviceID != "" && slices.Contains(c.TrustedDevices, ctx.DeviceID) {
		return ""
	}
	postureRequired := c.RequireManaged || c.RequireEncrypted || c.MinTrustScore > 0 || len(c.Platforms) > 0
	if !postureRequired {
		return ReasonDeviceNotTrusted
	}
	info := ctx.DeviceInfo
	if info == nil {
		return ReasonDeviceUnavailable
	}
	if c.RequireManaged && !info.Managed {
		return ReasonDeviceNotTrusted
	}
	if c.RequireEncrypted && !info.Encrypted {
		return ReasonDeviceNotTrusted
	}
	if info.TrustScore < c.MinTrustScore {
		return ReasonDeviceNotTrusted
	}
	if len(c.Platforms) > 0 && !slices.ContainsFunc(c.Platforms, func(platform string) bool {
		return strings.EqualFold(platform, info.Platform)
	}) {
		return ReasonDeviceNotTrusted
	}
	return ""
}

// predicate decodes the config for the rule type.
func (r *AccessRule) predicate() (predicate, error) {
	var p predicate
	switch r.RuleType {
	case RuleTypeTimeWindow:
		p = &TimeWindowConfig{}
	case RuleTypeIPRange:
		p = &IPRangeConfig{}
	case RuleTypeGeofence:
		p = &GeofenceConfig{}
	case RuleTypeDeviceTrust:
		p = &DeviceTrustConfig{}
	default:
		return nil, ErrInvalidRuleType
	}

	if len(r.Config) == 0 {
		return nil, errors.Wrap(ErrInvalidRuleConfig, "config is required")
	}
	if err := json.Unmarshal(r.Config, p); err != nil {
		return nil, errors.Wrap(ErrInvalidRuleConfig, err.Error())
	}
	if err := p.validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidRuleConfig, err.Error())
	}
	return p, nil
}

package validation

import (
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

// SecurityLevel validates that a string names one of the five lattice levels.
var SecurityLevel = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_security_level_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if _, err := macDomain.ParseLevel(s); err != nil {
		return validation.NewError(
			"validation_security_level",
			"must be one of PUBLIC, INTERNAL, CONFIDENTIAL, RESTRICTED, TOP_SECRET",
		)
	}
	return nil
})

// CIDR validates an IP prefix ("10.0.0.0/8") or a bare address.
var CIDR = validation.NewStringRuleWithError(
	func(s string) bool {
		if strings.Contains(s, "/") {
			_, err := netip.ParsePrefix(s)
			return err == nil
		}
		_, err := netip.ParseAddr(s)
		return err == nil
	},
	validation.NewError("validation_cidr", "must be a valid IP address or CIDR prefix"),
)

// IPAddress validates a bare IPv4 or IPv6 address.
var IPAddress = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := netip.ParseAddr(s)
		return err == nil
	},
	validation.NewError("validation_ip_address", "must be a valid IP address"),
)

// Identifier validates lower-case resource and action names such as "visitor" or "read".
var Identifier = validation.NewStringRuleWithError(
	func(s string) bool {
		if s == "*" {
			return true
		}
		for _, r := range s {
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' && r != '-' && r != '.' {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_identifier", "must contain only lower-case letters, digits, '_', '-' or '.'"),
)

// UUID validates a textual UUID.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// FutureTime validates that an optional *time.Time, when set, lies in the future.
var FutureTime = validation.By(func(value interface{}) error {
	t, ok := value.(*time.Time)
	if !ok || t == nil {
		return nil
	}
	if !t.After(time.Now()) {
		return validation.NewError("validation_future_time", "must be in the future")
	}
	return nil
})

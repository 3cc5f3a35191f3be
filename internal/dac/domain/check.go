package domain

import (
	"time"

	"github.com/google/uuid"
)

// Denial reasons. Reasons never carry grant contents.
const (
	ReasonNotShared         = "resource not shared with principal"
	ReasonGrantExpired      = "share grant expired"
	ReasonGrantRevoked      = "share grant revoked"
	ReasonMissingPermission = "share grant lacks permission"
)

// Decision is the outcome of a sharing check.
type Decision struct {
	Allowed bool
	Reason  string
	Owner   bool
}

// CheckAccess admits the owner unconditionally and any other principal holding an
// effective grant with the requested permission. grant may be nil.
func CheckAccess(
	ownerID *uuid.UUID,
	principalID uuid.UUID,
	grant *ShareGrant,
	permission Permission,
	now time.Time,
) Decision {
	if ownerID != nil && *ownerID == principalID {
		return Decision{Allowed: true, Reason: "owner", Owner: true}
	}
	if grant == nil {
		return Decision{Reason: ReasonNotShared}
	}
	if !grant.Active {
		return Decision{Reason: ReasonGrantRevoked}
	}
	if grant.IsExpired(now) {
		return Decision{Reason: ReasonGrantExpired}
	}
	if !grant.Permissions.Has(permission) {
		return Decision{Reason: ReasonMissingPermission}
	}
	return Decision{Allowed: true, Reason: "shared"}
}

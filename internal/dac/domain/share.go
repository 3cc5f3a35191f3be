// Package domain defines the discretionary sharing ledger: resources are accessible to
// their owner and to principals holding an active, unexpired share grant.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
)

// Permission is a bit set of share permissions.
type Permission uint8

const (
	PermissionRead Permission = 1 << iota
	PermissionWrite
	PermissionDelete
	PermissionShare
)

// PermissionAll is every share permission.
const PermissionAll = PermissionRead | PermissionWrite | PermissionDelete | PermissionShare

var permissionNames = []struct {
	bit  Permission
	name string
}{
	{PermissionRead, "READ"},
	{PermissionWrite, "WRITE"},
	{PermissionDelete, "DELETE"},
	{PermissionShare, "SHARE"},
}

// ParsePermission parses a single permission name, case-insensitive.
func ParsePermission(name string) (Permission, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, p := range permissionNames {
		if p.name == name {
			return p.bit, nil
		}
	}
	return 0, errors.Wrap(ErrInvalidPermission, name)
}

// ParsePermissions folds a list of names into a bit set.
func ParsePermissions(names []string) (Permission, error) {
	var set Permission
	for _, name := range names {
		bit, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		set |= bit
	}
	return set, nil
}

// PermissionForAction maps a decision action onto the share bit that covers it.
// Unknown actions map to READ.
func PermissionForAction(action string) Permission {
	switch strings.ToLower(action) {
	case "write", "update", "create", "edit":
		return PermissionWrite
	case "delete", "remove":
		return PermissionDelete
	case "share", "grant":
		return PermissionShare
	default:
		return PermissionRead
	}
}

// Has reports whether every bit of other is set.
func (p Permission) Has(other Permission) bool {
	return other != 0 && p&other == other
}

// Names lists the set bits in a stable order.
func (p Permission) Names() []string {
	names := make([]string, 0, len(permissionNames))
	for _, entry := range permissionNames {
		if p&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

// String joins the set bit names with "|".
func (p Permission) String() string {
	return strings.Join(p.Names(), "|")
}

// ShareGrant gives one principal permissions on one resource. There is at most one row
// per (resource, principal); regranting extends the same row.
type ShareGrant struct {
	ID            uuid.UUID
	ResourceID    uuid.UUID
	PrincipalID   uuid.UUID
	Permissions   Permission
	GrantedBy     *uuid.UUID
	ExpiresAt     *time.Time
	Active        bool
	RevokedReason string
	RevokedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsExpired reports whether the grant has passed its expiry at now.
func (g *ShareGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// IsEffective reports whether the grant confers anything at now. An expired grant is
// inert even before the sweep deactivates it.
func (g *ShareGrant) IsEffective(now time.Time) bool {
	return g.Active && !g.IsExpired(now)
}

// Extend merges a new grant into an effective one: permissions are unioned and the
// expiry moves to the later of the two, where no expiry counts as latest. A grant that
// is no longer effective is replaced instead.
func (g *ShareGrant) Extend(permissions Permission, expiresAt *time.Time, grantedBy *uuid.UUID, now time.Time) {
	if g.IsEffective(now) {
		g.Permissions |= permissions
		g.ExpiresAt = laterExpiry(g.ExpiresAt, expiresAt)
	} else {
		g.Permissions = permissions
		g.ExpiresAt = expiresAt
	}
	g.Active = true
	g.RevokedReason = ""
	g.RevokedAt = nil
	g.GrantedBy = grantedBy
	g.UpdatedAt = now
}

// Deactivate marks the grant inactive with a reason.
func (g *ShareGrant) Deactivate(reason string, now time.Time) error {
	if !g.Active {
		return ErrGrantInactive
	}
	g.Active = false
	g.RevokedReason = reason
	g.RevokedAt = &now
	g.UpdatedAt = now
	return nil
}

func laterExpiry(a, b *time.Time) *time.Time {
	if a == nil || b == nil {
		return nil
	}
	if b.After(*a) {
		return b
	}
	return a
}

// GrantInput holds the fields accepted when sharing a resource.
type GrantInput struct {
	ResourceID  uuid.UUID
	PrincipalID uuid.UUID
	Permissions Permission
	ExpiresAt   *time.Time
}

// Domain-specific errors for sharing operations.
var (
	// ErrGrantNotFound indicates the referenced share grant does not exist.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "share grant not found")

	// ErrGrantInactive indicates a revoke request for a grant that is already inactive.
	ErrGrantInactive = errors.Wrap(errors.ErrConflict, "share grant is not active")

	// ErrInvalidPermission indicates an unknown share permission name.
	ErrInvalidPermission = errors.Wrap(errors.ErrInvalidInput, "invalid share permission")

	// ErrShareWithOwner indicates a grant naming the resource owner.
	ErrShareWithOwner = errors.Wrap(errors.ErrInvalidInput, "owner already holds every permission")

	// ErrNotShareable indicates an actor that is neither owner nor SHARE holder.
	ErrNotShareable = errors.Wrap(errors.ErrForbidden, "only the owner or a SHARE holder may share")

	// ErrShareExceedsOwn indicates a SHARE holder granting permissions it does not hold.
	ErrShareExceedsOwn = errors.Wrap(errors.ErrForbidden, "cannot share permissions beyond own grant")
)

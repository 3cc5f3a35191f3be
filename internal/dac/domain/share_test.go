package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissions(t *testing.T) {
	set, err := ParsePermissions([]string{"read", "SHARE"})
	require.NoError(t, err)
	assert.True(t, set.Has(PermissionRead))
	assert.True(t, set.Has(PermissionShare))
	assert.False(t, set.Has(PermissionWrite))
	assert.Equal(t, []string{"READ", "SHARE"}, set.Names())
	assert.Equal(t, "READ|SHARE", set.String())

	_, err = ParsePermissions([]string{"execute"})
	assert.ErrorIs(t, err, ErrInvalidPermission)
}

func TestPermission_HasZero(t *testing.T) {
	assert.False(t, PermissionAll.Has(0))
}

func TestPermissionForAction(t *testing.T) {
	assert.Equal(t, PermissionRead, PermissionForAction("read"))
	assert.Equal(t, PermissionRead, PermissionForAction("view"))
	assert.Equal(t, PermissionWrite, PermissionForAction("UPDATE"))
	assert.Equal(t, PermissionDelete, PermissionForAction("delete"))
	assert.Equal(t, PermissionShare, PermissionForAction("share"))
}

func TestShareGrant_Extend(t *testing.T) {
	now := time.Now().UTC()
	soon := now.Add(time.Hour)
	later := now.Add(24 * time.Hour)

	t.Run("unions and extends an effective grant", func(t *testing.T) {
		grant := &ShareGrant{Permissions: PermissionRead, ExpiresAt: &later, Active: true}
		grant.Extend(PermissionWrite, &soon, nil, now)

		assert.Equal(t, PermissionRead|PermissionWrite, grant.Permissions)
		assert.Equal(t, &later, grant.ExpiresAt)
	})

	t.Run("no expiry wins", func(t *testing.T) {
		grant := &ShareGrant{Permissions: PermissionRead, ExpiresAt: &soon, Active: true}
		grant.Extend(PermissionRead, nil, nil, now)

		assert.Nil(t, grant.ExpiresAt)
	})

	t.Run("replaces a revoked grant", func(t *testing.T) {
		grant := &ShareGrant{Permissions: PermissionAll, Active: false, RevokedReason: "left"}
		grant.Extend(PermissionRead, &soon, nil, now)

		assert.Equal(t, PermissionRead, grant.Permissions)
		assert.True(t, grant.Active)
		assert.Empty(t, grant.RevokedReason)
		assert.Equal(t, &soon, grant.ExpiresAt)
	})

	t.Run("replaces an expired grant", func(t *testing.T) {
		past := now.Add(-time.Hour)
		grant := &ShareGrant{Permissions: PermissionAll, ExpiresAt: &past, Active: true}
		grant.Extend(PermissionRead, nil, nil, now)

		assert.Equal(t, PermissionRead, grant.Permissions)
		assert.Nil(t, grant.ExpiresAt)
	})
}

func TestShareGrant_Deactivate(t *testing.T) {
	now := time.Now().UTC()
	grant := &ShareGrant{Active: true}

	require.NoError(t, grant.Deactivate("no longer needed", now))
	assert.False(t, grant.Active)
	assert.Equal(t, "no longer needed", grant.RevokedReason)
	assert.ErrorIs(t, grant.Deactivate("again", now), ErrGrantInactive)
}

func TestCheckAccess(t *testing.T) {
	now := time.Now().UTC()
	owner := uuid.Must(uuid.NewV7())
	principal := uuid.Must(uuid.NewV7())
	past := now.Add(-time.Minute)

	tests := []struct {
		name      string
		principal uuid.UUID
		grant     *ShareGrant
		perm      Permission
		allowed   bool
		reason    string
	}{
		{"owner", owner, nil, PermissionDelete, true, "owner"},
		{"no grant", principal, nil, PermissionRead, false, ReasonNotShared},
		{"shared", principal, &ShareGrant{Active: true, Permissions: PermissionRead}, PermissionRead, true, "shared"},
		{"missing bit", principal, &ShareGrant{Active: true, Permissions: PermissionRead}, PermissionWrite, false,
			ReasonMissingPermission},
		{"expired row still present", principal,
			&ShareGrant{Active: true, Permissions: PermissionAll, ExpiresAt: &past}, PermissionRead, false,
			ReasonGrantExpired},
		{"revoked", principal, &ShareGrant{Active: false, Permissions: PermissionAll}, PermissionRead, false,
			ReasonGrantRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := CheckAccess(&owner, tt.principal, tt.grant, tt.perm, now)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}

	t.Run("ownerless resource", func(t *testing.T) {
		decision := CheckAccess(nil, principal, nil, PermissionRead, now)
		assert.False(t, decision.Allowed)
	})
}

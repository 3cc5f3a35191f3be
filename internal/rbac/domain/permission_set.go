package domain

import (
	"maps"
	"slices"
	"strings"
)

// Permission sources recorded on merged entries.
const (
	SourceInherited  = "inherited"
	SourceRole       = "role"
	SourceAssignment = "assignment"
	SourceDirect     = "direct"
)

// PermissionEntry is one resolved capability.
type PermissionEntry struct {
	Granted bool
	Source  string
	Role    string
}

// PermissionSet maps capabilities to their resolved entries. Entries must be applied
// in increasing precedence; once a key is denied it stays denied for the whole merge.
type PermissionSet map[PermissionKey]PermissionEntry

// Apply writes an entry unless the key is already denied.
func (s PermissionSet) Apply(key PermissionKey, entry PermissionEntry) {
	if existing, ok := s[key]; ok && !existing.Granted {
		return
	}
	s[key] = entry
}

// Merge applies every entry of other in key order.
func (s PermissionSet) Merge(other PermissionSet) {
	for _, key := range other.Keys() {
		s.Apply(key, other[key])
	}
}

// Allows reports whether the key is granted. A "*" action or resource entry covers any
// action or resource, but an explicit denial on the exact key always wins.
func (s PermissionSet) Allows(resource, action string) bool {
	exact := PermissionKey{Resource: resource, Action: action}
	if entry, ok := s[exact]; ok {
		return entry.Granted
	}
	for _, key := range []PermissionKey{
		{Resource: resource, Action: "*"},
		{Resource: "*", Action: action},
		{Resource: "*", Action: "*"},
	} {
		if entry, ok := s[key]; ok {
			return entry.Granted
		}
	}
	return false
}

// Keys returns the keys sorted by resource then action.
func (s PermissionSet) Keys() []PermissionKey {
	return slices.SortedFunc(maps.Keys(s), func(a, b PermissionKey) int {
		if c := strings.Compare(a.Resource, b.Resource); c != 0 {
			return c
		}
		return strings.Compare(a.Action, b.Action)
	})
}

// Clone returns a shallow copy.
func (s PermissionSet) Clone() PermissionSet {
	return maps.Clone(s)
}

// RolePermissions is the resolution of one role: its own entries, what it inherits
// from its ancestors, and the merge of both.
type RolePermissions struct {
	Role      *Role
	Direct    PermissionSet
	Inherited PermissionSet
	Merged    PermissionSet
}

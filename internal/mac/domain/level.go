// Package domain defines the mandatory access control model: an ordered set of
// security levels, compartment (need-to-know) tags and the lattice rules that decide
// whether a subject may read, write, classify or declassify a resource.
package domain

import (
	"strings"

	apperrors "github.com/allisson/accessgate/internal/errors"
)

// Level is a security classification. Levels form a five-point total order.
type Level string

const (
	// LevelPublic is releasable to anyone.
	LevelPublic Level = "PUBLIC"

	// LevelInternal is limited to members of the organization.
	LevelInternal Level = "INTERNAL"

	// LevelConfidential is limited to staff with a business need.
	LevelConfidential Level = "CONFIDENTIAL"

	// LevelRestricted is limited to explicitly cleared staff.
	LevelRestricted Level = "RESTRICTED"

	// LevelTopSecret is the highest classification.
	LevelTopSecret Level = "TOP_SECRET"
)

// ErrInvalidLevel indicates a level string outside the supported lattice.
var ErrInvalidLevel = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid security level")

var levelRank = map[Level]int{
	LevelPublic:       0,
	LevelInternal:     1,
	LevelConfidential: 2,
	LevelRestricted:   3,
	LevelTopSecret:    4,
}

// Levels returns all levels in ascending order.
func Levels() []Level {
	return []Level{LevelPublic, LevelInternal, LevelConfidential, LevelRestricted, LevelTopSecret}
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[level]; !ok {
		return "", ErrInvalidLevel
	}
	return level, nil
}

// IsValid reports whether l is one of the five supported levels.
func (l Level) IsValid() bool {
	_, ok := levelRank[l]
	return ok
}

// Rank returns the position of l in the total order, or -1 for unknown levels.
func (l Level) Rank() int {
	rank, ok := levelRank[l]
	if !ok {
		return -1
	}
	return rank
}

// Dominates reports whether l is at or above other.
// Unknown levels never dominate and are never dominated.
func (l Level) Dominates(other Level) bool {
	if !l.IsValid() || !other.IsValid() {
		return false
	}
	return l.Rank() >= other.Rank()
}

// String returns the level name.
func (l Level) String() string {
	return string(l)
}

// MaxLevel returns the higher of two levels.
func MaxLevel(a, b Level) Level {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

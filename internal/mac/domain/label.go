package domain

import (
	"slices"
	"strings"
)

// Compartments is a set of need-to-know tags such as FINANCIAL or PERSONNEL.
// Tags are compared case-insensitively and stored upper-cased.
type Compartments []string

// NormalizeCompartments trims, upper-cases, de-duplicates and sorts compartment tags.
// Blank tags are dropped.
func NormalizeCompartments(tags []string) Compartments {
	out := make(Compartments, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// Covers reports whether every tag in required is present in c.
// An empty required set is always covered.
func (c Compartments) Covers(required Compartments) bool {
	held := NormalizeCompartments(c)
	for _, tag := range NormalizeCompartments(required) {
		if !slices.Contains(held, tag) {
			return false
		}
	}
	return true
}

// Label is a classification: a level plus a compartment set. It is used both as a
// resource's security label and as a subject's clearance.
type Label struct {
	Level        Level        `json:"level"`
	Compartments Compartments `json:"compartments"`
}

// NewLabel builds a label with normalized compartments.
func NewLabel(level Level, compartments []string) Label {
	return Label{Level: level, Compartments: NormalizeCompartments(compartments)}
}

// Dominates reports whether l is at or above other in level and holds all of other's compartments.
func (l Label) Dominates(other Label) bool {
	return l.Level.Dominates(other.Level) && l.Compartments.Covers(other.Compartments)
}

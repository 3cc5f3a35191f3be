// Package domain defines protected resources: a (type, external id) pair carrying a
// security label, an optional owner and an open set of named attributes.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

// Attribute provenance sources.
const (
	SourceDeclared       = "declared"
	SourceAutoClassifier = "auto-classifier"
)

// Resource is a protected object known to the decision engine.
type Resource struct {
	ID         uuid.UUID
	Type       string
	ExternalID string
	OwnerID    *uuid.UUID
	Label      macDomain.Label
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOwnedBy reports whether principalID is the recorded owner.
func (r *Resource) IsOwnedBy(principalID uuid.UUID) bool {
	return r.OwnerID != nil && *r.OwnerID == principalID
}

// Attribute is a named value attached to a resource. Calculated attributes are derived
// by the system (for example by auto-classification) and tagged with their source.
type Attribute struct {
	ResourceID uuid.UUID
	Name       string
	Value      any
	Calculated bool
	Source     string
	UpdatedAt  time.Time
}

// AttributeMap flattens a resource and its attributes into the map used by ABAC.
// Built-in fields override stored attributes of the same name.
func (r *Resource) AttributeMap(attributes []*Attribute) map[string]any {
	attrs := make(map[string]any, len(attributes)+6)
	for _, attribute := range attributes {
		attrs[attribute.Name] = attribute.Value
	}
	attrs["id"] = r.ID.String()
	attrs["type"] = r.Type
	attrs["externalId"] = r.ExternalID
	attrs["securityLevel"] = string(r.Label.Level)
	attrs["compartments"] = []string(r.Label.Compartments)
	if r.OwnerID != nil {
		attrs["ownerId"] = r.OwnerID.String()
	}
	return attrs
}

// RegisterResourceInput holds the fields accepted when registering a resource.
type RegisterResourceInput struct {
	Type       string
	ExternalID string
	OwnerID    *uuid.UUID
	Label      macDomain.Label
}

// Domain-specific errors for resource operations.
var (
	// ErrResourceNotFound indicates the referenced resource is not registered.
	ErrResourceNotFound = errors.Wrap(errors.ErrNotFound, "resource not found")

	// ErrResourceAlreadyExists indicates the (type, external id) pair is already registered.
	ErrResourceAlreadyExists = errors.Wrap(errors.ErrConflict, "resource already exists")

	// ErrAttributeNotFound indicates the named attribute is not set on the resource.
	ErrAttributeNotFound = errors.Wrap(errors.ErrNotFound, "resource attribute not found")

	// ErrReservedAttribute indicates an attempt to overwrite a built-in attribute name.
	ErrReservedAttribute = errors.Wrap(errors.ErrInvalidInput, "attribute name is reserved")
)

var reservedAttributes = map[string]struct{}{
	"id": {}, "type": {}, "externalId": {}, "securityLevel": {}, "compartments": {}, "ownerId": {},
}

// IsReservedAttribute reports whether name collides with a built-in attribute.
func IsReservedAttribute(name string) bool {
	_, ok := reservedAttributes[name]
	return ok
}

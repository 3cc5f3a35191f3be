// Package http provides the principal middleware and the principal administration handlers.
package http

import (
	"context"

	"github.com/google/uuid"
)

// principalIDKey is a context key type for storing the authenticated principal id.
type principalIDKey struct{}

// WithPrincipalID stores the authenticated principal id in the context.
func WithPrincipalID(ctx context.Context, principalID uuid.UUID) context.Context {
	return context.WithValue(ctx, principalIDKey{}, principalID)
}

// GetPrincipalID retrieves the authenticated principal id from the context.
// Returns (uuid.Nil, false) when the principal middleware did not run.
func GetPrincipalID(ctx context.Context) (uuid.UUID, bool) {
	principalID, ok := ctx.Value(principalIDKey{}).(uuid.UUID)
	return principalID, ok
}

// Package domain defines the audit trail that ties every access decision and every
// policy mutation to an actor, a resource and a reason.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

// Outcome classifies an audit entry.
type Outcome string

const (
	// OutcomeAllowed records a decision that admitted the request.
	OutcomeAllowed Outcome = "ALLOWED"

	// OutcomeDenied records a decision that rejected the request.
	OutcomeDenied Outcome = "DENIED"

	// OutcomeApplied records a successful administrative mutation.
	OutcomeApplied Outcome = "APPLIED"
)

// AuditLog is one immutable audit record. Label is the classification of the audit
// entry itself: entries about classified resources inherit at least that level.
type AuditLog struct {
	ID           uuid.UUID
	RequestID    string
	ActorID      uuid.UUID // uuid.Nil when the request was unauthenticated
	Action       string
	ResourceType string
	ResourceID   string
	Outcome      Outcome
	Engine       string
	Reason       string
	Label        macDomain.Level
	Metadata     map[string]any
	Signature    []byte
	CreatedAt    time.Time
}

// Mutation builds an audit record for an administrative change attributed to the actor
// stored in ctx.
func Mutation(
	ctx context.Context,
	action, resourceType, resourceID string,
	label macDomain.Level,
	metadata map[string]any,
) *AuditLog {
	return &AuditLog{
		ActorID:      ActorIDFromContext(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      OutcomeApplied,
		Label:        label,
		Metadata:     metadata,
	}
}

// ListFilter narrows an audit log listing. Nil or empty fields are ignored and
// time boundaries are inclusive.
type ListFilter struct {
	ActorID       *uuid.UUID
	Outcome       Outcome
	ResourceType  string
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
}

// VerificationReport summarizes a signature verification pass.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidLogs   []uuid.UUID
}

// ErrSignatureInvalid indicates an audit record does not match its signature.
var ErrSignatureInvalid = errors.Wrap(errors.ErrConflict, "audit log signature invalid")

type requestIDKey struct{}

// WithRequestID stores the inbound request id so audit records can be correlated.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type actorIDKey struct{}

// WithActorID stores the acting principal so mutations can attribute their audit records.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// ActorIDFromContext returns the acting principal, or uuid.Nil when none was stored.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(actorIDKey{}).(uuid.UUID)
	return id
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/errors"
)

// AssignmentStatus is the lifecycle state of a role assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentSuspended AssignmentStatus = "SUSPENDED"
	AssignmentExpired   AssignmentStatus = "EXPIRED"
	AssignmentRevoked   AssignmentStatus = "REVOKED"
)

// RoleAssignment links a principal to an additional role. There is exactly one row per
// (user, role); reassignment moves the same row back to ACTIVE.
type RoleAssignment struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	RoleID         uuid.UUID
	RoleName       string
	Status         AssignmentStatus
	StatusReason   string
	AssignedBy     *uuid.UUID
	ExpiresAt      *time.Time
	NextReviewAt   *time.Time
	LastReviewedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsEffective reports whether the assignment contributes permissions at now. An ACTIVE
// row past its expiry is already inert even before the sweep marks it EXPIRED.
func (a *RoleAssignment) IsEffective(now time.Time) bool {
	if a.Status != AssignmentActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// Transition moves an ACTIVE assignment to a terminal status. Every non-ACTIVE status
// is terminal for the row.
func (a *RoleAssignment) Transition(to AssignmentStatus, reason string, now time.Time) error {
	if a.Status != AssignmentActive || to == AssignmentActive {
		return errors.Wrap(ErrInvalidTransition, fmt.Sprintf("%s to %s", a.Status, to))
	}
	a.Status = to
	a.StatusReason = reason
	a.UpdatedAt = now
	return nil
}

// Reactivate moves the row back to ACTIVE for a reassignment.
func (a *RoleAssignment) Reactivate(assignedBy *uuid.UUID, expiresAt, nextReviewAt *time.Time, now time.Time) {
	a.Status = AssignmentActive
	a.StatusReason = ""
	a.AssignedBy = assignedBy
	a.ExpiresAt = expiresAt
	a.NextReviewAt = nextReviewAt
	a.UpdatedAt = now
}

// ReviewDue reports whether the next review falls before now plus the lead window.
func (a *RoleAssignment) ReviewDue(now time.Time, leadWindow time.Duration) bool {
	return a.Status == AssignmentActive && a.NextReviewAt != nil && !a.NextReviewAt.After(now.Add(leadWindow))
}

// AssignmentFilter narrows assignment listings. Zero values match everything.
type AssignmentFilter struct {
	UserID *uuid.UUID
	Status AssignmentStatus
}

// AssignRoleInput holds the fields accepted when assigning a role.
type AssignRoleInput struct {
	UserID    uuid.UUID
	RoleID    uuid.UUID
	ExpiresAt *time.Time
}

// ReviewOutcome is the result of a role review.
type ReviewOutcome string

const (
	ReviewApproved ReviewOutcome = "APPROVED"
	ReviewFailed   ReviewOutcome = "FAILED"
)

var (
	// ErrAssignmentNotFound indicates the referenced assignment does not exist.
	ErrAssignmentNotFound = errors.Wrap(errors.ErrNotFound, "role assignment not found")

	// ErrInvalidTransition indicates a status change the assignment state machine forbids.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid assignment transition")

	// ErrAssignmentActive indicates an assign request for an already active assignment.
	ErrAssignmentActive = errors.Wrap(errors.ErrConflict, "role assignment already active")

	// ErrInvalidReviewOutcome indicates a review outcome other than APPROVED or FAILED.
	ErrInvalidReviewOutcome = errors.Wrap(errors.ErrInvalidInput, "invalid review outcome")
)

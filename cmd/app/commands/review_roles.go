package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
)

// ReviewLister lists the assignments due for review.
type ReviewLister interface {
	ListDueForReview(ctx context.Context, now time.Time) ([]*rbacDomain.RoleAssignment, error)
}

type reviewDue struct {
	AssignmentID string     `json:"assignment_id"`
	UserID       string     `json:"user_id"`
	RoleID       string     `json:"role_id"`
	RoleName     string     `json:"role_name"`
	NextReviewAt *time.Time `json:"next_review_at"`
}

// RunReviewRoles prints the active role assignments whose next review falls within
// ROLE_REVIEW_LEAD_WINDOW. Reviews are completed through the assignments API.
func RunReviewRoles(
	ctx context.Context,
	lister ReviewLister,
	logger *slog.Logger,
	writer io.Writer,
	now time.Time,
	format string,
) error {
	assignments, err := lister.ListDueForReview(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list assignments due for review: %w", err)
	}

	logger.Info("role review sweep completed", slog.Int("due", len(assignments)))

	due := make([]reviewDue, 0, len(assignments))
	for _, assignment := range assignments {
		due = append(due, reviewDue{
			AssignmentID: assignment.ID.String(),
			UserID:       assignment.UserID.String(),
			RoleID:       assignment.RoleID.String(),
			RoleName:     assignment.RoleName,
			NextReviewAt: assignment.NextReviewAt,
		})
	}

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"count":       len(due),
			"assignments": due,
		})
	}

	if len(due) == 0 {
		_, _ = fmt.Fprintln(writer, "No role assignments due for review")
		return nil
	}

	_, _ = fmt.Fprintf(writer, "%d role assignment(s) due for review:\n", len(due))
	for _, entry := range due {
		nextReview := "-"
		if entry.NextReviewAt != nil {
			nextReview = entry.NextReviewAt.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(writer, "  - %s user=%s role=%s next_review=%s\n",
			entry.AssignmentID, entry.UserID, entry.RoleName, nextReview)
	}
	return nil
}

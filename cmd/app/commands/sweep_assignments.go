package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/accessgate/internal/sweeper"
)

// SweepRunner performs a single expiry sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (sweeper.Result, error)
}

// RunSweepAssignments expires role assignments and share grants whose expiry has passed.
// The server runs the same sweep on SWEEP_INTERVAL; this command is for cron-driven
// deployments.
func RunSweepAssignments(
	ctx context.Context,
	runner SweepRunner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("sweeping expired assignments and share grants")

	result, err := runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"expired_assignments": result.ExpiredAssignments,
			"expired_shares":      result.ExpiredShares,
		})
	}

	_, _ = fmt.Fprintf(writer, "Expired %d role assignment(s)\n", result.ExpiredAssignments)
	_, _ = fmt.Fprintf(writer, "Expired %d share grant(s)\n", result.ExpiredShares)
	return nil
}

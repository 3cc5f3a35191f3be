// Package sweeper runs the periodic expiry of role assignments and share grants.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Expirer transitions every record whose expiry has passed and returns how many changed.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Sweeper expires role assignments and share grants on a fixed interval.
type Sweeper struct {
	interval    time.Duration
	assignments Expirer
	shares      Expirer
	logger      *slog.Logger
	now         func() time.Time
}

// NewSweeper creates a Sweeper. Either expirer may be nil to skip that sweep.
func NewSweeper(interval time.Duration, assignments, shares Expirer, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		interval:    interval,
		assignments: assignments,
		shares:      shares,
		logger:      logger,
		now:         time.Now,
	}
}

// Start runs RunOnce on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("starting sweeper", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping sweeper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Result counts the records transitioned by one sweep.
type Result struct {
	ExpiredAssignments int
	ExpiredShares      int
}

// RunOnce performs a single sweep. A failing assignment sweep does not prevent the
// share sweep; the first error is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var (
		result   Result
		firstErr error
	)
	now := s.now().UTC()

	if s.assignments != nil {
		count, err := s.assignments.ExpireDue(ctx, now)
		if err != nil {
			firstErr = err
		}
		result.ExpiredAssignments = count
	}

	if s.shares != nil {
		count, err := s.shares.ExpireDue(ctx, now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		result.ExpiredShares = count
	}

	if result.ExpiredAssignments > 0 || result.ExpiredShares > 0 {
		s.logger.Info("sweep completed",
			slog.Int("expired_assignments", result.ExpiredAssignments),
			slog.Int("expired_shares", result.ExpiredShares),
		)
	}

	return result, firstErr
}

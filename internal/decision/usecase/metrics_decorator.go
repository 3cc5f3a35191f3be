package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/accessgate/internal/decision/domain"
	"github.com/allisson/accessgate/internal/metrics"
)

// decisionUseCaseWithMetrics decorates DecisionUseCase with metrics instrumentation.
type decisionUseCaseWithMetrics struct {
	next    DecisionUseCase
	metrics metrics.BusinessMetrics
}

// NewDecisionUseCaseWithMetrics wraps a DecisionUseCase with metrics recording.
func NewDecisionUseCaseWithMetrics(useCase DecisionUseCase, m metrics.BusinessMetrics) DecisionUseCase {
	return &decisionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// CheckAccess records metrics for access decisions. The status is "allowed", "denied"
// or "error" for malformed and unauthenticated requests.
func (d *decisionUseCaseWithMetrics) CheckAccess(
	ctx context.Context,
	principalID uuid.UUID,
	opts domain.Options,
) (*domain.Result, error) {
	start := time.Now()
	result, err := d.next.CheckAccess(ctx, principalID, opts)

	status := "denied"
	switch {
	case err != nil:
		status = "error"
	case result.Allowed:
		status = "allowed"
	default:
		d.metrics.RecordDenial(ctx, string(result.DeniedBy))
	}

	d.metrics.RecordOperation(ctx, "decision", "check_access", status)
	d.metrics.RecordDuration(ctx, "decision", "check_access", time.Since(start), status)

	return result, err
}

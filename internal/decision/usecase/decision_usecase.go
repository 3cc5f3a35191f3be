package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditUseCase "github.com/allisson/accessgate/internal/audit/usecase"
	"github.com/allisson/accessgate/internal/decision/domain"
	"github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
	rbacDomain "github.com/allisson/accessgate/internal/rbac/domain"
	userDomain "github.com/allisson/accessgate/internal/user/domain"
)

type decisionUseCase struct {
	principals PrincipalReader
	resources  ResourceReader
	engines    []Engine
	recorder   auditUseCase.Recorder
	bypassRole string
	timeout    time.Duration
	logger     *slog.Logger
}

func (d *decisionUseCase) CheckAccess(
	ctx context.Context,
	principalID uuid.UUID,
	opts domain.Options,
) (*domain.Result, error) {
	result := &domain.Result{CheckedMechanisms: make(map[domain.Mechanism]domain.EngineResult)}

	if err := opts.Validate(); err != nil {
		result.Reasons = []string{err.Error()}
		return result, err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if principalID == uuid.Nil {
		result.Reasons = []string{domain.ReasonNotAuthenticated}
		d.audit(ctx, principalID, opts, nil, result)
		return result, domain.ErrAuthenticationRequired
	}

	req, err := d.load(ctx, principalID, opts)
	if err != nil {
		switch {
		case isTimeout(ctx, err):
			result.Reasons = []string{domain.ReasonTimeout}
		case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrUnauthorized):
			result.Reasons = []string{domain.ReasonNotAuthenticated}
			d.audit(ctx, principalID, opts, nil, result)
			return result, domain.ErrAuthenticationRequired
		default:
			d.logger.Warn("principal lookup failed",
				slog.String("principal_id", principalID.String()),
				slog.Any("error", err),
			)
			result.Reasons = []string{domain.ReasonEvaluationFailure}
		}
		d.audit(ctx, principalID, opts, nil, result)
		return result, nil
	}

	if req.Principal.HoldsRole(d.bypassRole) {
		result.Allowed = true
		result.Bypass = true
		result.Reasons = []string{domain.ReasonBypass}
		for _, m := range domain.Order {
			result.CheckedMechanisms[m] = domain.EngineResult{Allowed: true, Reason: domain.ReasonBypass}
		}
		d.audit(ctx, principalID, opts, req, result)
		return result, nil
	}

	reasons := make([]string, 0, len(d.engines))
	for _, engine := range d.engines {
		m := engine.Mechanism()
		if !opts.Enabled(m) {
			continue
		}

		var outcome domain.EngineResult
		if ctx.Err() != nil {
			outcome = domain.EngineResult{Reason: domain.ReasonTimeout}
		} else {
			outcome, err = engine.Evaluate(ctx, req)
			if err != nil {
				outcome = d.failure(ctx, m, principalID, err)
			}
		}
		result.CheckedMechanisms[m] = outcome

		if !outcome.Allowed {
			result.DeniedBy = m
			result.Reasons = []string{formatReason(m, outcome.Reason)}
			d.audit(ctx, principalID, opts, req, result)
			return result, nil
		}
		reasons = append(reasons, formatReason(m, outcome.Reason))
	}

	result.Allowed = true
	result.Reasons = reasons
	d.audit(ctx, principalID, opts, req, result)
	return result, nil
}

// load authenticates the principal and, when MAC needs the stored label, loads the
// resource concurrently. A resource failure is kept on the request for MAC to report.
func (d *decisionUseCase) load(ctx context.Context, principalID uuid.UUID, opts domain.Options) (*Request, error) {
	req := &Request{Options: opts}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		principal, err := d.principals.GetByID(gctx, principalID)
		if err != nil {
			return err
		}
		if !principal.IsActive {
			return userDomain.ErrUserInactive
		}
		req.Principal = principal
		return nil
	})
	if opts.CheckMAC && opts.TargetLevel == "" && opts.ResourceID != nil {
		g.Go(func() error {
			req.Resource, req.ResourceErr = d.resources.GetByID(gctx, *opts.ResourceID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return req, nil
}

// failure converts an engine error into a denial. Missing records deny quietly;
// anything else is logged.
func (d *decisionUseCase) failure(
	ctx context.Context,
	m domain.Mechanism,
	principalID uuid.UUID,
	err error,
) domain.EngineResult {
	switch {
	case isTimeout(ctx, err):
		return domain.EngineResult{Reason: domain.ReasonTimeout}
	case errors.Is(err, errors.ErrNotFound):
		return domain.EngineResult{Reason: domain.ReasonResourceNotFound}
	default:
		d.logger.Warn("access engine failed",
			slog.String("engine", string(m)),
			slog.String("principal_id", principalID.String()),
			slog.Any("error", err),
		)
		return domain.EngineResult{Reason: domain.ReasonEvaluationFailure}
	}
}

// audit records the terminal decision. The entry label is the highest level the
// decision touched, at least INTERNAL.
func (d *decisionUseCase) audit(
	ctx context.Context,
	principalID uuid.UUID,
	opts domain.Options,
	req *Request,
	result *domain.Result,
) {
	label := macDomain.LevelInternal
	if req != nil && req.Resource != nil && req.Resource.Label.Level.Rank() > label.Rank() {
		label = req.Resource.Label.Level
	}
	if opts.TargetLevel.IsValid() && opts.TargetLevel.Rank() > label.Rank() {
		label = opts.TargetLevel
	}

	outcome := auditDomain.OutcomeDenied
	if result.Allowed {
		outcome = auditDomain.OutcomeAllowed
	}

	checked := make(map[string]any, len(result.CheckedMechanisms))
	for m, r := range result.CheckedMechanisms {
		checked[string(m)] = r.Allowed
	}
	metadata := map[string]any{"mechanisms": checked}
	if opts.RoutePath != "" {
		metadata["route"] = opts.RoutePath
	}
	if opts.RequiredPermission != "" {
		metadata["required_permission"] = opts.RequiredPermission
	}

	entry := &auditDomain.AuditLog{
		ActorID:      principalID,
		Action:       decisionAction(opts),
		ResourceType: opts.ResourceType,
		Outcome:      outcome,
		Engine:       string(result.DeniedBy),
		Reason:       strings.Join(result.Reasons, "; "),
		Label:        label,
		Metadata:     metadata,
	}
	if result.Bypass {
		entry.Engine = domain.ReasonBypass
	}
	if opts.ResourceID != nil {
		entry.ResourceID = opts.ResourceID.String()
	}

	// The decision context may already be past its deadline.
	if err := d.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Error("failed to record access decision",
			slog.String("principal_id", principalID.String()),
			slog.Any("error", err),
		)
	}

	d.logger.Debug("access decision",
		slog.String("principal_id", principalID.String()),
		slog.String("resource_type", opts.ResourceType),
		slog.String("action", opts.Action),
		slog.Bool("allowed", result.Allowed),
		slog.String("denied_by", string(result.DeniedBy)),
	)
}

func decisionAction(opts domain.Options) string {
	if opts.Action == "" {
		return "decision.check"
	}
	return "decision." + opts.Action
}

func formatReason(m domain.Mechanism, reason string) string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(m)), reason)
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// NewDecisionUseCase creates the orchestrator. engines must be given in evaluation
// order; bypassRole names the role that skips every engine (empty disables it) and
// timeout bounds each decision (zero disables it).
func NewDecisionUseCase(
	principals PrincipalReader,
	resources ResourceReader,
	engines []Engine,
	recorder auditUseCase.Recorder,
	bypassRole string,
	timeout time.Duration,
	logger *slog.Logger,
) DecisionUseCase {
	return &decisionUseCase{
		principals: principals,
		resources:  resources,
		engines:    engines,
		recorder:   recorder,
		bypassRole: rbacDomain.NormalizeRoleName(bypassRole),
		timeout:    timeout,
		logger:     logger,
	}
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
	auditService "github.com/allisson/accessgate/internal/audit/service"
	apperrors "github.com/allisson/accessgate/internal/errors"
	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       auditService.Signer
	now          func() time.Time
}

// Record assigns an identifier and timestamp, defaults the entry label to INTERNAL,
// correlates the request id from the context and signs the entry when a signer is
// configured.
func (a *auditLogUseCase) Record(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.Must(uuid.NewV7())
	}
	if auditLog.CreatedAt.IsZero() {
		auditLog.CreatedAt = a.now().UTC()
	}
	if auditLog.RequestID == "" {
		auditLog.RequestID = auditDomain.RequestIDFromContext(ctx)
	}
	if !auditLog.Label.IsValid() {
		auditLog.Label = macDomain.LevelInternal
	}

	if a.signer != nil {
		signature, err := a.signer.Sign(auditLog)
		if err != nil {
			return apperrors.Wrap(err, "failed to sign audit log")
		}
		auditLog.Signature = signature
	}

	if err := a.auditLogRepo.Create(ctx, auditLog); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// List retrieves audit logs ordered newest first.
func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	auditLogs, err := a.auditLogRepo.List(ctx, offset, limit, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	return auditLogs, nil
}

// DeleteOlderThan removes audit logs created more than days days ago.
func (a *auditLogUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be zero or positive")
	}

	olderThan := a.now().UTC().AddDate(0, 0, -days)
	count, err := a.auditLogRepo.DeleteOlderThan(ctx, olderThan, dryRun)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	return count, nil
}

// VerifyBatch recomputes the signature of every entry in [start, end]. Entries without a
// signature are counted as unsigned. Fails when no signer is configured.
func (a *auditLogUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditDomain.VerificationReport, error) {
	if a.signer == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "audit signing key is not configured")
	}

	auditLogs, err := a.auditLogRepo.ListByRange(ctx, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	report := &auditDomain.VerificationReport{InvalidLogs: make([]uuid.UUID, 0)}
	for _, auditLog := range auditLogs {
		report.TotalChecked++
		if len(auditLog.Signature) == 0 {
			report.UnsignedCount++
			continue
		}

		report.SignedCount++
		if err := a.signer.Verify(auditLog); err != nil {
			report.InvalidCount++
			report.InvalidLogs = append(report.InvalidLogs, auditLog.ID)
			continue
		}
		report.ValidCount++
	}

	return report, nil
}

// NewAuditLogUseCase creates an AuditLogUseCase. signer may be nil to disable signing.
func NewAuditLogUseCase(auditLogRepo AuditLogRepository, signer auditService.Signer) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		signer:       signer,
		now:          time.Now,
	}
}

package entryqueue

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	entryservice "github.com/aceclub-io/ace-engine/app/modules/entry/application"
	verificationservice "github.com/aceclub-io/ace-engine/app/modules/verification/application"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
)

// EntrySweepWorker applies the entry auto-miss sweep. The sweep itself is
// idempotent, so River retries are safe.
type EntrySweepWorker struct {
	river.WorkerDefaults[EntrySweepJob]
	service entryservice.Service
	logger  *slog.Logger
}

func NewEntrySweepWorker(service entryservice.Service, logger *slog.Logger) *EntrySweepWorker {
	return &EntrySweepWorker{service: service, logger: logger}
}

func (w *EntrySweepWorker) Work(ctx context.Context, job *river.Job[EntrySweepJob]) error {
	outcome, err := w.service.SweepOverdueEntries(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Entry sweep job failed", attr.Error(err))
		return err
	}
	w.logger.DebugContext(ctx, "Entry sweep job completed",
		attr.Int("entries_swept", len(outcome.EntryIDs)))
	return nil
}

// VerificationSweepWorker applies the verification expiry sweep.
type VerificationSweepWorker struct {
	river.WorkerDefaults[VerificationSweepJob]
	service verificationservice.Service
	logger  *slog.Logger
}

func NewVerificationSweepWorker(service verificationservice.Service, logger *slog.Logger) *VerificationSweepWorker {
	return &VerificationSweepWorker{service: service, logger: logger}
}

func (w *VerificationSweepWorker) Work(ctx context.Context, job *river.Job[VerificationSweepJob]) error {
	outcome, err := w.service.SweepExpiredVerifications(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Verification sweep job failed", attr.Error(err))
		return err
	}
	w.logger.DebugContext(ctx, "Verification sweep job completed",
		attr.Int("verifications_swept", len(outcome.Swept)))
	return nil
}

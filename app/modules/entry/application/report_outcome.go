package entryservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// ReportOutcome applies the player's self-report. The repository's
// conditional write resolves races: whoever commits first wins and the loser
// observes the already-set terminal state and never overwrites it.
// A win creates the verification record (idempotently) with its review
// deadline.
func (s *EntryService) ReportOutcome(ctx context.Context, entryID uuid.UUID, rawOutcome string) (ReportOutcomeResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "ReportOutcome", entryID.String(),
		func(ctx context.Context) (ReportOutcomeResult, error) {
			outcome, ok := entrydb.ParseOutcome(rawOutcome)
			if !ok {
				return results.Failure[OutcomeReported](OutcomeReportFailure{
					Kind:   results.FailureValidation,
					Reason: ReportReasonInvalidOutcome,
				}), nil
			}

			now := s.clock.NowUTC()
			rows, err := s.entryDB.ReportOutcome(ctx, entryID, outcome, now)
			if err != nil {
				return ReportOutcomeResult{}, err
			}
			if rows == 0 {
				return s.classifyReportFailure(ctx, entryID, now)
			}

			entry, err := s.entryDB.GetEntry(ctx, entryID)
			if err != nil {
				return ReportOutcomeResult{}, fmt.Errorf("failed to re-read entry after report: %w", err)
			}

			reported := OutcomeReported{Entry: entry}
			if outcome == entrydb.OutcomeWin {
				verification, created, err := s.verificationDB.EnsureVerification(ctx, entryID, now.Add(s.config.VerificationTimeout))
				if err != nil {
					return ReportOutcomeResult{}, fmt.Errorf("failed to ensure verification: %w", err)
				}
				reported.Verification = verification
				if created {
					if err := s.publisher.Publish(ctx, eventbus.SubjectVerificationPending, verification); err != nil {
						s.logger.WarnContext(ctx, "Verification created but notification failed",
							attr.VerificationID(verification.ID), attr.Error(err))
					}
				}
			}

			s.logger.InfoContext(ctx, "Outcome reported",
				attr.ExtractCorrelationID(ctx),
				attr.EntryID(entryID),
				attr.String("outcome", string(outcome)),
			)
			return results.Success[OutcomeReported, OutcomeReportFailure](reported), nil
		})
}

// classifyReportFailure turns a zero-row conditional write into a
// distinguished failure by re-reading the current state. A race lost to the
// sweep (or another tab) is expected, not alarming.
func (s *EntryService) classifyReportFailure(ctx context.Context, entryID uuid.UUID, now time.Time) (ReportOutcomeResult, error) {
	entry, err := s.entryDB.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, entrydb.ErrEntryNotFound) {
			return results.Failure[OutcomeReported](OutcomeReportFailure{
				Kind:   results.FailureValidation,
				Reason: ReportReasonEntryNotFound,
			}), nil
		}
		return ReportOutcomeResult{}, fmt.Errorf("failed to classify report failure: %w", err)
	}

	switch {
	case entry.Resolved():
		return results.Failure[OutcomeReported](OutcomeReportFailure{
			Kind:   results.FailureRaceLost,
			Reason: ReportReasonAlreadyResolved,
			Entry:  entry,
		}), nil
	case entry.AttemptWindowEnd != nil && now.After(*entry.AttemptWindowEnd):
		// Late report: the sweep owns this entry now. Reporting after expiry
		// is a conflict, never an override.
		return results.Failure[OutcomeReported](OutcomeReportFailure{
			Kind:   results.FailurePrecondition,
			Reason: ReportReasonWindowClosed,
			Entry:  entry,
		}), nil
	default:
		return results.Failure[OutcomeReported](OutcomeReportFailure{
			Kind:   results.FailurePrecondition,
			Reason: ReportReasonWindowNotOpen,
			Entry:  entry,
		}), nil
	}
}

package verificationservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// EnsureVerification creates the verification record for a winning entry if
// one does not already exist, and returns it either way. Safe to call
// repeatedly: the entry_id unique constraint means concurrent callers converge
// on a single row. The review deadline is anchored to the moment the win was
// reported, not to this call.
func (s *VerificationService) EnsureVerification(ctx context.Context, entryID uuid.UUID) (EnsureVerificationResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "EnsureVerification", entryID.String(),
		func(ctx context.Context) (EnsureVerificationResult, error) {
			entry, err := s.entryDB.GetEntry(ctx, entryID)
			if err != nil {
				if errors.Is(err, entrydb.ErrEntryNotFound) {
					return results.Failure[VerificationEnsured](VerificationFailure{
						Kind:   results.FailureValidation,
						Reason: ReasonEntryNotFound,
					}), nil
				}
				return EnsureVerificationResult{}, fmt.Errorf("failed to load entry: %w", err)
			}

			if entry.OutcomeSelf == nil || *entry.OutcomeSelf != entrydb.OutcomeWin {
				return results.Failure[VerificationEnsured](VerificationFailure{
					Kind:   results.FailurePrecondition,
					Reason: ReasonEntryNotAWin,
				}), nil
			}

			deadlineBase := s.clock.NowUTC()
			if entry.OutcomeReportedAt != nil {
				deadlineBase = *entry.OutcomeReportedAt
			}

			verification, created, err := s.verificationDB.EnsureVerification(ctx, entryID, deadlineBase.Add(s.config.VerificationTimeout))
			if err != nil {
				return EnsureVerificationResult{}, fmt.Errorf("failed to ensure verification: %w", err)
			}

			if created {
				s.logger.InfoContext(ctx, "Verification created",
					attr.ExtractCorrelationID(ctx),
					attr.VerificationID(verification.ID),
					attr.EntryID(entryID),
					attr.Time("auto_miss_at", verification.AutoMissAt),
				)
				if err := s.publisher.Publish(ctx, eventbus.SubjectVerificationPending, verification); err != nil {
					s.logger.WarnContext(ctx, "Verification created but notification failed",
						attr.VerificationID(verification.ID), attr.Error(err))
				}
			}

			return results.Success[VerificationEnsured, VerificationFailure](VerificationEnsured{
				Verification: verification,
				Created:      created,
			}), nil
		})
}

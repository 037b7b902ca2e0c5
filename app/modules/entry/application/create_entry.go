package entryservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// CreateEntry runs the guarded entry creation: competition must be accepting,
// the payment fact must cover the fee, and the cooldown is re-checked inside
// the insert transaction so concurrent requests cannot both pass.
func (s *EntryService) CreateEntry(ctx context.Context, input CreateEntryInput) (CreateEntryResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "CreateEntry", input.PlayerID.String(),
		func(ctx context.Context) (CreateEntryResult, error) {
			now := s.clock.NowUTC()

			windowDuration, err := s.config.Windows.For(input.Path)
			if err != nil {
				return results.Failure[EntryCreated](EntryCreateFailure{
					Kind:   results.FailureValidation,
					Reason: CreateReasonInvalidInput,
				}), nil
			}

			competition, err := s.competitionDB.GetCompetition(ctx, input.CompetitionID)
			if err != nil {
				if errors.Is(err, competitiondb.ErrCompetitionNotFound) {
					return results.Failure[EntryCreated](EntryCreateFailure{
						Kind:   results.FailureValidation,
						Reason: CreateReasonCompetitionNotFound,
					}), nil
				}
				return CreateEntryResult{}, fmt.Errorf("failed to load competition: %w", err)
			}

			if !competition.IsAcceptingEntries(now) {
				return results.Failure[EntryCreated](EntryCreateFailure{
					Kind:   results.FailurePrecondition,
					Reason: CreateReasonCompetitionClosed,
				}), nil
			}

			// An unpaid entry for a fee-bearing competition never enters the
			// attempt window.
			if competition.EntryFeeMinor > 0 && !input.Paid {
				return results.Failure[EntryCreated](EntryCreateFailure{
					Kind:   results.FailurePrecondition,
					Reason: CreateReasonPaymentRequired,
				}), nil
			}

			windowEnd := now.Add(windowDuration)
			status := entrydb.EntryStatusActive
			if input.Paid {
				status = entrydb.EntryStatusPaid
			}

			entry := &entrydb.Entry{
				ID:                 uuid.New(),
				CompetitionID:      input.CompetitionID,
				PlayerID:           input.PlayerID,
				Paid:               input.Paid,
				AmountMinor:        input.AmountMinor,
				Status:             status,
				Path:               input.Path,
				AttemptWindowStart: &now,
				AttemptWindowEnd:   &windowEnd,
				PaymentProvider:    input.PaymentProvider,
				PaymentDate:        input.PaymentDate,
				TermsVersion:       input.TermsVersion,
				CreatedAt:          now,
			}
			if input.TermsAccepted {
				entry.TermsAcceptedAt = &now
			}

			created, err := s.entryDB.CreateEntry(ctx, entry, s.config.Cooldown, now)
			if err != nil {
				return CreateEntryResult{}, err
			}
			if created.RetryAt != nil {
				return results.Failure[EntryCreated](EntryCreateFailure{
					Kind:    results.FailurePrecondition,
					Reason:  CreateReasonCooldownActive,
					RetryAt: created.RetryAt,
				}), nil
			}

			s.logger.InfoContext(ctx, "Entry created",
				attr.ExtractCorrelationID(ctx),
				attr.EntryID(created.Entry.ID),
				attr.CompetitionID(input.CompetitionID),
				attr.PlayerID(input.PlayerID),
				attr.Time("attempt_window_end", windowEnd),
			)

			// Notification is best-effort: the committed entry is the source
			// of truth.
			if err := s.publisher.Publish(ctx, eventbus.SubjectEntryCreated, created.Entry); err != nil {
				s.logger.WarnContext(ctx, "Entry created but notification failed",
					attr.EntryID(created.Entry.ID), attr.Error(err))
			}

			return results.Success[EntryCreated, EntryCreateFailure](EntryCreated{Entry: created.Entry}), nil
		})
}

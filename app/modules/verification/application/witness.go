package verificationservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
	"github.com/aceclub-io/ace-engine/app/shared/token"
)

// RequestWitnessConfirmation mints a single-use confirmation token for a third
// party and emails it a link (via the event bus). Calling it again for the
// same claim re-sends: a fresh token is appended and earlier unconfirmed ones
// are marked superseded.
func (s *VerificationService) RequestWitnessConfirmation(ctx context.Context, verificationID uuid.UUID, witnessName, witnessEmail string) (RequestWitnessResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "RequestWitnessConfirmation", verificationID.String(),
		func(ctx context.Context) (RequestWitnessResult, error) {
			if witnessEmail == "" {
				return results.Failure[WitnessRequested](VerificationFailure{
					Kind:   results.FailureValidation,
					Reason: ReasonWitnessEmailRequired,
				}), nil
			}

			verification, err := s.verificationDB.GetVerification(ctx, verificationID)
			if err != nil {
				if errors.Is(err, verificationdb.ErrVerificationNotFound) {
					return results.Failure[WitnessRequested](VerificationFailure{
						Kind:   results.FailureValidation,
						Reason: ReasonVerificationNotFound,
					}), nil
				}
				return RequestWitnessResult{}, fmt.Errorf("failed to load verification: %w", err)
			}
			if verification.Status.Terminal() {
				return results.Failure[WitnessRequested](VerificationFailure{
					Kind:   results.FailurePrecondition,
					Reason: ReasonAlreadyResolved,
				}), nil
			}

			prior, err := s.verificationDB.LatestWitnessToken(ctx, verificationID)
			if err != nil {
				return RequestWitnessResult{}, fmt.Errorf("failed to check prior witness tokens: %w", err)
			}

			raw, err := token.New(witnessTokenBytes)
			if err != nil {
				return RequestWitnessResult{}, err
			}

			now := s.clock.NowUTC()
			confirmation := &verificationdb.WitnessConfirmation{
				ID:             uuid.New(),
				VerificationID: verificationID,
				Token:          raw,
				WitnessName:    witnessName,
				WitnessEmail:   witnessEmail,
				CreatedAt:      now,
				ExpiresAt:      now.Add(s.config.WitnessTTL),
			}
			if err := s.verificationDB.IssueWitnessToken(ctx, confirmation); err != nil {
				return RequestWitnessResult{}, fmt.Errorf("failed to issue witness token: %w", err)
			}

			subject := eventbus.SubjectWitnessRequested
			if prior != nil {
				subject = eventbus.SubjectWitnessResent
			}
			if err := s.publisher.Publish(ctx, subject, confirmation); err != nil {
				s.logger.WarnContext(ctx, "Witness token issued but notification failed",
					attr.VerificationID(verificationID), attr.Error(err))
			}

			s.logger.InfoContext(ctx, "Witness confirmation requested",
				attr.ExtractCorrelationID(ctx),
				attr.VerificationID(verificationID),
				attr.Bool("resend", prior != nil),
				attr.Time("expires_at", confirmation.ExpiresAt),
			)
			return results.Success[WitnessRequested, VerificationFailure](WitnessRequested{
				Confirmation: confirmation,
				Resent:       prior != nil,
			}), nil
		})
}

// ConfirmWitness redeems a confirmation token. The repository's guarded write
// makes this first-click-wins; every failure comes back distinguished so the
// witness sees why the link no longer works.
func (s *VerificationService) ConfirmWitness(ctx context.Context, rawToken string) (ConfirmWitnessResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "ConfirmWitness", "",
		func(ctx context.Context) (ConfirmWitnessResult, error) {
			now := s.clock.NowUTC()
			confirmation, outcome, err := s.verificationDB.ConfirmWitness(ctx, rawToken, now)
			if err != nil {
				return ConfirmWitnessResult{}, err
			}

			switch outcome {
			case verificationdb.WitnessConfirmOK:
				s.logger.InfoContext(ctx, "Witness confirmed",
					attr.ExtractCorrelationID(ctx),
					attr.VerificationID(confirmation.VerificationID),
				)
				if err := s.publisher.Publish(ctx, eventbus.SubjectWitnessConfirmed, confirmation); err != nil {
					s.logger.WarnContext(ctx, "Witness confirmed but notification failed",
						attr.VerificationID(confirmation.VerificationID), attr.Error(err))
				}
				return results.Success[WitnessConfirmed, WitnessConfirmFailure](WitnessConfirmed{Confirmation: confirmation}), nil
			case verificationdb.WitnessConfirmNotFound:
				return results.Failure[WitnessConfirmed](WitnessConfirmFailure{
					Kind:    results.FailureValidation,
					Outcome: outcome,
				}), nil
			case verificationdb.WitnessConfirmExpired:
				return results.Failure[WitnessConfirmed](WitnessConfirmFailure{
					Kind:    results.FailurePrecondition,
					Outcome: outcome,
				}), nil
			case verificationdb.WitnessConfirmAlreadyConfirmed:
				return results.Failure[WitnessConfirmed](WitnessConfirmFailure{
					Kind:    results.FailureRaceLost,
					Outcome: outcome,
				}), nil
			default:
				return ConfirmWitnessResult{}, fmt.Errorf("unexpected witness confirm outcome %q", outcome)
			}
		})
}

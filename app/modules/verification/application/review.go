package verificationservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// ClaimForReview moves a claim to under_review for a staff member. Concurrent
// claims are tolerated; the status guard only refuses terminal claims.
func (s *VerificationService) ClaimForReview(ctx context.Context, verificationID uuid.UUID) (ClaimReviewResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "ClaimForReview", verificationID.String(),
		func(ctx context.Context) (ClaimReviewResult, error) {
			now := s.clock.NowUTC()
			rows, err := s.verificationDB.ClaimForReview(ctx, verificationID, now)
			if err != nil {
				return ClaimReviewResult{}, err
			}
			if rows == 0 {
				failure, err := s.classifyWorkflowFailure(ctx, verificationID)
				if err != nil {
					return ClaimReviewResult{}, err
				}
				return results.Failure[ReviewClaimed](failure), nil
			}

			verification, err := s.verificationDB.GetVerification(ctx, verificationID)
			if err != nil {
				return ClaimReviewResult{}, fmt.Errorf("failed to re-read verification after claim: %w", err)
			}
			return results.Success[ReviewClaimed, VerificationFailure](ReviewClaimed{Verification: verification}), nil
		})
}

// Decide records the terminal staff decision. Exactly one decision wins: the
// guarded write refuses claims already verified, rejected or swept, and the
// loser gets a race-lost failure instead of an overwrite.
func (s *VerificationService) Decide(ctx context.Context, input DecisionInput) (DecideResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "Decide", input.VerificationID.String(),
		func(ctx context.Context) (DecideResult, error) {
			status := verificationdb.VerificationStatusRejected
			if input.Approve {
				status = verificationdb.VerificationStatusVerified
			}

			now := s.clock.NowUTC()
			rows, err := s.verificationDB.Decide(ctx, input.VerificationID, status, input.StaffID, now)
			if err != nil {
				return DecideResult{}, err
			}
			if rows == 0 {
				failure, err := s.classifyWorkflowFailure(ctx, input.VerificationID)
				if err != nil {
					return DecideResult{}, err
				}
				return results.Failure[DecisionRecorded](failure), nil
			}

			verification, err := s.verificationDB.GetVerification(ctx, input.VerificationID)
			if err != nil {
				return DecideResult{}, fmt.Errorf("failed to re-read verification after decision: %w", err)
			}

			s.logger.InfoContext(ctx, "Verification decided",
				attr.ExtractCorrelationID(ctx),
				attr.VerificationID(input.VerificationID),
				attr.String("status", string(status)),
				attr.UUID("staff_id", input.StaffID),
			)
			if err := s.publisher.Publish(ctx, eventbus.SubjectVerificationDecided, verification); err != nil {
				s.logger.WarnContext(ctx, "Decision recorded but notification failed",
					attr.VerificationID(input.VerificationID), attr.Error(err))
			}

			return results.Success[DecisionRecorded, VerificationFailure](DecisionRecorded{Verification: verification}), nil
		})
}

package verificationservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// SubmitEvidence attaches evidence URLs and witness metadata to an open claim.
// The engine stores URLs issued elsewhere; it validates shape only, never
// content. Writes are guarded on a non-terminal status, so evidence can never
// land on a decided or swept claim.
func (s *VerificationService) SubmitEvidence(ctx context.Context, verificationID uuid.UUID, evidence verificationdb.Evidence) (SubmitEvidenceResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "SubmitEvidence", verificationID.String(),
		func(ctx context.Context) (SubmitEvidenceResult, error) {
			if reason, ok := validateEvidence(evidence); !ok {
				return results.Failure[EvidenceSubmitted](VerificationFailure{
					Kind:   results.FailureValidation,
					Reason: reason,
				}), nil
			}

			now := s.clock.NowUTC()
			rows, err := s.verificationDB.AttachEvidence(ctx, verificationID, evidence, now)
			if err != nil {
				return SubmitEvidenceResult{}, err
			}
			if rows == 0 {
				failure, err := s.classifyWorkflowFailure(ctx, verificationID)
				if err != nil {
					return SubmitEvidenceResult{}, err
				}
				return results.Failure[EvidenceSubmitted](failure), nil
			}

			verification, err := s.verificationDB.GetVerification(ctx, verificationID)
			if err != nil {
				return SubmitEvidenceResult{}, fmt.Errorf("failed to re-read verification after evidence: %w", err)
			}

			s.logger.InfoContext(ctx, "Evidence submitted",
				attr.ExtractCorrelationID(ctx),
				attr.VerificationID(verificationID),
				attr.Int("witnesses", len(evidence.Witnesses)),
			)
			return results.Success[EvidenceSubmitted, VerificationFailure](EvidenceSubmitted{Verification: verification}), nil
		})
}

// validateEvidence requires at least one artifact and well-formed URLs.
func validateEvidence(evidence verificationdb.Evidence) (VerificationFailureReason, bool) {
	urls := []string{evidence.SelfieURL, evidence.IDDocumentURL, evidence.HandicapProofURL, evidence.VideoURL}
	seen := false
	for _, raw := range urls {
		if raw == "" {
			continue
		}
		seen = true
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ReasonMissingEvidence, false
		}
	}
	if !seen && len(evidence.Witnesses) == 0 {
		return ReasonMissingEvidence, false
	}
	for _, w := range evidence.Witnesses {
		if w.Name == "" {
			return ReasonInvalidWitness, false
		}
	}
	return "", true
}

// classifyWorkflowFailure turns a zero-row guarded write into a distinguished
// failure by re-reading the claim. A terminal or swept claim means the write
// lost a race; anything else is a precondition miss.
func (s *VerificationService) classifyWorkflowFailure(ctx context.Context, verificationID uuid.UUID) (VerificationFailure, error) {
	verification, err := s.verificationDB.GetVerification(ctx, verificationID)
	if err != nil {
		if errors.Is(err, verificationdb.ErrVerificationNotFound) {
			return VerificationFailure{
				Kind:   results.FailureValidation,
				Reason: ReasonVerificationNotFound,
			}, nil
		}
		return VerificationFailure{}, fmt.Errorf("failed to classify workflow failure: %w", err)
	}
	if verification.Status.Terminal() || verification.AutoMissApplied {
		return VerificationFailure{Kind: results.FailureRaceLost, Reason: ReasonAlreadyResolved}, nil
	}
	return VerificationFailure{Kind: results.FailurePrecondition, Reason: ReasonAlreadyResolved}, nil
}

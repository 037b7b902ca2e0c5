package verificationservice

import (
	"context"

	"github.com/google/uuid"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
)

// Service is the verification workflow's operation surface.
type Service interface {
	EnsureVerification(ctx context.Context, entryID uuid.UUID) (EnsureVerificationResult, error)
	SubmitEvidence(ctx context.Context, verificationID uuid.UUID, evidence verificationdb.Evidence) (SubmitEvidenceResult, error)
	ClaimForReview(ctx context.Context, verificationID uuid.UUID) (ClaimReviewResult, error)
	Decide(ctx context.Context, input DecisionInput) (DecideResult, error)
	RequestWitnessConfirmation(ctx context.Context, verificationID uuid.UUID, witnessName, witnessEmail string) (RequestWitnessResult, error)
	ConfirmWitness(ctx context.Context, token string) (ConfirmWitnessResult, error)
	SweepExpiredVerifications(ctx context.Context) (SweepOutcome, error)
}

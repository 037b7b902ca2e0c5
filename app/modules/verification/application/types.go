package verificationservice

import (
	"time"

	"github.com/google/uuid"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

// VerificationFailureReason distinguishes workflow failures.
type VerificationFailureReason string

const (
	ReasonVerificationNotFound VerificationFailureReason = "verification_not_found"
	ReasonEntryNotFound        VerificationFailureReason = "entry_not_found"
	ReasonEntryNotAWin         VerificationFailureReason = "entry_not_a_win"
	ReasonAlreadyResolved      VerificationFailureReason = "already_resolved"
	ReasonInvalidDecision      VerificationFailureReason = "invalid_decision"
	ReasonMissingEvidence      VerificationFailureReason = "missing_evidence"
	ReasonInvalidWitness       VerificationFailureReason = "invalid_witness"
	ReasonWitnessEmailRequired VerificationFailureReason = "witness_email_required"
)

// VerificationFailure is the shared failure payload for workflow operations.
type VerificationFailure struct {
	Kind   results.FailureKind
	Reason VerificationFailureReason
}

// VerificationEnsured is the success payload of EnsureVerification. Created
// is false when the record already existed; redundant requests are expected.
type VerificationEnsured struct {
	Verification *verificationdb.Verification
	Created      bool
}

// EnsureVerificationResult pairs the EnsureVerification payloads.
type EnsureVerificationResult = results.OperationResult[VerificationEnsured, VerificationFailure]

// EvidenceSubmitted is the success payload of SubmitEvidence.
type EvidenceSubmitted struct {
	Verification *verificationdb.Verification
}

// SubmitEvidenceResult pairs the SubmitEvidence payloads.
type SubmitEvidenceResult = results.OperationResult[EvidenceSubmitted, VerificationFailure]

// ReviewClaimed is the success payload of ClaimForReview.
type ReviewClaimed struct {
	Verification *verificationdb.Verification
}

// ClaimReviewResult pairs the ClaimForReview payloads.
type ClaimReviewResult = results.OperationResult[ReviewClaimed, VerificationFailure]

// DecisionInput is the staff decision on a claim.
type DecisionInput struct {
	VerificationID uuid.UUID
	StaffID        uuid.UUID
	Approve        bool
}

// DecisionRecorded is the success payload of Decide.
type DecisionRecorded struct {
	Verification *verificationdb.Verification
}

// DecideResult pairs the Decide payloads.
type DecideResult = results.OperationResult[DecisionRecorded, VerificationFailure]

// WitnessRequested is the success payload of witness issuance. Resent is true
// when a prior token existed and was superseded.
type WitnessRequested struct {
	Confirmation *verificationdb.WitnessConfirmation
	Resent       bool
}

// RequestWitnessResult pairs the witness issuance payloads.
type RequestWitnessResult = results.OperationResult[WitnessRequested, VerificationFailure]

// WitnessConfirmed is the success payload of ConfirmWitness.
type WitnessConfirmed struct {
	Confirmation *verificationdb.WitnessConfirmation
}

// WitnessConfirmFailure carries the distinguished confirm failure; callers
// surface different UX per outcome.
type WitnessConfirmFailure struct {
	Kind    results.FailureKind
	Outcome verificationdb.WitnessConfirmOutcome
}

// ConfirmWitnessResult pairs the ConfirmWitness payloads.
type ConfirmWitnessResult = results.OperationResult[WitnessConfirmed, WitnessConfirmFailure]

// SweepOutcome reports one verification expiry sweep run.
type SweepOutcome struct {
	Swept   []verificationdb.SweptVerification
	SweptAt time.Time
}

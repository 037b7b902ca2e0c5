package verificationdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Evidence is the uploadable portion of a verification. The engine stores the
// collaborator-issued URLs; it never sees the bytes.
type Evidence struct {
	SelfieURL        string
	IDDocumentURL    string
	HandicapProofURL string
	VideoURL         string
	Witnesses        []Witness
}

// SweptVerification identifies one claim force-resolved by the expiry sweep,
// together with the entry it drove to auto-miss.
type SweptVerification struct {
	VerificationID uuid.UUID
	EntryID        uuid.UUID
}

// WitnessConfirmOutcome is the distinguished result of a confirm attempt.
type WitnessConfirmOutcome string

const (
	WitnessConfirmOK               WitnessConfirmOutcome = "ok"
	WitnessConfirmNotFound         WitnessConfirmOutcome = "not_found"
	WitnessConfirmExpired          WitnessConfirmOutcome = "expired"
	WitnessConfirmAlreadyConfirmed WitnessConfirmOutcome = "already_confirmed"
)

// VerificationDB is the persistence contract for the verification workflow
// and its witness confirmation sub-flow.
type VerificationDB interface {
	// EnsureVerification creates the verification for entryID if absent
	// (INSERT ... ON CONFLICT DO NOTHING under the entry_id unique
	// constraint) and returns it either way. The bool reports whether this
	// call created the row.
	EnsureVerification(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*Verification, bool, error)

	GetVerification(ctx context.Context, verificationID uuid.UUID) (*Verification, error)
	GetVerificationByEntry(ctx context.Context, entryID uuid.UUID) (*Verification, error)

	// AttachEvidence stores evidence URLs/witnesses, guarded on a non-terminal
	// status. Returns rows affected (zero: already resolved or missing).
	AttachEvidence(ctx context.Context, verificationID uuid.UUID, evidence Evidence, now time.Time) (int64, error)

	// ClaimForReview moves pending→under_review. Multiple staff may claim;
	// last write wins, but terminal statuses are never overwritten.
	ClaimForReview(ctx context.Context, verificationID uuid.UUID, now time.Time) (int64, error)

	// Decide writes the terminal staff decision, guarded on a non-terminal
	// status. Zero rows affected means the claim was already resolved.
	Decide(ctx context.Context, verificationID uuid.UUID, status VerificationStatus, staffID uuid.UUID, now time.Time) (int64, error)

	// SweepExpired force-resolves every overdue unresolved claim: flips
	// auto_miss_applied false→true, rejects the verification, and drives the
	// associated entry from win to auto_miss in the same transaction.
	SweepExpired(ctx context.Context, now time.Time) ([]SweptVerification, error)

	// IssueWitnessToken appends a confirmation token row, marking prior
	// unconfirmed tokens for the verification as superseded.
	IssueWitnessToken(ctx context.Context, confirmation *WitnessConfirmation) error

	// ConfirmWitness sets confirmed_at exactly once, guarded on
	// confirmed_at IS NULL and an unexpired token. All failures come back as
	// a distinguished outcome, never a generic error.
	ConfirmWitness(ctx context.Context, token string, now time.Time) (*WitnessConfirmation, WitnessConfirmOutcome, error)

	// LatestWitnessToken returns the most recently issued token for a
	// verification, or nil when none was ever issued.
	LatestWitnessToken(ctx context.Context, verificationID uuid.UUID) (*WitnessConfirmation, error)
}

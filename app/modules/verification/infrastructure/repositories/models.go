package verificationdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationStatus is the review state of a win claim.
type VerificationStatus string

const (
	VerificationStatusInitiated   VerificationStatus = "initiated"
	VerificationStatusPending     VerificationStatus = "pending"
	VerificationStatusUnderReview VerificationStatus = "under_review"
	VerificationStatusVerified    VerificationStatus = "verified"
	VerificationStatusRejected    VerificationStatus = "rejected"
)

// Terminal reports whether no further status writes are permitted.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationStatusVerified || s == VerificationStatusRejected
}

// nonTerminalStatuses is the guard set for every conditional status write.
var nonTerminalStatuses = []VerificationStatus{
	VerificationStatusInitiated,
	VerificationStatusPending,
	VerificationStatusUnderReview,
}

// Witness is a third party named on the evidence bundle.
type Witness struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Verification is the evidence bundle for an entry claiming a win. At most one
// exists per entry (unique constraint on entry_id).
type Verification struct {
	bun.BaseModel `bun:"table:verifications,alias:v"`

	ID      uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	EntryID uuid.UUID          `bun:"entry_id,notnull,unique,type:uuid" json:"entry_id"`
	Status  VerificationStatus `bun:"status,notnull,type:varchar(16)" json:"status"`

	EvidenceCapturedAt *time.Time `bun:"evidence_captured_at,nullzero" json:"evidence_captured_at,omitempty"`
	SelfieURL          string     `bun:"selfie_url,nullzero" json:"selfie_url,omitempty"`
	IDDocumentURL      string     `bun:"id_document_url,nullzero" json:"id_document_url,omitempty"`
	HandicapProofURL   string     `bun:"handicap_proof_url,nullzero" json:"handicap_proof_url,omitempty"`
	VideoURL           string     `bun:"video_url,nullzero" json:"video_url,omitempty"`
	Witnesses          []Witness  `bun:"witnesses,type:jsonb" json:"witnesses,omitempty"`

	// AutoMissAt is the review deadline. AutoMissApplied flips false→true
	// exactly once when the expiry sweep force-resolves the claim.
	AutoMissAt      time.Time `bun:"auto_miss_at,notnull" json:"auto_miss_at"`
	AutoMissApplied bool      `bun:"auto_miss_applied,notnull,default:false" json:"auto_miss_applied"`

	VerifiedAt *time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	VerifiedBy *uuid.UUID `bun:"verified_by,nullzero,type:uuid" json:"verified_by,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// WitnessConfirmation is a single-use, expiring attestation token sent to a
// third party. Re-sends append new rows; history is never deleted.
type WitnessConfirmation struct {
	bun.BaseModel `bun:"table:witness_confirmations,alias:wc"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	VerificationID uuid.UUID `bun:"verification_id,notnull,type:uuid" json:"verification_id"`
	Token          string    `bun:"token,notnull,unique" json:"-"`

	WitnessName  string `bun:"witness_name,nullzero" json:"witness_name,omitempty"`
	WitnessEmail string `bun:"witness_email,notnull" json:"witness_email"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	ConfirmedAt *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	// Superseded marks tokens replaced by a resend. Display metadata only: a
	// superseded token that is unconfirmed and unexpired remains confirmable.
	Superseded bool `bun:"superseded,notnull,default:false" json:"superseded"`
}

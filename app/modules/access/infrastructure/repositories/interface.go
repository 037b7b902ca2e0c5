package accessdb

import (
	"context"
	"time"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
)

// ConsumeFailureReason classifies a failed token consumption.
type ConsumeFailureReason string

const (
	ConsumeNotFound    ConsumeFailureReason = "not_found"
	ConsumeExpired     ConsumeFailureReason = "expired"
	ConsumeAlreadyUsed ConsumeFailureReason = "already_used"
)

// ConsumeOutcome carries the result of a consume transaction. Reason is empty
// on success, in which case Player and Entry were created (or found) in the
// same transaction that burned the token.
type ConsumeOutcome struct {
	Token  *EntryAccessToken
	Player *Player
	Entry  *entrydb.Entry
	Reason ConsumeFailureReason
}

// RedeemOutcome classifies a staff-code redemption.
type RedeemOutcome string

const (
	RedeemOK          RedeemOutcome = "ok"
	RedeemNotFound    RedeemOutcome = "not_found"
	RedeemInactive    RedeemOutcome = "inactive"
	RedeemNotYetValid RedeemOutcome = "not_yet_valid"
	RedeemExpired     RedeemOutcome = "expired"
	RedeemExhausted   RedeemOutcome = "exhausted"
	RedeemRateLimited RedeemOutcome = "rate_limited"
)

// AccessDB is the persistence contract for magic-link tokens, staff codes and
// the append-only redemption audit trail.
type AccessDB interface {
	InsertToken(ctx context.Context, token *EntryAccessToken) error
	GetToken(ctx context.Context, token string) (*EntryAccessToken, error)

	// ConsumeToken flips used false→true with a conditional write and, in the
	// same transaction, find-or-creates the player and inserts the entry
	// produced by buildEntry. Two concurrent calls yield exactly one success.
	ConsumeToken(ctx context.Context, token string, now time.Time, buildEntry func(player *Player) *entrydb.Entry) (*ConsumeOutcome, error)

	// RedeemStaffCode increments current_uses with a conditional write
	// (bounded by max_uses and the validity window). Zero-row outcomes come
	// back classified, never as a generic error.
	RedeemStaffCode(ctx context.Context, prefix, suffix string, now time.Time) (*StaffCode, RedeemOutcome, error)

	// RecordStaffCodeAttempt appends to the audit trail. Called on every
	// redemption attempt regardless of outcome.
	RecordStaffCodeAttempt(ctx context.Context, attempt *StaffCodeAttempt) error
}

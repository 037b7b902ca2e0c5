package accessservice

import (
	"time"

	"github.com/google/uuid"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

// IssueMagicLinkInput binds prospective-entry identity data to an email before
// any Player or Entry row exists.
type IssueMagicLinkInput struct {
	Email   string
	Payload accessdb.TokenPayload
}

// MagicLinkFailureReason distinguishes issuance and consumption failures.
type MagicLinkFailureReason string

const (
	MagicLinkReasonEmailRequired          MagicLinkFailureReason = "email_required"
	MagicLinkReasonInvalidPayload         MagicLinkFailureReason = "invalid_payload"
	MagicLinkReasonInvalidToken           MagicLinkFailureReason = "invalid_token"
	MagicLinkReasonNotFound               MagicLinkFailureReason = "not_found"
	MagicLinkReasonExpired                MagicLinkFailureReason = "expired"
	MagicLinkReasonAlreadyUsed            MagicLinkFailureReason = "already_used"
	MagicLinkReasonCompetitionNotFound    MagicLinkFailureReason = "competition_not_found"
	MagicLinkReasonCompetitionNotAccepting MagicLinkFailureReason = "competition_not_accepting_entries"
)

// MagicLinkFailure is the failure payload for magic-link operations.
type MagicLinkFailure struct {
	Kind   results.FailureKind
	Reason MagicLinkFailureReason
}

// MagicLinkIssued is the success payload of IssueMagicLink. Link is the
// signed URL handed to the notification collaborator; the opaque token itself
// never leaves the database unsigned.
type MagicLinkIssued struct {
	Token     *accessdb.EntryAccessToken
	Link      string
	ExpiresAt time.Time
}

// IssueMagicLinkResult pairs the IssueMagicLink payloads.
type IssueMagicLinkResult = results.OperationResult[MagicLinkIssued, MagicLinkFailure]

// MagicLinkConsumed is the success payload of ConsumeMagicLink: the player and
// entry created (or found) in the same transaction that burned the token.
type MagicLinkConsumed struct {
	Player *accessdb.Player
	Entry  *entrydb.Entry
}

// ConsumeMagicLinkResult pairs the ConsumeMagicLink payloads.
type ConsumeMagicLinkResult = results.OperationResult[MagicLinkConsumed, MagicLinkFailure]

// RedeemStaffCodeInput is one staff-code redemption attempt. EntryID is
// recorded on the audit row when the redemption backs an entry.
type RedeemStaffCodeInput struct {
	Prefix  string
	Suffix  string
	EntryID *uuid.UUID
}

// StaffCodeRedeemed is the success payload of RedeemStaffCode.
type StaffCodeRedeemed struct {
	Code *accessdb.StaffCode
}

// StaffCodeFailure carries the distinguished redemption failure.
type StaffCodeFailure struct {
	Kind    results.FailureKind
	Outcome accessdb.RedeemOutcome
}

// RedeemStaffCodeResult pairs the RedeemStaffCode payloads.
type RedeemStaffCodeResult = results.OperationResult[StaffCodeRedeemed, StaffCodeFailure]

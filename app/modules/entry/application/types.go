package entryservice

import (
	"time"

	"github.com/google/uuid"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

// CreateEntryInput is the player's entry request. Paid and the payment fields
// are facts asserted by the payment collaborator, never verified here.
type CreateEntryInput struct {
	CompetitionID   uuid.UUID
	PlayerID        uuid.UUID
	Path            entrydb.EntryPath
	Paid            bool
	AmountMinor     int64
	PaymentProvider string
	PaymentDate     *time.Time
	TermsAccepted   bool
	TermsVersion    string
}

// CreateFailureReason distinguishes why an entry was not created.
type CreateFailureReason string

const (
	CreateReasonInvalidInput        CreateFailureReason = "invalid_input"
	CreateReasonCompetitionNotFound CreateFailureReason = "competition_not_found"
	CreateReasonCompetitionClosed   CreateFailureReason = "competition_not_accepting_entries"
	CreateReasonPaymentRequired     CreateFailureReason = "payment_not_confirmed"
	CreateReasonCooldownActive      CreateFailureReason = "cooldown_active"
)

// EntryCreated is the success payload of CreateEntry.
type EntryCreated struct {
	Entry *entrydb.Entry
}

// EntryCreateFailure is the failure payload of CreateEntry. RetryAt is set
// only for cooldown blocks.
type EntryCreateFailure struct {
	Kind    results.FailureKind
	Reason  CreateFailureReason
	RetryAt *time.Time
}

// CreateEntryResult pairs the two CreateEntry payloads.
type CreateEntryResult = results.OperationResult[EntryCreated, EntryCreateFailure]

// CooldownStatus is the answer to "may this player enter now?". RetryAt is
// set when blocked.
type CooldownStatus struct {
	Allowed bool       `json:"allowed"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// ReportFailureReason distinguishes why an outcome report was not applied.
type ReportFailureReason string

const (
	ReportReasonEntryNotFound   ReportFailureReason = "entry_not_found"
	ReportReasonInvalidOutcome  ReportFailureReason = "invalid_outcome"
	ReportReasonWindowNotOpen   ReportFailureReason = "window_not_open"
	ReportReasonWindowClosed    ReportFailureReason = "window_closed"
	ReportReasonAlreadyResolved ReportFailureReason = "already_resolved"
)

// OutcomeReported is the success payload of ReportOutcome. Verification is
// non-nil when the outcome was a win.
type OutcomeReported struct {
	Entry        *entrydb.Entry
	Verification *verificationdb.Verification
}

// OutcomeReportFailure is the failure payload of ReportOutcome. Entry carries
// the current row when it exists, so a race loser can observe the terminal
// state without another read.
type OutcomeReportFailure struct {
	Kind   results.FailureKind
	Reason ReportFailureReason
	Entry  *entrydb.Entry
}

// ReportOutcomeResult pairs the two ReportOutcome payloads.
type ReportOutcomeResult = results.OperationResult[OutcomeReported, OutcomeReportFailure]

// SweepOutcome reports one auto-miss sweep run.
type SweepOutcome struct {
	EntryIDs []uuid.UUID
	SweptAt  time.Time
}

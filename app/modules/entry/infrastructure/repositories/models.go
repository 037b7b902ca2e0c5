package entrydb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EntryStatus is the lifecycle state of a single play attempt.
type EntryStatus string

const (
	// EntryStatusActive: window open on a free-entry path.
	EntryStatusActive EntryStatus = "active"
	// EntryStatusPaid: payment confirmed, window open.
	EntryStatusPaid EntryStatus = "paid"
	// EntryStatusCompleted: outcome self-reported inside the window.
	EntryStatusCompleted EntryStatus = "completed"
	// EntryStatusExpired: window lapsed unresolved, auto-miss applied.
	EntryStatusExpired EntryStatus = "expired"
)

// Outcome is the self-reported (or sweep-assigned) result of an attempt.
type Outcome string

const (
	OutcomeWin      Outcome = "win"
	OutcomeMiss     Outcome = "miss"
	OutcomeAutoMiss Outcome = "auto_miss"
)

// ParseOutcome rejects unknown outcome strings at the boundary. auto_miss is
// system-assigned only, so it is not accepted here.
func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeMiss:
		return Outcome(s), true
	}
	return "", false
}

// EntryPath identifies which intake flow produced the entry; it selects the
// attempt window duration.
type EntryPath string

const (
	EntryPathInstant   EntryPath = "instant"
	EntryPathDeferred  EntryPath = "deferred"
	EntryPathStaffCode EntryPath = "staff_code"
)

// Entry represents one play attempt by one player in one competition.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	CompetitionID uuid.UUID `bun:"competition_id,notnull,type:uuid" json:"competition_id"`
	PlayerID      uuid.UUID `bun:"player_id,notnull,type:uuid" json:"player_id"`

	Paid        bool        `bun:"paid,notnull,default:false" json:"paid"`
	AmountMinor int64       `bun:"amount_minor,notnull,default:0" json:"amount_minor"`
	Status      EntryStatus `bun:"status,notnull,type:varchar(16)" json:"status"`
	Path        EntryPath   `bun:"path,notnull,type:varchar(16)" json:"path"`

	AttemptWindowStart *time.Time `bun:"attempt_window_start,nullzero" json:"attempt_window_start,omitempty"`
	AttemptWindowEnd   *time.Time `bun:"attempt_window_end,nullzero" json:"attempt_window_end,omitempty"`

	// OutcomeSelf is nil until the player reports or the sweep applies an
	// auto-miss. Once set it is terminal.
	OutcomeSelf       *Outcome   `bun:"outcome_self,nullzero,type:varchar(16)" json:"outcome_self,omitempty"`
	OutcomeReportedAt *time.Time `bun:"outcome_reported_at,nullzero" json:"outcome_reported_at,omitempty"`
	CompletedAt       *time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`

	TermsAcceptedAt *time.Time `bun:"terms_accepted_at,nullzero" json:"terms_accepted_at,omitempty"`
	TermsVersion    string     `bun:"terms_version,nullzero" json:"terms_version,omitempty"`

	PaymentProvider string     `bun:"payment_provider,nullzero" json:"payment_provider,omitempty"`
	PaymentDate     *time.Time `bun:"payment_date,nullzero" json:"payment_date,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// WindowOpen reports whether the attempt window contains now.
func (e *Entry) WindowOpen(now time.Time) bool {
	if e.AttemptWindowStart == nil || e.AttemptWindowEnd == nil {
		return false
	}
	return !now.Before(*e.AttemptWindowStart) && !now.After(*e.AttemptWindowEnd)
}

// Resolved reports whether a terminal outcome has been recorded.
func (e *Entry) Resolved() bool {
	return e.OutcomeSelf != nil
}

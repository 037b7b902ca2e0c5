package entrydb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateEntryOutcome is the result of a guarded entry insert. When the
// cooldown re-check inside the transaction finds a recent paid entry, Entry is
// nil and RetryAt carries the earliest time a new attempt is allowed.
type CreateEntryOutcome struct {
	Entry   *Entry
	RetryAt *time.Time
}

// EntryDB is the persistence contract for the entry state machine. Every
// mutating operation is a conditional write so concurrent actors (player,
// sweep) race safely at the storage layer.
type EntryDB interface {
	// CreateEntry inserts the entry inside a transaction that re-checks the
	// cooldown under an advisory lock keyed on (player, competition).
	CreateEntry(ctx context.Context, entry *Entry, cooldown time.Duration, now time.Time) (*CreateEntryOutcome, error)

	GetEntry(ctx context.Context, entryID uuid.UUID) (*Entry, error)

	// LatestPaidEntrySince returns the most recent paid entry for the pair
	// created at or after since, or nil when none exists.
	LatestPaidEntrySince(ctx context.Context, playerID, competitionID uuid.UUID, since time.Time) (*Entry, error)

	// ReportOutcome applies the player's self-report with a conditional write
	// guarded on outcome_self IS NULL and an open window. Returns the number
	// of rows affected: zero means the caller lost the race or the window
	// closed, and must re-read to find out which.
	ReportOutcome(ctx context.Context, entryID uuid.UUID, outcome Outcome, now time.Time) (int64, error)

	// SweepOverdue auto-misses every entry whose window lapsed without a
	// report and returns the affected entry IDs. Idempotent: already-resolved
	// entries are never touched.
	SweepOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

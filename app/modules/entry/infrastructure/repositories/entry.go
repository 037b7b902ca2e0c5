package entrydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrEntryNotFound indicates the entry does not exist.
var ErrEntryNotFound = errors.New("entry not found")

// EntryDBImpl is the concrete implementation of EntryDB using bun.
type EntryDBImpl struct {
	DB *bun.DB
}

var _ EntryDB = (*EntryDBImpl)(nil)

// CreateEntry inserts a new entry. The cooldown is re-checked inside the same
// transaction under a pg advisory lock so two concurrent requests for the same
// (player, competition) cannot both pass the pre-check.
func (db *EntryDBImpl) CreateEntry(ctx context.Context, entry *Entry, cooldown time.Duration, now time.Time) (*CreateEntryOutcome, error) {
	outcome := &CreateEntryOutcome{}

	err := db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		lockKey := entry.PlayerID.String() + ":" + entry.CompetitionID.String()
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", lockKey); err != nil {
			return fmt.Errorf("failed to take entry lock: %w", err)
		}

		last := new(Entry)
		err := tx.NewSelect().
			Model(last).
			Where("player_id = ?", entry.PlayerID).
			Where("competition_id = ?", entry.CompetitionID).
			Where("paid = TRUE").
			Where("created_at >= ?", now.Add(-cooldown)).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			retryAt := last.CreatedAt.Add(cooldown)
			if retryAt.After(now) {
				outcome.RetryAt = &retryAt
				return nil
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check cooldown: %w", err)
		}

		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		outcome.Entry = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return outcome, nil
}

// GetEntry retrieves an entry by ID.
func (db *EntryDBImpl) GetEntry(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	entry := new(Entry)
	err := db.DB.NewSelect().
		Model(entry).
		Where("id = ?", entryID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch entry: %w", err)
	}
	return entry, nil
}

// LatestPaidEntrySince returns the newest paid entry for the pair created at
// or after since, or nil when there is none.
func (db *EntryDBImpl) LatestPaidEntrySince(ctx context.Context, playerID, competitionID uuid.UUID, since time.Time) (*Entry, error) {
	entry := new(Entry)
	err := db.DB.NewSelect().
		Model(entry).
		Where("player_id = ?", playerID).
		Where("competition_id = ?", competitionID).
		Where("paid = TRUE").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch latest paid entry: %w", err)
	}
	return entry, nil
}

// ReportOutcome applies a self-report. The WHERE clause is the whole guard:
// outcome not yet set, window still open, entry in a playable state. Zero rows
// affected means the caller lost to the sweep or another tab.
func (db *EntryDBImpl) ReportOutcome(ctx context.Context, entryID uuid.UUID, outcome Outcome, now time.Time) (int64, error) {
	res, err := db.DB.NewUpdate().
		Model((*Entry)(nil)).
		Set("outcome_self = ?", outcome).
		Set("outcome_reported_at = ?", now).
		Set("status = ?", EntryStatusCompleted).
		Set("completed_at = ?", now).
		Where("id = ?", entryID).
		Where("outcome_self IS NULL").
		Where("attempt_window_end IS NOT NULL").
		Where("attempt_window_end >= ?", now).
		Where("status IN (?)", bun.In([]EntryStatus{EntryStatusActive, EntryStatusPaid})).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to report outcome: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

// SweepOverdue transitions every unresolved entry whose window has lapsed to
// auto_miss/expired. The outcome_self IS NULL guard makes the sweep idempotent
// and mutually exclusive with a concurrent player report.
func (db *EntryDBImpl) SweepOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.DB.NewUpdate().
		Model((*Entry)(nil)).
		Set("outcome_self = ?", OutcomeAutoMiss).
		Set("outcome_reported_at = ?", now).
		Set("status = ?", EntryStatusExpired).
		Where("outcome_self IS NULL").
		Where("attempt_window_end IS NOT NULL").
		Where("attempt_window_end < ?", now).
		Where("status IN (?)", bun.In([]EntryStatus{EntryStatusActive, EntryStatusPaid})).
		Returning("id").
		Scan(ctx, &ids)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to sweep overdue entries: %w", err)
	}
	return ids, nil
}

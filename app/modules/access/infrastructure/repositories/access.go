package accessdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
)

// ErrTokenNotFound indicates the access token does not exist.
var ErrTokenNotFound = errors.New("entry access token not found")

// AccessDBImpl is the concrete implementation of AccessDB using bun.
type AccessDBImpl struct {
	DB *bun.DB
}

var _ AccessDB = (*AccessDBImpl)(nil)

// InsertToken persists a freshly issued magic-link token.
func (db *AccessDBImpl) InsertToken(ctx context.Context, token *EntryAccessToken) error {
	if _, err := db.DB.NewInsert().Model(token).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert access token: %w", err)
	}
	return nil
}

// GetToken retrieves a token row by its opaque value.
func (db *AccessDBImpl) GetToken(ctx context.Context, token string) (*EntryAccessToken, error) {
	row := new(EntryAccessToken)
	err := db.DB.NewSelect().
		Model(row).
		Where("token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to fetch access token: %w", err)
	}
	return row, nil
}

// ConsumeToken burns the token and creates the downstream player and entry in
// one transaction. The used=false guard on the update is what makes
// double-click/two-tab consumption yield exactly one success.
func (db *AccessDBImpl) ConsumeToken(ctx context.Context, token string, now time.Time, buildEntry func(player *Player) *entrydb.Entry) (*ConsumeOutcome, error) {
	outcome := &ConsumeOutcome{}

	err := db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := new(EntryAccessToken)
		err := tx.NewUpdate().
			Model(row).
			Set("used = TRUE").
			Set("used_at = ?", now).
			Where("token = ?", token).
			Where("used = FALSE").
			Where("expires_at >= ?", now).
			Returning("*").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome.Reason = ConsumeNotFound
				return nil
			}
			return fmt.Errorf("failed to consume access token: %w", err)
		}
		outcome.Token = row

		player := &Player{
			ID:        uuid.New(),
			Email:     row.Email,
			FirstName: row.Payload.FirstName,
			LastName:  row.Payload.LastName,
			Phone:     row.Payload.Phone,
			Age:       row.Payload.Age,
			Handicap:  row.Payload.Handicap,
		}
		if _, err := tx.NewInsert().
			Model(player).
			On("CONFLICT (email) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}
		// Re-read either way: on conflict the insert left the existing row alone.
		if err := tx.NewSelect().Model(player).Where("email = ?", row.Email).Scan(ctx); err != nil {
			return fmt.Errorf("failed to load player: %w", err)
		}
		outcome.Player = player

		entry := buildEntry(player)
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create entry from token: %w", err)
		}
		outcome.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A zero-row consume needs classification so the caller can surface the
	// right UX: stale link vs. double click.
	if outcome.Reason == ConsumeNotFound {
		existing, err := db.GetToken(ctx, token)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return outcome, nil
			}
			return nil, err
		}
		if existing.Used {
			outcome.Reason = ConsumeAlreadyUsed
		} else {
			outcome.Reason = ConsumeExpired
		}
		outcome.Token = existing
	}
	return outcome, nil
}

// RedeemStaffCode performs the race-safe increment. Every guard lives in the
// WHERE clause; a zero-row update is classified with a follow-up read.
func (db *AccessDBImpl) RedeemStaffCode(ctx context.Context, prefix, suffix string, now time.Time) (*StaffCode, RedeemOutcome, error) {
	code := new(StaffCode)
	err := db.DB.NewUpdate().
		Model(code).
		Set("current_uses = current_uses + 1").
		Where("code_prefix = ?", prefix).
		Where("code_suffix = ?", suffix).
		Where("active = TRUE").
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("(valid_until IS NULL OR valid_until >= ?)", now).
		Where("(max_uses IS NULL OR current_uses < max_uses)").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return code, RedeemOK, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to redeem staff code: %w", err)
	}

	existing := new(StaffCode)
	err = db.DB.NewSelect().
		Model(existing).
		Where("code_prefix = ?", prefix).
		Where("code_suffix = ?", suffix).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, RedeemNotFound, nil
		}
		return nil, "", fmt.Errorf("failed to classify staff code: %w", err)
	}
	switch {
	case !existing.Active:
		return existing, RedeemInactive, nil
	case existing.ValidFrom != nil && now.Before(*existing.ValidFrom):
		return existing, RedeemNotYetValid, nil
	case existing.ValidUntil != nil && now.After(*existing.ValidUntil):
		return existing, RedeemExpired, nil
	default:
		return existing, RedeemExhausted, nil
	}
}

// RecordStaffCodeAttempt appends one audit row. Insert-only by contract.
func (db *AccessDBImpl) RecordStaffCodeAttempt(ctx context.Context, attempt *StaffCodeAttempt) error {
	if _, err := db.DB.NewInsert().Model(attempt).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record staff code attempt: %w", err)
	}
	return nil
}

package verificationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IssueWitnessToken appends a new confirmation token. Prior unconfirmed tokens
// for the same verification are marked superseded so the UI only surfaces the
// latest; they stay in the table as history.
func (db *VerificationDBImpl) IssueWitnessToken(ctx context.Context, confirmation *WitnessConfirmation) error {
	return db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*WitnessConfirmation)(nil)).
			Set("superseded = TRUE").
			Where("verification_id = ?", confirmation.VerificationID).
			Where("confirmed_at IS NULL").
			Where("superseded = FALSE").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to supersede prior witness tokens: %w", err)
		}

		if _, err := tx.NewInsert().Model(confirmation).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert witness confirmation: %w", err)
		}
		return nil
	})
}

// ConfirmWitness flips confirmed_at exactly once. The conditional write is the
// whole race guard; classification of a zero-row update happens on a re-read.
func (db *VerificationDBImpl) ConfirmWitness(ctx context.Context, token string, now time.Time) (*WitnessConfirmation, WitnessConfirmOutcome, error) {
	confirmation := new(WitnessConfirmation)
	err := db.DB.NewUpdate().
		Model(confirmation).
		Set("confirmed_at = ?", now).
		Where("token = ?", token).
		Where("confirmed_at IS NULL").
		Where("expires_at >= ?", now).
		Returning("*").
		Scan(ctx)
	if err == nil {
		return confirmation, WitnessConfirmOK, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to confirm witness token: %w", err)
	}

	existing := new(WitnessConfirmation)
	err = db.DB.NewSelect().
		Model(existing).
		Where("token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, WitnessConfirmNotFound, nil
		}
		return nil, "", fmt.Errorf("failed to classify witness token: %w", err)
	}
	if existing.ConfirmedAt != nil {
		return existing, WitnessConfirmAlreadyConfirmed, nil
	}
	return existing, WitnessConfirmExpired, nil
}

// LatestWitnessToken returns the newest token for a verification, nil if none.
func (db *VerificationDBImpl) LatestWitnessToken(ctx context.Context, verificationID uuid.UUID) (*WitnessConfirmation, error) {
	confirmation := new(WitnessConfirmation)
	err := db.DB.NewSelect().
		Model(confirmation).
		Where("verification_id = ?", verificationID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch latest witness token: %w", err)
	}
	return confirmation, nil
}

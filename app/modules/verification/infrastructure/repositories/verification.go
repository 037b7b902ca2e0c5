package verificationdb

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

// ErrVerificationNotFound indicates the verification does not exist.
var ErrVerificationNotFound = errors.New("verification not found")

// VerificationDBImpl is the concrete implementation of VerificationDB using bun.
type VerificationDBImpl struct {
	DB *bun.DB
}

var _ VerificationDB = (*VerificationDBImpl)(nil)

// EnsureVerification is the idempotent create. The entry_id unique constraint
// is the real guard: concurrent callers produce exactly one row.
func (db *VerificationDBImpl) EnsureVerification(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*Verification, bool, error) {
	verification := &Verification{
		ID:         uuid.New(),
		EntryID:    entryID,
		Status:     VerificationStatusPending,
		AutoMissAt: autoMissAt,
	}

	res, err := db.DB.NewInsert().
		Model(verification).
		On("CONFLICT (entry_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure verification: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows > 0 {
		return verification, true, nil
	}

	existing, err := db.GetVerificationByEntry(ctx, entryID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetVerification retrieves a verification by ID.
func (db *VerificationDBImpl) GetVerification(ctx context.Context, verificationID uuid.UUID) (*Verification, error) {
	verification := new(Verification)
	err := db.DB.NewSelect().
		Model(verification).
		Where("id = ?", verificationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch verification: %w", err)
	}
	return verification, nil
}

// GetVerificationByEntry retrieves the verification tied to an entry.
func (db *VerificationDBImpl) GetVerificationByEntry(ctx context.Context, entryID uuid.UUID) (*Verification, error) {
	verification := new(Verification)
	err := db.DB.NewSelect().
		Model(verification).
		Where("entry_id = ?", entryID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch verification by entry: %w", err)
	}
	return verification, nil
}

// AttachEvidence stores the evidence bundle. Evidence never changes status;
// the guard only keeps it off resolved claims.
func (db *VerificationDBImpl) AttachEvidence(ctx context.Context, verificationID uuid.UUID, evidence Evidence, now time.Time) (int64, error) {
	res, err := db.DB.NewUpdate().
		Model((*Verification)(nil)).
		Set("selfie_url = ?", evidence.SelfieURL).
		Set("id_document_url = ?", evidence.IDDocumentURL).
		Set("handicap_proof_url = ?", evidence.HandicapProofURL).
		Set("video_url = ?", evidence.VideoURL).
		Set("witnesses = ?", evidence.Witnesses).
		Set("evidence_captured_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", verificationID).
		Where("status IN (?)", bun.In(nonTerminalStatuses)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to attach evidence: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

// ClaimForReview moves a claim into under_review. Last staff write wins but
// terminal states stay put.
func (db *VerificationDBImpl) ClaimForReview(ctx context.Context, verificationID uuid.UUID, now time.Time) (int64, error) {
	res, err := db.DB.NewUpdate().
		Model((*Verification)(nil)).
		Set("status = ?", VerificationStatusUnderReview).
		Set("updated_at = ?", now).
		Where("id = ?", verificationID).
		Where("status IN (?)", bun.In(nonTerminalStatuses)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to claim verification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

// Decide writes the terminal staff decision. Zero rows affected means another
// decision (or the sweep) got there first; callers must fail closed.
func (db *VerificationDBImpl) Decide(ctx context.Context, verificationID uuid.UUID, status VerificationStatus, staffID uuid.UUID, now time.Time) (int64, error) {
	if !status.Terminal() {
		return 0, fmt.Errorf("decision status must be terminal, got %q", status)
	}
	res, err := db.DB.NewUpdate().
		Model((*Verification)(nil)).
		Set("status = ?", status).
		Set("verified_at = ?", now).
		Set("verified_by = ?", staffID).
		Set("updated_at = ?", now).
		Where("id = ?", verificationID).
		Where("status IN (?)", bun.In(nonTerminalStatuses)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to decide verification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

// SweepExpired force-resolves overdue claims. Per candidate, one transaction
// flips auto_miss_applied (conditional on false) and drives the entry from win
// to auto_miss. A candidate whose guard no longer holds is skipped silently:
// someone else resolved it between the select and the update.
func (db *VerificationDBImpl) SweepExpired(ctx context.Context, now time.Time) ([]SweptVerification, error) {
	var candidates []Verification
	err := db.DB.NewSelect().
		Model(&candidates).
		Column("id", "entry_id").
		Where("auto_miss_applied = FALSE").
		Where("status IN (?)", bun.In(nonTerminalStatuses)).
		Where("auto_miss_at < ?", now).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired verifications: %w", err)
	}

	var swept []SweptVerification
	for _, candidate := range candidates {
		applied := false
		err := db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			res, err := tx.NewUpdate().
				Model((*Verification)(nil)).
				Set("auto_miss_applied = TRUE").
				Set("status = ?", VerificationStatusRejected).
				Set("updated_at = ?", now).
				Where("id = ?", candidate.ID).
				Where("auto_miss_applied = FALSE").
				Where("status IN (?)", bun.In(nonTerminalStatuses)).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to apply verification auto-miss: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if rows == 0 {
				return nil
			}

			// Coupled entry transition: the claimed win becomes an auto-miss.
			if _, err := tx.NewUpdate().
				Model((*entrydb.Entry)(nil)).
				Set("outcome_self = ?", entrydb.OutcomeAutoMiss).
				Set("status = ?", entrydb.EntryStatusExpired).
				Where("id = ?", candidate.EntryID).
				Where("outcome_self = ?", entrydb.OutcomeWin).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to auto-miss entry %s: %w", candidate.EntryID, err)
			}

			applied = true
			return nil
		})
		if err != nil {
			return swept, err
		}
		if applied {
			swept = append(swept, SweptVerification{VerificationID: candidate.ID, EntryID: candidate.EntryID})
		}
	}
	return swept, nil
}

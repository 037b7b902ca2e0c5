package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating verifications table...")
			if _, err := db.NewCreateTable().Model((*verificationdb.Verification)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create verifications table: %w", err)
			}
			// The unique index on entry_id is what makes EnsureVerification
			// race-safe; do not drop it.
			if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_verifications_entry_id ON verifications (entry_id)`); err != nil {
				return fmt.Errorf("failed to create entry_id unique index: %w", err)
			}
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_verifications_overdue ON verifications (auto_miss_at) WHERE NOT auto_miss_applied`); err != nil {
				return fmt.Errorf("failed to create sweep index: %w", err)
			}

			fmt.Println("Creating witness_confirmations table...")
			if _, err := db.NewCreateTable().Model((*verificationdb.WitnessConfirmation)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create witness_confirmations table: %w", err)
			}
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_witness_confirmations_verification ON witness_confirmations (verification_id, created_at DESC)`); err != nil {
				return fmt.Errorf("failed to create witness confirmation index: %w", err)
			}
			fmt.Println("verification tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping verification tables...")
			if _, err := db.NewDropTable().Model((*verificationdb.WitnessConfirmation)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop witness_confirmations table: %w", err)
			}
			if _, err := db.NewDropTable().Model((*verificationdb.Verification)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop verifications table: %w", err)
			}
			fmt.Println("verification tables dropped successfully!")
			return nil
		},
	)
}

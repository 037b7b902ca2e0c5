package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating entries table...")
			if _, err := db.NewCreateTable().Model((*entrydb.Entry)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create entries table: %w", err)
			}
			// Cooldown lookups and the sweep both need these.
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_entries_player_competition_created ON entries (player_id, competition_id, created_at DESC) WHERE paid`); err != nil {
				return fmt.Errorf("failed to create cooldown index: %w", err)
			}
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_entries_unresolved_window ON entries (attempt_window_end) WHERE outcome_self IS NULL`); err != nil {
				return fmt.Errorf("failed to create sweep index: %w", err)
			}
			fmt.Println("entries table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping entries table...")
			if _, err := db.NewDropTable().Model((*entrydb.Entry)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop entries table: %w", err)
			}
			fmt.Println("entries table dropped successfully!")
			return nil
		},
	)
}

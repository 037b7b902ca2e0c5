package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating competitions table...")
			if _, err := db.NewCreateTable().Model((*competitiondb.Competition)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create competitions table: %w", err)
			}
			fmt.Println("competitions table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping competitions table...")
			if _, err := db.NewDropTable().Model((*competitiondb.Competition)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop competitions table: %w", err)
			}
			fmt.Println("competitions table dropped successfully!")
			return nil
		},
	)
}

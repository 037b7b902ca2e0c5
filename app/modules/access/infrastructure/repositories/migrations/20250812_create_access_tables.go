package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating access tables...")
			for _, model := range []any{
				(*accessdb.Player)(nil),
				(*accessdb.EntryAccessToken)(nil),
				(*accessdb.StaffCode)(nil),
				(*accessdb.StaffCodeAttempt)(nil),
			} {
				if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("failed to create access table: %w", err)
				}
			}
			if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_codes_prefix_suffix ON staff_codes (code_prefix, code_suffix)`); err != nil {
				return fmt.Errorf("failed to create staff code index: %w", err)
			}
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_staff_code_attempts_prefix ON staff_code_attempts (code_prefix, attempted_at DESC)`); err != nil {
				return fmt.Errorf("failed to create staff code attempt index: %w", err)
			}
			fmt.Println("access tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping access tables...")
			for _, model := range []any{
				(*accessdb.StaffCodeAttempt)(nil),
				(*accessdb.StaffCode)(nil),
				(*accessdb.EntryAccessToken)(nil),
				(*accessdb.Player)(nil),
			} {
				if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
					return fmt.Errorf("failed to drop access table: %w", err)
				}
			}
			fmt.Println("access tables dropped successfully!")
			return nil
		},
	)
}

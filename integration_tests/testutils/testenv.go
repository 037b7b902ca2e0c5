package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	_ "github.com/jackc/pgx/v5/stdlib"

	accessmigrations "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories/migrations"
	competitionmigrations "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories/migrations"
	entrymigrations "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories/migrations"
	verificationmigrations "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories/migrations"
	"github.com/aceclub-io/ace-engine/db/bundb"
	"github.com/aceclub-io/ace-engine/integration_tests/containers"
)

// TestEnvironment holds the shared resources for repository integration tests.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	DB            *bun.DB
	DBService     *bundb.DBService
	T             *testing.T
}

// NewTestEnvironment starts a Postgres container, connects through bun and
// applies every module's migrations.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	sqlDB, err := sql.Open("pgx", pgConnStr)
	if err != nil {
		pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to open sql DB connection: %w", err)
	}

	db := bun.NewDB(sqlDB, pgdialect.New())

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		DB:            db,
		DBService:     bundb.NewTestDBService(db),
		T:             t,
	}, nil
}

// runMigrations applies each module group in dependency order, the same order
// the migration CLI uses.
func runMigrations(ctx context.Context, db *bun.DB) error {
	groups := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"competition", competitionmigrations.Migrations},
		{"entry", entrymigrations.Migrations},
		{"verification", verificationmigrations.Migrations},
		{"access", accessmigrations.Migrations},
	}
	for _, group := range groups {
		migrator := migrate.NewMigrator(db, group.migrations)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s migrations: %w", group.name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s: %w", group.name, err)
		}
	}
	return nil
}

// Reset empties every engine table so each test starts from a clean database.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	tables := []string{
		"staff_code_attempts",
		"staff_codes",
		"entry_access_tokens",
		"players",
		"witness_confirmations",
		"verifications",
		"entries",
		"competitions",
	}
	for _, table := range tables {
		if _, err := env.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// Cleanup tears down the container and connections.
func (env *TestEnvironment) Cleanup() {
	if env.CancelContext != nil {
		env.CancelContext()
	}
	if env.DB != nil {
		env.DB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Error terminating Postgres container: %v", err)
		}
	}
}

package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/config"
)

// DBService aggregates the per-module repositories over one bun connection.
type DBService struct {
	CompetitionDB  *competitiondb.CompetitionDBImpl
	EntryDB        *entrydb.EntryDBImpl
	VerificationDB *verificationdb.VerificationDBImpl
	AccessDB       *accessdb.AccessDBImpl
	db             *bun.DB
}

// GetDB returns the underlying database connection pool.
func (s *DBService) GetDB() *bun.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *DBService) Close() error {
	return s.db.Close()
}

// NewBunDBService initializes a new DBService with the provided Postgres
// configuration.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig) (*DBService, error) {
	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	registerModels(db)

	return newDBService(db), nil
}

// NewTestDBService wraps an already-open bun connection, typically one backed
// by a testcontainer.
func NewTestDBService(db *bun.DB) *DBService {
	registerModels(db)
	return newDBService(db)
}

func newDBService(db *bun.DB) *DBService {
	return &DBService{
		CompetitionDB:  &competitiondb.CompetitionDBImpl{DB: db},
		EntryDB:        &entrydb.EntryDBImpl{DB: db},
		VerificationDB: &verificationdb.VerificationDBImpl{DB: db},
		AccessDB:       &accessdb.AccessDBImpl{DB: db},
		db:             db,
	}
}

func registerModels(db *bun.DB) {
	db.RegisterModel((*competitiondb.Competition)(nil))
	db.RegisterModel((*entrydb.Entry)(nil))
	db.RegisterModel((*verificationdb.Verification)(nil))
	db.RegisterModel((*verificationdb.WitnessConfirmation)(nil))
	db.RegisterModel((*accessdb.Player)(nil))
	db.RegisterModel((*accessdb.EntryAccessToken)(nil))
	db.RegisterModel((*accessdb.StaffCode)(nil))
	db.RegisterModel((*accessdb.StaffCodeAttempt)(nil))
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqldb, nil
}

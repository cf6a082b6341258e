package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/dbx"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// advisoryLockKey serializes block production across node replicas sharing
// one database.
const advisoryLockKey = 0x6d696e74

// PostgresStore keeps state in PostgreSQL through the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenPostgres connects to dsn and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

func (s *PostgresStore) View(ctx context.Context, fn func(ctx context.Context, st State) error) error {
	return fn(ctx, &pgState{db: s.db})
}

func (s *PostgresStore) Update(ctx context.Context, fn func(ctx context.Context, st State) error) error {
	return dbx.WithLockedTx(ctx, s.db, advisoryLockKey, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &pgState{db: tx})
	})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// pgState implements State over any DBTX, so the same queries serve reads
// on the pool and writes inside a transaction.
type pgState struct {
	db dbx.DBTX
}

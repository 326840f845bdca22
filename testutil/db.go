// Package testutil provides shared helpers for integration tests.
// Helpers skip the calling test when TEST_DATABASE_URL or TEST_REDIS_ADDR is
// unset, so unit tests run without any backing service.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/cepcode/backend/migrations"
)

const dsnEnv = "TEST_DATABASE_URL"

// NewPool returns a pool on the test database, closed when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewTx begins a transaction on the test database and rolls it back when the
// test ends. Rows a test writes, including cache rows and issued codes, never
// leak into other tests.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()

	tx, err := NewPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// NewSQLDB returns a database/sql handle on the test database for goose.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := openSQLDB(requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewProvider returns a goose provider over the embedded migrations, the same
// set the API applies at startup.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
}

// MigrateForMain brings the test database up to the latest schema. It is for
// TestMain, where no *testing.T exists, and is a no-op without
// TEST_DATABASE_URL so each test can skip itself instead.
func MigrateForMain(ctx context.Context) error {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		return nil
	}
	db, err := openSQLDB(dsn)
	if err != nil {
		return fmt.Errorf("testutil.MigrateForMain: %w", err)
	}
	defer db.Close()

	provider, err := NewProvider(db)
	if err != nil {
		return fmt.Errorf("testutil.MigrateForMain: provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("testutil.MigrateForMain: up: %w", err)
	}
	return nil
}

func openSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skip(dsnEnv + " not set; skipping integration test")
	}
	return dsn
}

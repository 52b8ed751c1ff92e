package testutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/taskpulse/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

var (
	// migrationsRunOnce ensures migrations are only run once across all tests
	migrationsRunOnce sync.Once
	migrationsErr     error
)

// SetupTestDatabaseSchema initializes the database schema using the embedded migrations.
// It resets the schema to baseline (by running migrations down to version 0),
// then applies all migrations. This ensures tests run against the canonical schema.
//
// This function should typically be called once in TestMain.
// It uses sync.Once to ensure migrations are only run once even if called multiple times.
func SetupTestDatabaseSchema(db *sql.DB) error {
	migrationsRunOnce.Do(func() {
		goose.SetBaseFS(postgres.Migrations)
		goose.SetTableName(postgres.MigrationTableName)
		goose.SetLogger(&testGooseLogger{})

		if err := goose.SetDialect("postgres"); err != nil {
			migrationsErr = fmt.Errorf("failed to set goose dialect: %w", err)
			return
		}

		if err := goose.DownTo(db, postgres.MigrationsDir, 0); err != nil {
			migrationsErr = fmt.Errorf("failed to reset database schema: %w", err)
			return
		}

		if err := goose.Up(db, postgres.MigrationsDir); err != nil {
			migrationsErr = fmt.Errorf("failed to apply migrations: %w", err)
		}
	})
	return migrationsErr
}

// testGooseLogger discards goose output during tests.
type testGooseLogger struct{}

func (*testGooseLogger) Fatalf(format string, v ...interface{}) {
	panic(fmt.Sprintf(format, v...))
}

func (*testGooseLogger) Printf(format string, v ...interface{}) {}

// OpenTestDB opens a pgx-backed *sql.DB for DATABASE_URL and pings it.
func OpenTestDB() (*sql.DB, error) {
	db, err := sql.Open("pgx", MustGetTestDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// GetTestDBWithT returns a migrated database connection that is closed when the test ends.
// The test is skipped when DATABASE_URL is not set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()
	if !IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test - requires DATABASE_URL environment variable")
	}

	db, err := OpenTestDB()
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { AssertCloseNoError(t, db) })

	if err := SetupTestDatabaseSchema(db); err != nil {
		t.Fatalf("Failed to set up test database schema: %v", err)
	}
	return db
}

// WithTx runs a test function with transaction-based isolation.
// It creates a new transaction, runs the test function with that transaction,
// and then rolls back the transaction to ensure test isolation.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer AssertRollbackNoError(t, tx)

	fn(t, tx)
}

// AssertRollbackNoError rolls back tx, ignoring sql.ErrTxDone.
func AssertRollbackNoError(t *testing.T, tx *sql.Tx) {
	t.Helper()
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.Errorf("Failed to rollback transaction: %v", err)
	}
}

// AssertCloseNoError closes closer and reports any error.
func AssertCloseNoError(t *testing.T, closer io.Closer) {
	t.Helper()
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Failed to close resource: %v", err)
	}
}

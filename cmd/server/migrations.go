package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress messages at INFO level.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at ERROR level. It does not exit: the error is returned to
// main, which owns the process exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// migrationCommands lists the goose commands exposed by -migrate.
var migrationCommands = map[string]func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error{
	"up":      goose.UpContext,
	"down":    goose.DownContext,
	"status":  goose.StatusContext,
	"version": goose.VersionContext,
	"reset":   goose.ResetContext,
}

// configureGoose points goose at the embedded migrations.
func configureGoose(log *slog.Logger) error {
	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(postgres.MigrationTableName)
	goose.SetLogger(&slogGooseLogger{logger: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// runMigrations executes a single goose command against db.
func runMigrations(ctx context.Context, db *sql.DB, command string, log *slog.Logger) error {
	fn, ok := migrationCommands[command]
	if !ok {
		return fmt.Errorf("unknown migration command %q (want up, down, status, version or reset)", command)
	}

	migrationLogger := log.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.String("component", "migrations"),
		slog.String("command", command),
	)
	if err := configureGoose(migrationLogger); err != nil {
		return err
	}

	start := time.Now()
	migrationLogger.Info("starting migration operation")
	if err := fn(ctx, db, postgres.MigrationsDir); err != nil {
		migrationLogger.Error("migration failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	migrationLogger.Info("migration operation completed",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// verifyAppliedMigrations fails unless the database is at the latest
// embedded migration version.
func verifyAppliedMigrations(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	log = log.With(slog.String("component", "migrations"))
	if err := configureGoose(log); err != nil {
		return err
	}

	latest, err := latestMigrationVersion()
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read database version: %w", err)
	}

	if current < latest {
		return fmt.Errorf("database is at migration %d but the latest migration is %d", current, latest)
	}

	log.Info("migrations verified", slog.Int64("version", current))
	return nil
}

// latestMigrationVersion returns the highest embedded migration version.
// It expects configureGoose to have run.
func latestMigrationVersion() (int64, error) {
	migrations, err := goose.CollectMigrations(postgres.MigrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to collect migrations: %w", err)
	}
	last, err := migrations.Last()
	if err != nil {
		return 0, fmt.Errorf("no migrations embedded: %w", err)
	}
	return last.Version, nil
}

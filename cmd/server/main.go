// Package main implements the entry point for the taskpulse server, which
// serves the task API and the authenticated realtime WebSocket channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskpulse/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a database migration command and exit: up|down|status|version|reset")
	verify := flag.Bool("verify-migrations", false,
		"check that every embedded migration has been applied and exit")
	flag.Parse()

	if err := run(*migrateCmd, *verify); err != nil {
		slog.Error("taskpulse exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and either executes a
// migration command or serves until SIGINT/SIGTERM.
func run(migrateCmd string, verify bool) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	switch {
	case migrateCmd != "":
		return runMigrations(ctx, db, migrateCmd, log)
	case verify:
		return verifyAppliedMigrations(ctx, db, log)
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/platform/postgres"
	"github.com/phrazzld/taskpulse/internal/realtime"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/phrazzld/taskpulse/internal/store"
)

// application holds the shared dependencies and owns their lifecycle.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Stores
	userStore       store.UserStore
	taskStore       store.TaskStore
	revocationStore store.RevocationStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	authenticator    auth.Authenticator
	taskService      service.TaskService

	// Realtime
	registry        *realtime.Registry
	broadcaster     *realtime.Broadcaster
	realtimeHandler *realtime.Handler

	janitor *revocationJanitor
}

// newApplication creates the application on top of Postgres stores.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	return newApplicationWithStores(
		cfg,
		logger,
		postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost),
		postgres.NewPostgresTaskStore(db, logger),
		postgres.NewPostgresRevocationStore(db, logger),
	)
}

// newApplicationWithStores wires services, the realtime subsystem and the
// janitor around the given stores.
func newApplicationWithStores(
	cfg *config.Config,
	logger *slog.Logger,
	users store.UserStore,
	tasks store.TaskStore,
	revocations store.RevocationStore,
) (*application, error) {
	app := &application{
		config:          cfg,
		logger:          logger,
		userStore:       users,
		taskStore:       tasks,
		revocationStore: revocations,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.authenticator, err = auth.NewAuthenticator(app.jwtService, users, revocations, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	app.taskService, err = service.NewTaskService(tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.registry = realtime.NewRegistry()
	app.broadcaster = realtime.NewBroadcaster(app.registry, realtime.BroadcasterConfig{
		QueueSize:    cfg.Realtime.QueueSize,
		WriteTimeout: cfg.Realtime.WriteTimeout,
	}, logger)
	app.realtimeHandler = realtime.NewHandler(
		app.authenticator,
		app.registry,
		app.broadcaster,
		cfg.Realtime,
		logger,
	)

	app.janitor = newRevocationJanitor(revocations, cfg.Revocation, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run listens on the configured port and serves until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serve(ctx, ln)
}

// serve starts the background workers, serves HTTP on ln and performs the
// graceful shutdown sequence once ctx ends.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	var workers sync.WaitGroup

	broadcasterCtx, stopBroadcaster := context.WithCancel(context.Background())
	defer stopBroadcaster()
	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := app.broadcaster.Run(broadcasterCtx); err != nil {
			app.logger.Error("broadcaster failed", slog.String("error", err.Error()))
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	workers.Add(1)
	go func() {
		defer workers.Done()
		app.janitor.Run(janitorCtx)
	}()

	err := app.startHTTPServer(ctx, ln, app.setupRouter())

	// Sessions announce departures while closing, so the broadcaster
	// outlives the HTTP server and stops only after the sessions are gone.
	stopBroadcaster()
	stopJanitor()
	workers.Wait()

	app.logger.Info("application shutdown completed")
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout bounds the graceful shutdown sequence.
const shutdownTimeout = 10 * time.Second

// startHTTPServer serves handler on ln until ctx is cancelled or the server
// fails, then shuts down the HTTP server and closes every realtime session
// with 1001.
func (app *application) startHTTPServer(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serveErr:
		if err != nil {
			app.logger.Error("server failed", slog.String("error", err.Error()))
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown does not track hijacked WebSocket connections; the realtime
	// handler closes those itself.
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := app.realtimeHandler.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("realtime shutdown incomplete", slog.String("error", err.Error()))
		runErr = errors.Join(runErr, fmt.Errorf("realtime shutdown failed: %w", err))
	}

	return runErr
}

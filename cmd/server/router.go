package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskpulse/internal/api"
	apiMiddleware "github.com/phrazzld/taskpulse/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.authenticator,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.authenticator, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	statusHandler := api.NewStatusHandler(app.registry)

	r.Get("/health", statusHandler.Health)

	// The WebSocket endpoint authenticates after the upgrade so failures
	// can be reported with a close code.
	r.Handle("/ws", app.realtimeHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Route("/tasks", taskHandler.Routes)
			r.Get("/realtime/stats", statusHandler.RealtimeStats)
		})
	})

	return r
}

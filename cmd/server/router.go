package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seaward/base-api/internal/api"
	apiMiddleware "github.com/seaward/base-api/internal/api/middleware"
)

// apiRouter builds the routes served by the API role.
func (app *application) apiRouter(taskHandler *api.TaskHandler, healthHandler *api.HealthHandler) http.Handler {
	r := app.baseRouter()

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks/{id}", taskHandler.GetTask)
	})

	return r
}

// monitorRouter builds the read-only routes served by the monitor role.
func (app *application) monitorRouter(monitorHandler *api.MonitorHandler, healthHandler *api.HealthHandler) http.Handler {
	r := app.baseRouter()

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks/{id}", monitorHandler.GetTask)
		r.Get("/stats", monitorHandler.GetStats)
	})

	return r
}

func (app *application) baseRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	return r
}

package api

import (
	"net/http"

	"github.com/bcnelson/console-cache/internal/api/handler"
	"github.com/bcnelson/console-cache/internal/api/middleware"
	"github.com/bcnelson/console-cache/internal/auth"
	"github.com/bcnelson/console-cache/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(console *service.Console, verifier auth.Verifier) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(verifier, console.Users))

		consoleHandler := handler.NewConsoleHandler(console)
		r.Get("/me", consoleHandler.Me)
		r.Get("/recent-projects", consoleHandler.ListRecentProjects)
		r.Post("/recent-projects", consoleHandler.RecordRecentProject)
		r.Delete("/recent-projects", consoleHandler.ClearRecentProjects)
		r.Get("/filter", consoleHandler.GetFilter)
		r.Put("/filter", consoleHandler.SetFilter)
		r.Post("/session:reset", consoleHandler.ResetSession)

		// Instances
		instanceHandler := handler.NewInstanceHandler(console)
		r.Get("/instances", instanceHandler.List)
		r.Post("/instances", instanceHandler.Create)
		r.Get("/instances/count", instanceHandler.Count)
		r.Post("/instances:batchSync", instanceHandler.BatchSync)
		r.Get("/instances/{id}", instanceHandler.Get)
		r.Patch("/instances/{id}", instanceHandler.Update)
		// Custom methods: {id}:archive, {id}:restore, {id}:sync
		r.Post("/instances/{id}", instanceHandler.Action)
		r.Post("/instances/{id}/dataSources", instanceHandler.CreateDataSource)
		r.Patch("/instances/{id}/dataSources/{ds}", instanceHandler.UpdateDataSource)
		r.Delete("/instances/{id}/dataSources/{ds}", instanceHandler.DeleteDataSource)

		// Projects and issues
		projectHandler := handler.NewProjectHandler(console)
		r.Get("/environments", projectHandler.ListEnvironments)
		r.Get("/projects", projectHandler.List)
		r.Get("/projects/{project}", projectHandler.Get)

		issueHandler := handler.NewIssueHandler(console)
		r.Get("/projects/{project}/issues/{uid}", issueHandler.Get)
		r.Post("/projects/{project}/issues:createByPlan", issueHandler.CreateByPlan)
	})

	return r
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/atelier-api/internal/api"
	apiMiddleware "github.com/phrazzld/atelier-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.provisioner,
		app.jwtService,
		app.passwordVerifier,
		app.tierLimits,
	)
	artifactHandler := api.NewArtifactHandler(app.artifactStore, app.eventEmitter, app.logger)
	quotaHandler := api.NewQuotaHandler(app.quotaStore, app.tierLimits)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/artifacts", artifactHandler.CreateArtifact)
			r.Get("/artifacts/{id}", artifactHandler.GetArtifact)
			r.Delete("/artifacts/{id}", artifactHandler.DeleteArtifact)
			r.Post("/artifacts/{id}/images", artifactHandler.GenerateImages)

			r.Get("/quota", quotaHandler.GetQuota)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}

// internal/routes/routes.go
package routes

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"conecta/internal/auth"
	"conecta/internal/config"
	"conecta/internal/handlers"
	"conecta/internal/interfaces"
	"conecta/internal/metrics"
	appmw "conecta/internal/middleware"
	"conecta/internal/services"
)

// Dependencies are the long-lived components the HTTP layer is built on.
type Dependencies struct {
	Auth     *auth.Service
	Accounts interfaces.AccountRepository
	Storage  services.ObjectStore
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func SetupRoutes(db *sql.DB, cfg *config.Config, deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(db)
	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	if cfg != nil && cfg.SwaggerEnabled {
		RegisterSwaggerRoutes(r)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		RegisterAuthRoutes(r, deps.Auth, logger)
		RegisterAccountRoutes(r, deps.Auth, deps.Storage, deps.Accounts, logger)
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg == nil || len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"conecta/internal/auth"
	"conecta/internal/handlers"
	"conecta/internal/interfaces"
	"conecta/internal/middleware"
	"conecta/internal/models"
	"conecta/internal/services"
)

// RegisterAccountRoutes mounts the role-restricted profile endpoints.
func RegisterAccountRoutes(router chi.Router, svc *auth.Service, store services.ObjectStore, accounts interfaces.AccountRepository, logger *slog.Logger) {
	uploadHandler := handlers.NewUploadHandler(store, accounts, logger)

	router.Route("/candidate", func(r chi.Router) {
		r.Use(middleware.RequireSession(svc))
		r.Use(middleware.RequireRole(models.RoleCandidate))
		r.Post("/photo", uploadHandler.UploadCandidatePhoto)
		r.Post("/resume", uploadHandler.UploadCandidateResume)
	})

	router.Route("/company", func(r chi.Router) {
		r.Use(middleware.RequireSession(svc))
		r.Use(middleware.RequireRole(models.RoleCompany))
		r.Post("/logo", uploadHandler.UploadCompanyLogo)
	})
}

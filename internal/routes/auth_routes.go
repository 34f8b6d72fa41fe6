package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"conecta/internal/auth"
	"conecta/internal/handlers"
	"conecta/internal/middleware"
)

func RegisterAuthRoutes(router chi.Router, svc *auth.Service, logger *slog.Logger) {
	authHandler := handlers.NewAuthHandler(svc, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register/candidate", authHandler.RegisterCandidate)
		r.Post("/register/company", authHandler.RegisterCompany)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(svc))
			r.Get("/profile", authHandler.Profile)
			r.Put("/password", authHandler.ChangePassword)
		})
	})
}

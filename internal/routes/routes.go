package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/openshelf/gatekeeper/internal/auth"
	"github.com/openshelf/gatekeeper/internal/handlers"
	"github.com/openshelf/gatekeeper/internal/middleware"
	"github.com/openshelf/gatekeeper/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	loginLimit := middleware.DefaultLoginRateLimit()
	authLimit := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/refresh", authHandler.RefreshToken)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		// Any authenticated user (self-or-admin enforced in the handler)
		r.Get("/users/{id}", userHandler.GetUser)

		// Admin-only lockout review surface
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, "admin"))

			r.Get("/admin/unlock-requests", adminHandler.ListUnlockRequests)
			r.Post("/admin/unlock-requests/{id}/approve", adminHandler.ApproveUnlockRequest)
			r.Post("/admin/unlock-requests/{id}/reject", adminHandler.RejectUnlockRequest)
			r.Post("/admin/users/{id}/unlock", adminHandler.DirectUnlock)
			r.Get("/admin/users/locked", adminHandler.ListLockedUsers)
		})
	})
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
}

// RegisterSessionRoutes wires endpoints that act on the authenticated session.
func RegisterSessionRoutes(r fiber.Router, h *auth.Handler) {
	r.Post("/auth/logout", h.Logout)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/identity"
	"github.com/paisabet/paisabet/internal/middleware"
	"github.com/paisabet/paisabet/internal/wallet"
)

// RegisterWalletRoutes wires balance, statement and operator adjustment endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Balance)
	r.Get("/transactions", h.Statement)
	r.Post("/admin/adjust", middleware.RequireRole(identity.RoleOperator), h.Adjust)
}

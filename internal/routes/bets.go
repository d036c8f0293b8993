package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/bets"
)

// RegisterBetRoutes wires the bet placement endpoint.
func RegisterBetRoutes(r fiber.Router, h *bets.Handler) {
	r.Post("/bets", h.Place)
}

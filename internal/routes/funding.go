package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/funding"
)

// RegisterFundingRoutes wires the authenticated deposit/withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/orders", h.CreateOrder)
	r.Post("/withdrawals", h.Withdraw)
}

// RegisterWebhookRoutes wires the provider callbacks. These authenticate via
// HMAC signature, not bearer tokens.
func RegisterWebhookRoutes(r fiber.Router, h *funding.Handler) {
	group := r.Group("/webhooks")
	group.Post("/payment", h.PaymentWebhook)
	group.Post("/payout", h.PayoutWebhook)
}

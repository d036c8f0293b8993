package bets

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/validation"
)

// Handler exposes the bet placement endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a bets handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type placeRequest struct {
	BetType string `json:"betType" validate:"required"`
	Choice  string `json:"choice" validate:"required"`
	Stake   int64  `json:"stake" validate:"required,gt=0"`
	RoundID string `json:"roundId"`
}

type placeResponse struct {
	BetID         string `json:"bet_id"`
	TransactionID int64  `json:"transaction_id"`
	Balance       int64  `json:"balance"`
}

// Place debits the stake and records the bet.
func (h *Handler) Place(c *fiber.Ctx) error {
	accountID, _ := c.Locals("user_id").(string)

	var req placeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Place(c.UserContext(), PlaceInput{
		AccountID: accountID,
		Stake:     req.Stake,
		BetType:   req.BetType,
		Choice:    req.Choice,
		RoundID:   req.RoundID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInvalidArgument):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrLockTimeout):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(placeResponse{
		BetID:         result.BetID,
		TransactionID: result.TransactionID,
		Balance:       result.Balance,
	})
}

package wallet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/validation"
)

// Handler serves wallet balance, statement and operator adjustment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	AsOf      string `json:"as_of"`
}

type transactionResponse struct {
	ID          int64             `json:"id"`
	Amount      int64             `json:"amount"`
	Kind        string            `json:"kind"`
	ExternalRef string            `json:"external_ref,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

type statementResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	NextBeforeID int64                 `json:"next_before_id,omitempty"`
}

type adjustRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	Amount    int64  `json:"amount" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type adjustResponse struct {
	TransactionID int64 `json:"transaction_id"`
	Balance       int64 `json:"balance"`
}

// Balance returns the authenticated user's current balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, _ := c.Locals("user_id").(string)

	balance, err := h.service.Balance(c.UserContext(), accountID)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		AccountID: balance.AccountID,
		Balance:   balance.Amount,
		AsOf:      balance.AsOf.Format(time.RFC3339),
	})
}

// Statement lists the authenticated user's transactions newest first.
// Query params: limit (default 20, max 100) and before_id for keyset paging.
func (h *Handler) Statement(c *fiber.Ctx) error {
	accountID, _ := c.Locals("user_id").(string)

	limit, _ := strconv.Atoi(c.Query("limit"))
	beforeID, err := strconv.ParseInt(c.Query("before_id", "0"), 10, 64)
	if err != nil || beforeID < 0 {
		return fiber.NewError(http.StatusBadRequest, "before_id must be a non-negative integer")
	}

	transactions, err := h.service.Statement(c.UserContext(), accountID, limit, beforeID)
	if err != nil {
		return mapLedgerError(err)
	}

	resp := statementResponse{Transactions: make([]transactionResponse, 0, len(transactions))}
	for _, tx := range transactions {
		resp.Transactions = append(resp.Transactions, transactionResponse{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Kind:        string(tx.Kind),
			ExternalRef: tx.ExternalRef,
			Metadata:    tx.Metadata,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		})
	}
	if n := len(transactions); n > 0 {
		resp.NextBeforeID = transactions[n-1].ID
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Adjust applies an operator correction to any account. Routing guards this
// behind the operator role.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.service.AdminAdjust(c.UserContext(), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(adjustResponse{
		TransactionID: receipt.TransactionID,
		Balance:       receipt.Balance,
	})
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidArgument):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrLockTimeout):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

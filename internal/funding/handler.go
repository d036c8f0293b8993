package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/payments"
	"github.com/paisabet/paisabet/internal/validation"
)

// PaymentStatusPaid is the order status that credits the wallet; anything
// else is acknowledged and ignored.
const PaymentStatusPaid = "PAID"

// Handler exposes deposit/withdrawal endpoints and the provider webhooks.
type Handler struct {
	service       *Service
	webhookSecret string
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service, webhookSecret string) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret}
}

// CreateOrder opens a deposit order for the authenticated user.
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	accountID, _ := c.Locals("user_id").(string)
	phone, _ := c.Locals("phone").(string)

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	order, err := h.service.CreateOrder(c.UserContext(), accountID, phone, req.Amount)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(CreateOrderResponse{
		OrderID:       order.OrderID,
		PaymentLink:   order.PaymentLink,
		Status:        order.Status,
		TransactionID: order.TransactionID,
	})
}

// Withdraw reserves funds and requests a bank payout.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	accountID, _ := c.Locals("user_id").(string)

	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.RequestWithdrawal(c.UserContext(), WithdrawInput{
		AccountID: accountID,
		Amount:    req.Amount,
		Beneficiary: payments.Beneficiary{
			Name:          req.BeneficiaryName,
			AccountNumber: req.AccountNumber,
			IFSC:          req.IFSC,
		},
	})
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(WithdrawResponse{
		TransactionID: result.TransactionID,
		Balance:       result.Balance,
		TransferID:    result.TransferID,
		PayoutStatus:  result.PayoutStatus,
	})
}

// PaymentWebhook applies the provider's payment confirmation. The provider
// retries deliveries, so duplicates are expected and answered with the
// original outcome.
func (h *Handler) PaymentWebhook(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		return err
	}

	var hook PaymentWebhook
	if err := c.BodyParser(&hook); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if hook.OrderStatus != PaymentStatusPaid {
		// Non-terminal status; acknowledge so the provider stops retrying.
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ignored"})
	}

	result, err := h.service.ConfirmDeposit(c.UserContext(), hook.OrderID, hook.CustomerID, hook.OrderAmount)
	switch {
	case errors.Is(err, ledger.ErrDuplicateEvent):
		return c.Status(http.StatusOK).JSON(FundingResponse{
			TransactionID: result.TransactionID,
			Balance:       result.Balance,
			Duplicate:     true,
			Status:        "applied",
		})
	case err != nil:
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(FundingResponse{
		TransactionID: result.TransactionID,
		Balance:       result.Balance,
		Status:        "applied",
	})
}

// PayoutWebhook applies the provider's payout status report.
func (h *Handler) PayoutWebhook(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		return err
	}

	var hook PayoutWebhook
	if err := c.BodyParser(&hook); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.ResolvePayout(c.UserContext(), hook.TransferID, hook.CustomerID, hook.Status, hook.Amount)
	switch {
	case errors.Is(err, ledger.ErrDuplicateEvent):
		return c.Status(http.StatusOK).JSON(FundingResponse{
			TransactionID: result.TransactionID,
			Balance:       result.Balance,
			Duplicate:     true,
			Status:        "applied",
		})
	case err != nil:
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(FundingResponse{
		TransactionID: result.TransactionID,
		Balance:       result.Balance,
		Status:        "applied",
	})
}

func (h *Handler) verify(c *fiber.Ctx) error {
	if h.webhookSecret == "" {
		return nil // dev mode without provider credentials
	}
	signature := c.Get("x-webhook-signature")
	if err := payments.VerifySignature(c.Body(), signature, h.webhookSecret); err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return nil
}

// mapLedgerError translates ledger sentinel errors into HTTP failures.
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

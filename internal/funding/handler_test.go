package funding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/payments"
)

func setupWebhookApp(t *testing.T, secret string) (*fiber.App, ledger.Ledger) {
	t.Helper()
	l := ledger.NewInMemory()
	handler := NewHandler(newTestService(l), secret)

	app := fiber.New()
	app.Post("/webhooks/payment", handler.PaymentWebhook)
	return app, l
}

func postWebhook(t *testing.T, app *fiber.App, hook PaymentWebhook, secret string) (FundingResponse, int) {
	t.Helper()
	body, err := json.Marshal(hook)
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set("x-webhook-signature", payments.Sign(body, secret))
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var decoded FundingResponse
	if resp.StatusCode == fiber.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return decoded, resp.StatusCode
}

func TestPaymentWebhookCreditsOnceAndAcksReplay(t *testing.T) {
	const secret = "hook-secret"
	app, l := setupWebhookApp(t, secret)

	hook := PaymentWebhook{
		OrderID:     "order-77",
		OrderAmount: 25_000,
		OrderStatus: PaymentStatusPaid,
		CustomerID:  "acct",
	}

	first, status := postWebhook(t, app, hook, secret)
	if status != fiber.StatusOK {
		t.Fatalf("first delivery status %d", status)
	}
	if first.Duplicate || first.Balance != 25_000 {
		t.Fatalf("first delivery outcome %+v", first)
	}

	replay, status := postWebhook(t, app, hook, secret)
	if status != fiber.StatusOK {
		t.Fatalf("replay status %d", status)
	}
	if !replay.Duplicate {
		t.Fatal("replay not flagged as duplicate")
	}
	if replay.TransactionID != first.TransactionID {
		t.Fatalf("replay outcome %d does not match original %d", replay.TransactionID, first.TransactionID)
	}

	balance, _ := l.Balance(context.Background(), "acct")
	if balance != 25_000 {
		t.Fatalf("replay credited again: %d", balance)
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	app, l := setupWebhookApp(t, "hook-secret")

	hook := PaymentWebhook{OrderID: "order-78", OrderAmount: 1_000, OrderStatus: PaymentStatusPaid, CustomerID: "acct"}
	_, status := postWebhook(t, app, hook, "wrong-secret")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", status)
	}

	balance, _ := l.Balance(context.Background(), "acct")
	if balance != 0 {
		t.Fatalf("unsigned webhook credited wallet: %d", balance)
	}
}

func TestPaymentWebhookIgnoresNonTerminalStatus(t *testing.T) {
	const secret = "hook-secret"
	app, l := setupWebhookApp(t, secret)

	hook := PaymentWebhook{OrderID: "order-79", OrderAmount: 1_000, OrderStatus: "PENDING", CustomerID: "acct"}
	_, status := postWebhook(t, app, hook, secret)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 ack, got %d", status)
	}

	balance, _ := l.Balance(context.Background(), "acct")
	if balance != 0 {
		t.Fatalf("pending webhook credited wallet: %d", balance)
	}
}

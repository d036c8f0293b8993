package payments

import (
	"context"

	"github.com/google/uuid"
)

// Gateway is the connector to the external payment provider: order creation
// for deposits and transfer creation for payouts. The provider later reports
// the outcome of both through signed webhooks.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (Payout, error)
}

// OrderRequest captures the data the provider needs to open a payment order.
type OrderRequest struct {
	OrderID  string
	Customer string
	Phone    string
	Amount   int64
	Currency string
}

// Order is the provider's answer to an order creation: the reference the
// client pays against and which the webhook later carries back.
type Order struct {
	OrderID     string
	PaymentLink string
	Status      string
}

// Beneficiary identifies the bank account receiving a payout.
type Beneficiary struct {
	Name          string
	AccountNumber string
	IFSC          string
}

// PayoutRequest captures the data for a bank transfer.
type PayoutRequest struct {
	TransferID  string
	Amount      int64
	Beneficiary Beneficiary
}

// Payout is the provider's acknowledgement of a transfer request.
type Payout struct {
	TransferID string
	Status     string
}

// StaticGateway simulates a provider that accepts everything. Used in dev
// mode and tests.
type StaticGateway struct{}

// CreateOrder returns a synthetic accepted order.
func (StaticGateway) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	return Order{OrderID: orderID, PaymentLink: "https://pay.example/" + orderID, Status: "ACTIVE"}, nil
}

// CreatePayout returns a synthetic accepted transfer.
func (StaticGateway) CreatePayout(_ context.Context, req PayoutRequest) (Payout, error) {
	transferID := req.TransferID
	if transferID == "" {
		transferID = uuid.NewString()
	}
	return Payout{TransferID: transferID, Status: "ACCEPTED"}, nil
}

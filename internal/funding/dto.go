package funding

// CreateOrderRequest captures user-provided data to open a deposit order.
type CreateOrderRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// CreateOrderResponse returns the provider order the client pays against.
type CreateOrderResponse struct {
	OrderID       string `json:"order_id"`
	PaymentLink   string `json:"payment_link"`
	Status        string `json:"status"`
	TransactionID int64  `json:"transaction_id"`
}

// WithdrawRequest captures withdrawal details for a bank payout.
type WithdrawRequest struct {
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	BeneficiaryName string `json:"beneficiary_name" validate:"required"`
	AccountNumber   string `json:"account_number" validate:"required"`
	IFSC            string `json:"ifsc" validate:"required"`
}

// WithdrawResponse reports the reserved withdrawal.
type WithdrawResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Balance       int64  `json:"balance"`
	TransferID    string `json:"transfer_id"`
	PayoutStatus  string `json:"payout_status"`
}

// PaymentWebhook is the provider's payment confirmation payload.
type PaymentWebhook struct {
	OrderID       string `json:"order_id"`
	OrderAmount   int64  `json:"order_amount"`
	OrderStatus   string `json:"order_status"`
	ReferenceID   string `json:"reference_id"`
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

// PayoutWebhook is the provider's payout status payload.
type PayoutWebhook struct {
	TransferID string `json:"transfer_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
}

// FundingResponse represents the API response for webhook-applied mutations.
type FundingResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Balance       int64  `json:"balance"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	Status        string `json:"status"`
}

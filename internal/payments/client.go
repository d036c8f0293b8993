package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paisabet/paisabet/internal/config"
)

// Client talks to the Cashfree-style REST API. No corpus repo carries an HTTP
// client library, so this uses net/http directly with a bounded timeout.
type Client struct {
	http      *http.Client
	baseURL   string
	payoutURL string
	appID     string
	secret    string
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.Config) *Client {
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   cfg.ProviderBaseURL,
		payoutURL: cfg.ProviderPayoutURL,
		appID:     cfg.ProviderAppID,
		secret:    cfg.ProviderSecret,
	}
}

type orderPayload struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	PaymentLink string `json:"payment_link"`
	OrderStatus string `json:"order_status"`
}

// CreateOrder opens a payment order with the provider. Amounts are converted
// from paise to the rupee-denominated value the API expects.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	payload := orderPayload{
		OrderID:       req.OrderID,
		OrderAmount:   float64(req.Amount) / 100,
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    req.Customer,
			CustomerPhone: req.Phone,
		},
	}

	var resp orderResponse
	if err := c.post(ctx, c.baseURL+"/pg/orders", payload, &resp); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return Order{OrderID: resp.OrderID, PaymentLink: resp.PaymentLink, Status: resp.OrderStatus}, nil
}

type payoutPayload struct {
	TransferID  string         `json:"transfer_id"`
	Amount      float64        `json:"amount"`
	Beneficiary payoutBankInfo `json:"beneficiary"`
}

type payoutBankInfo struct {
	Name          string `json:"name"`
	AccountNumber string `json:"bank_account"`
	IFSC          string `json:"ifsc"`
}

type payoutResponse struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}

// CreatePayout requests a bank transfer for a withdrawal.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (Payout, error) {
	payload := payoutPayload{
		TransferID: req.TransferID,
		Amount:     float64(req.Amount) / 100,
		Beneficiary: payoutBankInfo{
			Name:          req.Beneficiary.Name,
			AccountNumber: req.Beneficiary.AccountNumber,
			IFSC:          req.Beneficiary.IFSC,
		},
	}

	var resp payoutResponse
	if err := c.post(ctx, c.payoutURL+"/payout/v1/requestTransfer", payload, &resp); err != nil {
		return Payout{}, fmt.Errorf("create payout: %w", err)
	}
	return Payout{TransferID: resp.TransferID, Status: resp.Status}, nil
}

func (c *Client) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, detail)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

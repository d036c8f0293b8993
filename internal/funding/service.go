package funding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paisabet/paisabet/internal/events"
	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/metrics"
	"github.com/paisabet/paisabet/internal/notification"
	"github.com/paisabet/paisabet/internal/payments"
)

// Payout statuses reported by the provider webhook.
const (
	PayoutStatusSuccess = "SUCCESS"
	PayoutStatusFailed  = "FAILED"
)

// Service coordinates deposits and withdrawals between the payment provider
// and the ledger. Deposits only credit the wallet when the provider's webhook
// confirms payment; withdrawals reserve funds immediately and are settled or
// reversed by the payout webhook.
type Service struct {
	ledger    ledger.Ledger
	gateway   payments.Gateway
	notifier  notification.Notifier
	publisher events.Publisher
	currency  string
}

// NewService builds a funding service.
func NewService(ledgerBackend ledger.Ledger, gateway payments.Gateway, notifier notification.Notifier, publisher events.Publisher, currency string) *Service {
	if gateway == nil {
		gateway = payments.StaticGateway{}
	}
	return &Service{
		ledger:    ledgerBackend,
		gateway:   gateway,
		notifier:  notifier,
		publisher: publisher,
		currency:  currency,
	}
}

// OrderResult describes a provider order opened for a deposit.
type OrderResult struct {
	OrderID       string
	PaymentLink   string
	Status        string
	TransactionID int64
}

// CreateOrder opens a payment order and records a zero-amount pending marker
// in the log. The wallet is only credited once ConfirmDeposit applies the
// provider's webhook.
func (s *Service) CreateOrder(ctx context.Context, accountID, phone string, amount int64) (OrderResult, error) {
	if amount <= 0 {
		return OrderResult{}, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}

	orderID := fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), accountID)
	order, err := s.gateway.CreateOrder(ctx, payments.OrderRequest{
		OrderID:  orderID,
		Customer: accountID,
		Phone:    phone,
		Amount:   amount,
		Currency: s.currency,
	})
	if err != nil {
		return OrderResult{}, err
	}

	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID: accountID,
		Amount:    0,
		Kind:      ledger.KindDepositPending,
		Metadata: map[string]string{
			"order_id":     order.OrderID,
			"order_amount": strconv.FormatInt(amount, 10),
		},
	})
	metrics.ObservePosting(ledger.KindDepositPending, err)
	if err != nil {
		return OrderResult{}, err
	}

	return OrderResult{
		OrderID:       order.OrderID,
		PaymentLink:   order.PaymentLink,
		Status:        order.Status,
		TransactionID: receipt.TransactionID,
	}, nil
}

// Result is the ledger outcome of a funding mutation.
type Result struct {
	TransactionID int64
	Balance       int64
}

// ConfirmDeposit applies a provider-confirmed payment exactly once. A replay
// of the same external reference returns the original outcome together with
// ledger.ErrDuplicateEvent and performs no mutation.
func (s *Service) ConfirmDeposit(ctx context.Context, externalRef, accountID string, amount int64) (Result, error) {
	if externalRef == "" {
		return Result{}, fmt.Errorf("%w: external ref is required", ledger.ErrInvalidArgument)
	}
	if amount <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}

	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID:   accountID,
		Amount:      amount,
		Kind:        ledger.KindDeposit,
		Event:       ledger.EventDeposit,
		ExternalRef: externalRef,
	})
	metrics.ObservePosting(ledger.KindDeposit, err)
	if err != nil {
		return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, err
	}

	s.notify(ctx, notification.KindDepositCredited, accountID,
		fmt.Sprintf("Deposit of %d credited", amount))
	s.publish(ctx, events.KindDepositCredited, accountID, receipt, amount, externalRef)

	return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, nil
}

// WithdrawInput captures a withdrawal request.
type WithdrawInput struct {
	AccountID   string
	Amount      int64
	Beneficiary payments.Beneficiary
}

// WithdrawResult describes a reserved withdrawal.
type WithdrawResult struct {
	TransactionID int64
	Balance       int64
	TransferID    string
	PayoutStatus  string
}

// RequestWithdrawal reserves the amount by debiting the wallet, then asks the
// provider to transfer the funds. If the provider rejects the transfer
// outright the reservation is reversed before returning.
func (s *Service) RequestWithdrawal(ctx context.Context, input WithdrawInput) (WithdrawResult, error) {
	if input.Amount <= 0 {
		return WithdrawResult{}, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	if input.Beneficiary.Name == "" || input.Beneficiary.AccountNumber == "" || input.Beneficiary.IFSC == "" {
		return WithdrawResult{}, fmt.Errorf("%w: beneficiary details are required", ledger.ErrInvalidArgument)
	}

	transferID := "wd_" + uuid.NewString()
	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID: input.AccountID,
		Amount:    -input.Amount,
		Kind:      ledger.KindWithdrawPending,
		Metadata: map[string]string{
			"transfer_id": transferID,
			"beneficiary": input.Beneficiary.Name,
		},
	})
	metrics.ObservePosting(ledger.KindWithdrawPending, err)
	if err != nil {
		return WithdrawResult{}, err
	}

	payout, err := s.gateway.CreatePayout(ctx, payments.PayoutRequest{
		TransferID:  transferID,
		Amount:      input.Amount,
		Beneficiary: input.Beneficiary,
	})
	if err != nil {
		// Provider refused the transfer; give the funds back under the
		// payout claim so any late webhook for the same ref stays a no-op.
		reversal, revErr := s.reversePayout(ctx, transferID, input.AccountID, input.Amount)
		if revErr != nil {
			return WithdrawResult{}, fmt.Errorf("payout rejected and reversal failed: %w", revErr)
		}
		return WithdrawResult{}, fmt.Errorf("payout rejected, %d returned to balance %d: %w",
			input.Amount, reversal.Balance, err)
	}

	s.publish(ctx, events.KindWithdrawal, input.AccountID, receipt, -input.Amount, transferID)

	return WithdrawResult{
		TransactionID: receipt.TransactionID,
		Balance:       receipt.Balance,
		TransferID:    transferID,
		PayoutStatus:  payout.Status,
	}, nil
}

// ResolvePayout applies a provider payout-status webhook exactly once. A
// successful payout settles the earlier reservation with a zero-amount
// marker; a failed payout posts the compensating credit.
func (s *Service) ResolvePayout(ctx context.Context, externalRef, accountID, status string, amount int64) (Result, error) {
	if externalRef == "" {
		return Result{}, fmt.Errorf("%w: external ref is required", ledger.ErrInvalidArgument)
	}

	switch status {
	case PayoutStatusSuccess:
		receipt, err := s.ledger.Post(ctx, ledger.Posting{
			AccountID:   accountID,
			Amount:      0,
			Kind:        ledger.KindWithdraw,
			Event:       ledger.EventPayout,
			ExternalRef: externalRef,
			Metadata:    map[string]string{"payout_status": status},
		})
		metrics.ObservePosting(ledger.KindWithdraw, err)
		if err != nil {
			return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, err
		}
		s.notify(ctx, notification.KindPayoutSettled, accountID, "Withdrawal transferred")
		s.publish(ctx, events.KindPayoutSettled, accountID, receipt, 0, externalRef)
		return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, nil

	case PayoutStatusFailed:
		if amount <= 0 {
			return Result{}, fmt.Errorf("%w: reversal amount must be positive", ledger.ErrInvalidArgument)
		}
		receipt, err := s.reversePayout(ctx, externalRef, accountID, amount)
		if err != nil {
			return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, err
		}
		s.notify(ctx, notification.KindPayoutFailed, accountID,
			fmt.Sprintf("Withdrawal failed, %d returned to wallet", amount))
		s.publish(ctx, events.KindPayoutReversed, accountID, receipt, amount, externalRef)
		return Result{TransactionID: receipt.TransactionID, Balance: receipt.Balance}, nil

	default:
		return Result{}, fmt.Errorf("%w: unknown payout status %q", ledger.ErrInvalidArgument, status)
	}
}

func (s *Service) reversePayout(ctx context.Context, externalRef, accountID string, amount int64) (ledger.Receipt, error) {
	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID:   accountID,
		Amount:      amount,
		Kind:        ledger.KindWithdrawReversal,
		Event:       ledger.EventPayout,
		ExternalRef: externalRef,
		Metadata:    map[string]string{"payout_status": PayoutStatusFailed},
	})
	metrics.ObservePosting(ledger.KindWithdrawReversal, err)
	return receipt, err
}

func (s *Service) notify(ctx context.Context, kind, accountID, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: accountID, Body: body})
}

func (s *Service) publish(ctx context.Context, kind, accountID string, receipt ledger.Receipt, amount int64, ref string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, events.TransactionEvent{
		Kind:          kind,
		AccountID:     accountID,
		TransactionID: receipt.TransactionID,
		Amount:        amount,
		Balance:       receipt.Balance,
		ExternalRef:   ref,
	})
}

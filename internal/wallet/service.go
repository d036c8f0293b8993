package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/paisabet/paisabet/internal/events"
	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/metrics"
)

// Service exposes the read side of the wallet plus operator adjustments.
type Service struct {
	ledger    ledger.Ledger
	publisher events.Publisher
}

// NewService builds a wallet service.
func NewService(ledgerBackend ledger.Ledger, publisher events.Publisher) *Service {
	return &Service{ledger: ledgerBackend, publisher: publisher}
}

// Balance describes available funds at a point in time.
type Balance struct {
	AccountID string
	Amount    int64
	AsOf      time.Time
}

// Balance returns the current ledger balance for the account.
func (s *Service) Balance(ctx context.Context, accountID string) (Balance, error) {
	amount, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: accountID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Statement lists transactions newest first. beforeID of 0 starts at the
// most recent entry.
func (s *Service) Statement(ctx context.Context, accountID string, limit int, beforeID int64) ([]ledger.Transaction, error) {
	return s.ledger.Entries(ctx, accountID, limit, beforeID)
}

// AdminAdjust posts an operator-initiated correction. The signed amount may
// credit or debit; a debit below zero is rejected like any other.
func (s *Service) AdminAdjust(ctx context.Context, accountID string, amount int64, reason string) (ledger.Receipt, error) {
	if reason == "" {
		return ledger.Receipt{}, fmt.Errorf("%w: reason is required", ledger.ErrInvalidArgument)
	}

	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID: accountID,
		Amount:    amount,
		Kind:      ledger.KindAdminCredit,
		Metadata:  map[string]string{"reason": reason},
	})
	metrics.ObservePosting(ledger.KindAdminCredit, err)
	if err != nil {
		return ledger.Receipt{}, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.TransactionEvent{
			Kind:          events.KindAdminAdjusted,
			AccountID:     accountID,
			TransactionID: receipt.TransactionID,
			Amount:        amount,
			Balance:       receipt.Balance,
		})
	}

	return receipt, nil
}

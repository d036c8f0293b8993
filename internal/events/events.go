package events

import (
	"context"
	"log/slog"
	"time"
)

// Event kinds published after a ledger posting commits.
const (
	KindBetPlaced       = "bet_placed"
	KindDepositCredited = "deposit_credited"
	KindWithdrawal      = "withdrawal_requested"
	KindPayoutSettled   = "payout_settled"
	KindPayoutReversed  = "payout_reversed"
	KindAdminAdjusted   = "admin_adjusted"
)

// TransactionEvent describes a committed balance change for downstream
// consumers (statements, analytics, fraud checks).
type TransactionEvent struct {
	Kind          string `json:"kind"`
	AccountID     string `json:"account_id"`
	TransactionID int64  `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Balance       int64  `json:"balance"`
	ExternalRef   string `json:"external_ref,omitempty"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}

// Publisher delivers transaction events to downstream systems. Publishing is
// best effort and happens after commit; a failed publish never rolls back the
// ledger.
type Publisher interface {
	Publish(ctx context.Context, e TransactionEvent) error
	Close() error
}

// LogPublisher writes events to the structured logger. Default when no Kafka
// brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e TransactionEvent) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("transaction event",
		slog.String("kind", e.Kind),
		slog.String("account_id", e.AccountID),
		slog.Int64("transaction_id", e.TransactionID),
		slog.Int64("amount", e.Amount),
		slog.Int64("balance", e.Balance),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

func stamp(e TransactionEvent) TransactionEvent {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	return e
}

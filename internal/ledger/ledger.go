package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a debit would take the account balance
	// below zero. State is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateEvent indicates the (event, external ref) pair was already
	// applied; the returned Receipt carries the original outcome and no
	// mutation took place.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrInvalidArgument flags caller mistakes such as a non-positive amount
	// or a missing account identifier.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockTimeout signals that the per-account lock could not be acquired
	// within the configured wait. The operation was not applied and is safe
	// to retry.
	ErrLockTimeout = errors.New("account lock timeout")

	// ErrStorage wraps failures of the durability layer. The operation must
	// be considered not-applied unless the store confirms otherwise.
	ErrStorage = errors.New("storage failure")
)

// Kind classifies a ledger transaction.
type Kind string

const (
	KindBet              Kind = "bet"
	KindDeposit          Kind = "deposit"
	KindDepositPending   Kind = "deposit_pending"
	KindWithdraw         Kind = "withdraw"
	KindWithdrawPending  Kind = "withdraw_pending"
	KindWithdrawReversal Kind = "withdraw_reversal"
	KindAdminCredit      Kind = "admin_credit"
)

// Event scopes for idempotency claims on externally sourced mutations.
const (
	EventDeposit = "deposit"
	EventPayout  = "payout"
)

// Transaction is one immutable entry of the append-only log. Amount is in
// minor currency units (paise); negative means debit.
type Transaction struct {
	ID          int64
	AccountID   string
	Amount      int64
	Kind        Kind
	ExternalRef string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// Posting describes a single balance mutation. When Event and ExternalRef are
// both set the posting is claimed in the idempotency index before being
// applied, guaranteeing at-most-once semantics for webhook retries.
type Posting struct {
	AccountID   string
	Amount      int64
	Kind        Kind
	Event       string
	ExternalRef string
	Metadata    map[string]string
}

// Receipt is the committed outcome of a posting.
type Receipt struct {
	TransactionID int64
	Balance       int64
}

// Ledger is the engine contract. Every Post executes as one atomic unit over
// the account balance, the transaction log and the idempotency index,
// serialized per account. Accounts are provisioned lazily with balance 0 on
// first reference.
type Ledger interface {
	// Balance returns the current balance; 0 for a never-seen account.
	Balance(ctx context.Context, accountID string) (int64, error)

	// Post atomically validates and applies the posting. On a duplicate
	// claim it returns the original Receipt together with ErrDuplicateEvent.
	Post(ctx context.Context, p Posting) (Receipt, error)

	// Entries lists transactions for the account newest first. beforeID of 0
	// starts from the most recent entry; a positive beforeID resumes the page
	// before that transaction id.
	Entries(ctx context.Context, accountID string, limit int, beforeID int64) ([]Transaction, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// markerKind reports whether the kind may carry a zero amount: markers record
// a state transition in the log without moving funds.
func markerKind(k Kind) bool {
	return k == KindDepositPending || k == KindWithdraw
}

func (p Posting) validate() error {
	if p.AccountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}
	switch p.Kind {
	case KindBet, KindDeposit, KindDepositPending, KindWithdraw,
		KindWithdrawPending, KindWithdrawReversal, KindAdminCredit:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, p.Kind)
	}
	if p.Amount == 0 && !markerKind(p.Kind) {
		return fmt.Errorf("%w: amount must be non-zero", ErrInvalidArgument)
	}
	if (p.Event == "") != (p.ExternalRef == "") {
		return fmt.Errorf("%w: event and external ref must be set together", ErrInvalidArgument)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

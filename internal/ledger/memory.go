package ledger

import (
	"context"
	"sync"
	"time"
)

const defaultLockWait = 2 * time.Second

type claimKey struct {
	event string
	ref   string
}

type claimState struct {
	inProgress bool
	receipt    Receipt
}

// memoryLedger keeps the full ledger state in process memory. It honours the
// same contract as the Postgres backend, including per-account serialization
// with a bounded lock wait, and is the backend used by unit tests and by dev
// mode without a DATABASE_URL.
type memoryLedger struct {
	mu       sync.Mutex
	locks    map[string]chan struct{}
	balances map[string]int64
	log      map[string][]Transaction
	claims   map[claimKey]*claimState
	nextID   int64
	lockWait time.Duration
}

// NewInMemory creates a concurrency-safe in-memory ledger.
func NewInMemory() Ledger {
	return &memoryLedger{
		locks:    make(map[string]chan struct{}),
		balances: make(map[string]int64),
		log:      make(map[string][]Transaction),
		claims:   make(map[claimKey]*claimState),
		lockWait: defaultLockWait,
	}
}

// accountLock returns the buffered-channel mutex for the account, creating it
// on first reference.
func (l *memoryLedger) accountLock(accountID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		l.locks[accountID] = lock
	}
	return lock
}

func (l *memoryLedger) acquire(ctx context.Context, accountID string) (release func(), err error) {
	lock := l.accountLock(accountID)
	timer := time.NewTimer(l.lockWait)
	defer timer.Stop()
	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *memoryLedger) Balance(_ context.Context, accountID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[accountID], nil
}

func (l *memoryLedger) Post(ctx context.Context, p Posting) (Receipt, error) {
	if err := p.validate(); err != nil {
		return Receipt{}, err
	}

	release, err := l.acquire(ctx, p.AccountID)
	if err != nil {
		return Receipt{}, err
	}
	defer release()

	claimed := p.Event != ""
	key := claimKey{event: p.Event, ref: p.ExternalRef}
	if claimed {
		l.mu.Lock()
		if existing, ok := l.claims[key]; ok {
			receipt := existing.receipt
			l.mu.Unlock()
			return receipt, ErrDuplicateEvent
		}
		l.claims[key] = &claimState{inProgress: true}
		l.mu.Unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[p.AccountID]
	if balance+p.Amount < 0 {
		if claimed {
			delete(l.claims, key)
		}
		return Receipt{}, ErrInsufficientFunds
	}

	l.nextID++
	record := Transaction{
		ID:          l.nextID,
		AccountID:   p.AccountID,
		Amount:      p.Amount,
		Kind:        p.Kind,
		ExternalRef: p.ExternalRef,
		Metadata:    copyMetadata(p.Metadata),
		CreatedAt:   time.Now().UTC(),
	}
	l.log[p.AccountID] = append(l.log[p.AccountID], record)
	l.balances[p.AccountID] = balance + p.Amount

	receipt := Receipt{TransactionID: record.ID, Balance: balance + p.Amount}
	if claimed {
		l.claims[key] = &claimState{receipt: receipt}
	}
	return receipt, nil
}

func (l *memoryLedger) Entries(_ context.Context, accountID string, limit int, beforeID int64) ([]Transaction, error) {
	limit = clampLimit(limit)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.log[accountID]
	out := make([]Transaction, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		if beforeID > 0 && entries[i].ID >= beforeID {
			continue
		}
		record := entries[i]
		record.Metadata = copyMetadata(record.Metadata)
		out = append(out, record)
	}
	return out, nil
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

package ledger

import "context"

// SeedBalance is a test helper that funds an account directly when using the
// in-memory ledger, writing a matching admin_credit entry so the
// log-reconciliation invariant keeps holding.
func SeedBalance(l Ledger, accountID string, amount int64) {
	if amount <= 0 {
		return
	}
	if mem, ok := l.(*memoryLedger); ok {
		_, _ = mem.Post(context.Background(), Posting{
			AccountID: accountID,
			Amount:    amount,
			Kind:      KindAdminCredit,
			Metadata:  map[string]string{"reason": "test seed"},
		})
	}
}

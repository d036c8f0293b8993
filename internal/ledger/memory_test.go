package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLedger_LazyProvisioning(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	balance, err := l.Balance(ctx, "acct-never-seen")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected 0 for never-seen account, got %d", balance)
	}
}

func TestMemoryLedger_PostDebitAndCredit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	res, err := l.Post(ctx, Posting{AccountID: "a", Amount: 500, Kind: KindDeposit, Event: EventDeposit, ExternalRef: "ref-1"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Balance != 500 {
		t.Fatalf("expected balance 500, got %d", res.Balance)
	}

	res, err = l.Post(ctx, Posting{AccountID: "a", Amount: -200, Kind: KindBet})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if res.Balance != 300 {
		t.Fatalf("expected balance 300, got %d", res.Balance)
	}
}

func TestMemoryLedger_NoNegativeBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "a", 100)

	_, err := l.Post(ctx, Posting{AccountID: "a", Amount: -101, Kind: KindBet})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, _ := l.Balance(ctx, "a")
	if balance != 100 {
		t.Fatalf("rejected debit mutated balance: %d", balance)
	}
	entries, _ := l.Entries(ctx, "a", 10, 0)
	if len(entries) != 1 {
		t.Fatalf("rejected debit appended a record: %d entries", len(entries))
	}
}

func TestMemoryLedger_Validation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	cases := []Posting{
		{AccountID: "", Amount: 10, Kind: KindDeposit},
		{AccountID: "a", Amount: 0, Kind: KindBet},
		{AccountID: "a", Amount: 10, Kind: Kind("mystery")},
		{AccountID: "a", Amount: 10, Kind: KindDeposit, Event: EventDeposit},
	}
	for i, p := range cases {
		if _, err := l.Post(ctx, p); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected invalid argument, got %v", i, err)
		}
	}
}

func TestMemoryLedger_AtMostOnceDeposit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	first, err := l.Post(ctx, Posting{AccountID: "a", Amount: 100, Kind: KindDeposit, Event: EventDeposit, ExternalRef: "order-1"})
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}

	replay, err := l.Post(ctx, Posting{AccountID: "a", Amount: 100, Kind: KindDeposit, Event: EventDeposit, ExternalRef: "order-1"})
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected duplicate event, got %v", err)
	}
	if replay.TransactionID != first.TransactionID || replay.Balance != first.Balance {
		t.Fatalf("duplicate receipt %+v does not match original %+v", replay, first)
	}

	balance, _ := l.Balance(ctx, "a")
	if balance != 100 {
		t.Fatalf("replay credited the account again: %d", balance)
	}
	entries, _ := l.Entries(ctx, "a", 10, 0)
	if len(entries) != 1 {
		t.Fatalf("replay appended a record: %d entries", len(entries))
	}
}

func TestMemoryLedger_ClaimRolledBackOnAbort(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	// Debit claim fails on funds; the claim must be released so a retry with
	// the same ref can succeed once funds exist.
	_, err := l.Post(ctx, Posting{AccountID: "a", Amount: -50, Kind: KindWithdrawPending, Event: EventPayout, ExternalRef: "p-1"})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	SeedBalance(l, "a", 100)
	if _, err := l.Post(ctx, Posting{AccountID: "a", Amount: -50, Kind: KindWithdrawPending, Event: EventPayout, ExternalRef: "p-1"}); err != nil {
		t.Fatalf("retry after aborted claim: %v", err)
	}
}

func TestMemoryLedger_ConcurrentBetsSingleWinner(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "a", 100)

	var wg sync.WaitGroup
	var successes, rejections int64
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Post(ctx, Posting{AccountID: "a", Amount: -60, Kind: KindBet})
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, ErrInsufficientFunds):
				atomic.AddInt64(&rejections, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || rejections != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", successes, rejections)
	}
	balance, _ := l.Balance(ctx, "a")
	if balance != 40 {
		t.Fatalf("expected final balance 40, got %d", balance)
	}
}

func TestMemoryLedger_IndependentAccountsDoNotBlock(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := fmt.Sprintf("acct-%d", i)
			if _, err := l.Post(ctx, Posting{AccountID: acct, Amount: 10, Kind: KindDeposit, Event: EventDeposit, ExternalRef: acct}); err != nil {
				t.Errorf("post %s: %v", acct, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		balance, _ := l.Balance(ctx, fmt.Sprintf("acct-%d", i))
		if balance != 10 {
			t.Fatalf("account %d balance %d", i, balance)
		}
	}
}

func TestMemoryLedger_LockTimeout(t *testing.T) {
	mem := NewInMemory().(*memoryLedger)
	mem.lockWait = 20 * time.Millisecond
	ctx := context.Background()

	release, err := mem.acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if _, err := mem.Post(ctx, Posting{AccountID: "a", Amount: 10, Kind: KindDeposit, Event: EventDeposit, ExternalRef: "r"}); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestMemoryLedger_EntriesPagination(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.Post(ctx, Posting{AccountID: "a", Amount: int64(i + 1), Kind: KindDeposit, Event: EventDeposit, ExternalRef: fmt.Sprintf("r-%d", i)}); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	page, err := l.Entries(ctx, "a", 2, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	if page[0].ID <= page[1].ID {
		t.Fatalf("expected newest first, got ids %d then %d", page[0].ID, page[1].ID)
	}

	next, err := l.Entries(ctx, "a", 10, page[1].ID)
	if err != nil {
		t.Fatalf("entries page 2: %v", err)
	}
	if len(next) != 3 {
		t.Fatalf("expected remaining 3 entries, got %d", len(next))
	}
	if next[0].ID >= page[1].ID {
		t.Fatalf("pagination overlapped: %d then boundary %d", next[0].ID, page[1].ID)
	}
}

// TestMemoryLedger_LogReconciliation drives a random mix of concurrent
// operations and checks that every account balance equals the fold over its
// transaction log.
func TestMemoryLedger_LogReconciliation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	accounts := []string{"a", "b", "c"}

	const workers = 8
	const opsPerWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w) + 42))
			for i := 0; i < opsPerWorker; i++ {
				acct := accounts[rng.Intn(len(accounts))]
				amount := int64(rng.Intn(200) + 1)
				var p Posting
				switch rng.Intn(4) {
				case 0:
					p = Posting{AccountID: acct, Amount: amount, Kind: KindDeposit,
						Event: EventDeposit, ExternalRef: fmt.Sprintf("w%d-i%d", w, i)}
				case 1:
					p = Posting{AccountID: acct, Amount: -amount, Kind: KindBet}
				case 2:
					p = Posting{AccountID: acct, Amount: -amount, Kind: KindWithdrawPending}
				default:
					if rng.Intn(2) == 0 {
						amount = -amount
					}
					p = Posting{AccountID: acct, Amount: amount, Kind: KindAdminCredit}
				}
				if _, err := l.Post(ctx, p); err != nil && !errors.Is(err, ErrInsufficientFunds) {
					t.Errorf("post: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for _, acct := range accounts {
		balance, err := l.Balance(ctx, acct)
		if err != nil {
			t.Fatalf("balance %s: %v", acct, err)
		}
		if balance < 0 {
			t.Fatalf("account %s went negative: %d", acct, balance)
		}

		var sum int64
		beforeID := int64(0)
		for {
			page, err := l.Entries(ctx, acct, maxPageSize, beforeID)
			if err != nil {
				t.Fatalf("entries %s: %v", acct, err)
			}
			if len(page) == 0 {
				break
			}
			for _, record := range page {
				sum += record.Amount
			}
			beforeID = page[len(page)-1].ID
		}
		if sum != balance {
			t.Fatalf("account %s: log sum %d != balance %d", acct, sum, balance)
		}
	}
}

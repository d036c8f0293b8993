package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/paisabet/paisabet/internal/ledger"
)

func TestServiceBalanceAndStatement(t *testing.T) {
	mem := ledger.NewInMemory()
	svc := NewService(mem, nil)
	ctx := context.Background()

	balance, err := svc.Balance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Fatalf("fresh account balance = %d, want 0", balance.Amount)
	}

	ledger.SeedBalance(mem, "acc-1", 500)
	if _, err := mem.Post(ctx, ledger.Posting{AccountID: "acc-1", Amount: -100, Kind: ledger.KindBet}); err != nil {
		t.Fatalf("post bet: %v", err)
	}

	balance, err = svc.Balance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 400 {
		t.Fatalf("balance = %d, want 400", balance.Amount)
	}

	entries, err := svc.Statement(ctx, "acc-1", 10, 0)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Kind != ledger.KindBet {
		t.Fatalf("newest entry kind = %q, want bet", entries[0].Kind)
	}

	// Reconciliation: the log folds back to the balance.
	var sum int64
	for _, tx := range entries {
		sum += tx.Amount
	}
	if sum != balance.Amount {
		t.Fatalf("log sum %d != balance %d", sum, balance.Amount)
	}
}

func TestServiceAdminAdjust(t *testing.T) {
	mem := ledger.NewInMemory()
	svc := NewService(mem, nil)
	ctx := context.Background()

	receipt, err := svc.AdminAdjust(ctx, "acc-2", 250, "goodwill credit")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if receipt.Balance != 250 {
		t.Fatalf("balance = %d, want 250", receipt.Balance)
	}

	receipt, err = svc.AdminAdjust(ctx, "acc-2", -50, "chargeback")
	if err != nil {
		t.Fatalf("debit adjust: %v", err)
	}
	if receipt.Balance != 200 {
		t.Fatalf("balance = %d, want 200", receipt.Balance)
	}

	entries, err := svc.Statement(ctx, "acc-2", 10, 0)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if entries[0].Metadata["reason"] != "chargeback" {
		t.Fatalf("reason metadata = %q, want chargeback", entries[0].Metadata["reason"])
	}
}

func TestServiceAdminAdjustRejections(t *testing.T) {
	mem := ledger.NewInMemory()
	svc := NewService(mem, nil)
	ctx := context.Background()

	if _, err := svc.AdminAdjust(ctx, "acc-3", 100, ""); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("missing reason: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.AdminAdjust(ctx, "acc-3", -100, "overdraw"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("overdraw: err = %v, want ErrInsufficientFunds", err)
	}

	balance, err := svc.Balance(ctx, "acc-3")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 0 {
		t.Fatalf("balance after rejections = %d, want 0", balance.Amount)
	}
}

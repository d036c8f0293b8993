package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/payments"
)

func newTestService(l ledger.Ledger) *Service {
	return NewService(l, payments.StaticGateway{}, nil, nil, "INR")
}

func TestServiceConfirmDepositAtMostOnce(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)

	first, err := svc.ConfirmDeposit(ctx, "ref1", "acct", 10_000)
	if err != nil {
		t.Fatalf("confirm deposit: %v", err)
	}
	if first.Balance != 10_000 {
		t.Fatalf("expected balance 10000, got %d", first.Balance)
	}

	replay, err := svc.ConfirmDeposit(ctx, "ref1", "acct", 10_000)
	if !errors.Is(err, ledger.ErrDuplicateEvent) {
		t.Fatalf("expected duplicate event, got %v", err)
	}
	if replay.TransactionID != first.TransactionID {
		t.Fatalf("duplicate outcome %d does not match original %d", replay.TransactionID, first.TransactionID)
	}

	balance, _ := l.Balance(ctx, "acct")
	if balance != 10_000 {
		t.Fatalf("replay credited again: %d", balance)
	}
}

func TestServiceConfirmDepositValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(ledger.NewInMemory())

	if _, err := svc.ConfirmDeposit(ctx, "", "acct", 100); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty ref, got %v", err)
	}
	if _, err := svc.ConfirmDeposit(ctx, "ref", "acct", 0); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for zero amount, got %v", err)
	}
}

func TestServiceCreateOrderRecordsPendingMarker(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)

	order, err := svc.CreateOrder(ctx, "acct", "9876543210", 5_000)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderID == "" {
		t.Fatal("expected provider order id")
	}

	// The marker must not move funds.
	balance, _ := l.Balance(ctx, "acct")
	if balance != 0 {
		t.Fatalf("order creation credited wallet: %d", balance)
	}
	entries, _ := l.Entries(ctx, "acct", 10, 0)
	if len(entries) != 1 || entries[0].Kind != ledger.KindDepositPending {
		t.Fatalf("expected one deposit_pending entry, got %+v", entries)
	}
}

func TestServiceRequestWithdrawalReservesFunds(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)
	ledger.SeedBalance(l, "acct", 20_000)

	res, err := svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "acct",
		Amount:      15_000,
		Beneficiary: payments.Beneficiary{Name: "A Kumar", AccountNumber: "0011223344", IFSC: "HDFC0000001"},
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Balance != 5_000 {
		t.Fatalf("expected balance 5000, got %d", res.Balance)
	}
	if res.TransferID == "" {
		t.Fatal("expected transfer id")
	}

	_, err = svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "acct",
		Amount:      6_000,
		Beneficiary: payments.Beneficiary{Name: "A Kumar", AccountNumber: "0011223344", IFSC: "HDFC0000001"},
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestServiceResolvePayoutFailureCompensates(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)
	ledger.SeedBalance(l, "acct", 10_000)

	res, err := svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "acct",
		Amount:      10_000,
		Beneficiary: payments.Beneficiary{Name: "A Kumar", AccountNumber: "0011223344", IFSC: "HDFC0000001"},
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	failed, err := svc.ResolvePayout(ctx, res.TransferID, "acct", PayoutStatusFailed, 10_000)
	if err != nil {
		t.Fatalf("resolve payout: %v", err)
	}
	if failed.Balance != 10_000 {
		t.Fatalf("expected funds returned, balance %d", failed.Balance)
	}

	// A retried failure webhook must not credit twice.
	replay, err := svc.ResolvePayout(ctx, res.TransferID, "acct", PayoutStatusFailed, 10_000)
	if !errors.Is(err, ledger.ErrDuplicateEvent) {
		t.Fatalf("expected duplicate event, got %v", err)
	}
	if replay.Balance != 10_000 {
		t.Fatalf("duplicate outcome balance %d", replay.Balance)
	}
	balance, _ := l.Balance(ctx, "acct")
	if balance != 10_000 {
		t.Fatalf("replay mutated balance: %d", balance)
	}
}

func TestServiceResolvePayoutSuccessIsZeroAmountMarker(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)
	ledger.SeedBalance(l, "acct", 10_000)

	res, err := svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "acct",
		Amount:      4_000,
		Beneficiary: payments.Beneficiary{Name: "A Kumar", AccountNumber: "0011223344", IFSC: "HDFC0000001"},
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	settled, err := svc.ResolvePayout(ctx, res.TransferID, "acct", PayoutStatusSuccess, 0)
	if err != nil {
		t.Fatalf("resolve payout: %v", err)
	}
	if settled.Balance != 6_000 {
		t.Fatalf("settlement changed balance: %d", settled.Balance)
	}

	entries, _ := l.Entries(ctx, "acct", 10, 0)
	if entries[0].Kind != ledger.KindWithdraw || entries[0].Amount != 0 {
		t.Fatalf("expected zero-amount withdraw marker, got %+v", entries[0])
	}
}

// TestServiceWalletLifecycle follows a full player journey: bet on an empty
// wallet, deposit via webhook, bet, webhook replay, withdraw everything.
func TestServiceWalletLifecycle(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := newTestService(l)

	if _, err := l.Post(ctx, ledger.Posting{AccountID: "A", Amount: -50, Kind: ledger.KindBet}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("bet on empty wallet: expected insufficient funds, got %v", err)
	}

	dep, err := svc.ConfirmDeposit(ctx, "ref1", "A", 200)
	if err != nil || dep.Balance != 200 {
		t.Fatalf("deposit: balance %d err %v", dep.Balance, err)
	}

	bet, err := l.Post(ctx, ledger.Posting{AccountID: "A", Amount: -50, Kind: ledger.KindBet})
	if err != nil || bet.Balance != 150 {
		t.Fatalf("bet: balance %d err %v", bet.Balance, err)
	}

	if _, err := svc.ConfirmDeposit(ctx, "ref1", "A", 200); !errors.Is(err, ledger.ErrDuplicateEvent) {
		t.Fatalf("replayed deposit: expected duplicate, got %v", err)
	}
	if balance, _ := l.Balance(ctx, "A"); balance != 150 {
		t.Fatalf("balance after replay: %d", balance)
	}

	wd, err := svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "A",
		Amount:      150,
		Beneficiary: payments.Beneficiary{Name: "A", AccountNumber: "1", IFSC: "HDFC0000001"},
	})
	if err != nil || wd.Balance != 0 {
		t.Fatalf("withdraw: balance %d err %v", wd.Balance, err)
	}

	if _, err := svc.RequestWithdrawal(ctx, WithdrawInput{
		AccountID:   "A",
		Amount:      1,
		Beneficiary: payments.Beneficiary{Name: "A", AccountNumber: "1", IFSC: "HDFC0000001"},
	}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("overdraw: expected insufficient funds, got %v", err)
	}
}

package bets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paisabet/paisabet/internal/ledger"
)

func TestServicePlace(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := NewService(l, nil)
	ledger.SeedBalance(l, "acct", 1_000)

	res, err := svc.Place(ctx, PlaceInput{AccountID: "acct", Stake: 400, BetType: "coin", Choice: "heads", RoundID: "r1"})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if res.Balance != 600 {
		t.Fatalf("expected balance 600, got %d", res.Balance)
	}
	if res.BetID == "" {
		t.Fatal("expected bet id")
	}

	entries, _ := l.Entries(ctx, "acct", 10, 0)
	if entries[0].Kind != ledger.KindBet || entries[0].Amount != -400 {
		t.Fatalf("unexpected log entry %+v", entries[0])
	}
	if entries[0].Metadata["round_id"] != "r1" {
		t.Fatalf("round id missing from metadata: %v", entries[0].Metadata)
	}
}

func TestServicePlaceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ledger.NewInMemory(), nil)

	cases := []PlaceInput{
		{AccountID: "acct", Stake: 0, BetType: "coin", Choice: "heads"},
		{AccountID: "acct", Stake: -5, BetType: "coin", Choice: "heads"},
		{AccountID: "acct", Stake: 10, BetType: "dice", Choice: "six"},
		{AccountID: "acct", Stake: 10, BetType: "coin", Choice: "red"},
	}
	for i, input := range cases {
		if _, err := svc.Place(ctx, input); !errors.Is(err, ledger.ErrInvalidArgument) {
			t.Fatalf("case %d: expected invalid argument, got %v", i, err)
		}
	}
}

func TestServicePlaceInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := NewService(l, nil)

	if _, err := svc.Place(ctx, PlaceInput{AccountID: "acct", Stake: 50, BetType: "coin", Choice: "heads"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if balance, _ := l.Balance(ctx, "acct"); balance != 0 {
		t.Fatalf("rejected bet mutated balance: %d", balance)
	}
}

func TestServicePlaceConcurrent(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemory()
	svc := NewService(l, nil)
	ledger.SeedBalance(l, "acct", 100)

	var wg sync.WaitGroup
	var successes int64
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, PlaceInput{AccountID: "acct", Stake: 60, BetType: "coin", Choice: "tails"})
			if err == nil {
				atomic.AddInt64(&successes, 1)
			} else if !errors.Is(err, ledger.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one winning placement, got %d", successes)
	}
	if balance, _ := l.Balance(ctx, "acct"); balance != 40 {
		t.Fatalf("expected final balance 40, got %d", balance)
	}
}

package bets

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/paisabet/paisabet/internal/events"
	"github.com/paisabet/paisabet/internal/ledger"
	"github.com/paisabet/paisabet/internal/metrics"
)

// Supported bet types and their allowed choices. Round settlement is handled
// by a separate resolver, not this service; placing a bet only moves money.
var betChoices = map[string][]string{
	"coin":  {"heads", "tails"},
	"color": {"red", "green"},
}

// Service places bets by debiting stakes through the ledger. Duplicate
// client submissions are not deduplicated here; callers that need protection
// send an Idempotency-Key header, which the HTTP layer honours.
type Service struct {
	ledger    ledger.Ledger
	publisher events.Publisher
}

// NewService builds a bet service.
func NewService(ledgerBackend ledger.Ledger, publisher events.Publisher) *Service {
	return &Service{ledger: ledgerBackend, publisher: publisher}
}

// PlaceInput captures a bet placement.
type PlaceInput struct {
	AccountID string
	Stake     int64
	BetType   string
	Choice    string
	RoundID   string
}

// PlaceResult is the committed outcome of a placed bet.
type PlaceResult struct {
	BetID         string
	TransactionID int64
	Balance       int64
}

// Place validates the bet and debits the stake atomically.
func (s *Service) Place(ctx context.Context, input PlaceInput) (PlaceResult, error) {
	if input.Stake <= 0 {
		return PlaceResult{}, fmt.Errorf("%w: stake must be positive", ledger.ErrInvalidArgument)
	}
	choices, ok := betChoices[input.BetType]
	if !ok {
		return PlaceResult{}, fmt.Errorf("%w: unknown bet type %q", ledger.ErrInvalidArgument, input.BetType)
	}
	if !contains(choices, input.Choice) {
		return PlaceResult{}, fmt.Errorf("%w: choice %q is not valid for %s", ledger.ErrInvalidArgument, input.Choice, input.BetType)
	}

	betID := uuid.NewString()
	metadata := map[string]string{
		"bet_id":   betID,
		"bet_type": input.BetType,
		"choice":   input.Choice,
		"stake":    strconv.FormatInt(input.Stake, 10),
	}
	if input.RoundID != "" {
		metadata["round_id"] = input.RoundID
	}

	receipt, err := s.ledger.Post(ctx, ledger.Posting{
		AccountID: input.AccountID,
		Amount:    -input.Stake,
		Kind:      ledger.KindBet,
		Metadata:  metadata,
	})
	metrics.ObservePosting(ledger.KindBet, err)
	if err != nil {
		return PlaceResult{}, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.TransactionEvent{
			Kind:          events.KindBetPlaced,
			AccountID:     input.AccountID,
			TransactionID: receipt.TransactionID,
			Amount:        -input.Stake,
			Balance:       receipt.Balance,
			ExternalRef:   betID,
		})
	}

	return PlaceResult{BetID: betID, TransactionID: receipt.TransactionID, Balance: receipt.Balance}, nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

package notifier

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/player"
)

// Outcome describes a settled game from one player's perspective.
type Outcome struct {
	GameID   string
	GameType string
	Won      bool
	// Amount is the winner payout or the lost entry fee, always positive.
	Amount   money.Lamports
	Opponent string
}

// Settlement summarizes a settled game for the ops channel.
type Settlement struct {
	GameID       string
	GameType     string
	WinnerWallet string
	LoserWallet  string
	TotalPot     money.Lamports
	PlatformFee  money.Lamports
	WinnerAmount money.Lamports
}

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider.
// Sending is best-effort everywhere: callers log failures and move on.
type Notifier interface {
	// SendGameOutcome tells a player how their game ended.
	SendGameOutcome(ctx context.Context, to player.Info, outcome Outcome) error
	// SendSettlementSummary reports a completed settlement to operators.
	SendSettlementSummary(ctx context.Context, settlement Settlement) error
}

// Multi fans a notification out to several providers. A provider failure is
// logged and does not stop the others.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) SendGameOutcome(ctx context.Context, to player.Info, outcome Outcome) error {
	for _, n := range m {
		if err := n.SendGameOutcome(ctx, to, outcome); err != nil {
			log.Error("Notifier failed to send game outcome", "error", err, "gameID", outcome.GameID)
		}
	}
	return nil
}

func (m Multi) SendSettlementSummary(ctx context.Context, settlement Settlement) error {
	for _, n := range m {
		if err := n.SendSettlementSummary(ctx, settlement); err != nil {
			log.Error("Notifier failed to send settlement summary", "error", err, "gameID", settlement.GameID)
		}
	}
	return nil
}

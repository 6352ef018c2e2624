package settlement

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
)

// Processor drains completed games whose settlement pipeline has not
// finished, typically ones completed through automatic terminal detection or
// left half-settled by a crash between stats and notification.
type Processor struct {
	settler Settler
	metrics metrics.Metrics
}

// NewProcessor creates a new Processor.
func NewProcessor(settler Settler, metrics metrics.Metrics) *Processor {
	return &Processor{
		settler: settler,
		metrics: metrics,
	}
}

// ProcessGames settles every pending game once. Each game is independent; a
// failure on one never blocks the rest.
func (p *Processor) ProcessGames(ctx context.Context) {
	log.Info("Starting settlement processing...")
	ids, err := p.settler.PendingGames()
	if err != nil {
		log.Error("Failed to list pending games", "error", err)
		return
	}
	if len(ids) == 0 {
		log.Info("No games to settle.")
		return
	}

	log.Info("Found games to settle", "count", len(ids))
	for _, id := range ids {
		p.processGame(ctx, id)
	}
	log.Info("Settlement processing finished.")
}

func (p *Processor) processGame(ctx context.Context, gameID string) {
	result, err := p.settler.Settle(ctx, gameID)
	switch {
	case errors.Is(err, ErrAlreadySettled):
		log.Debug("Game already settled. No further processing needed.", "gameID", gameID)
	case errors.Is(err, ErrNoWinner):
		// Completed but nobody flagged as winner; needs a declared outcome.
		log.Warn("Skipping game without a winner flag", "gameID", gameID)
	case err != nil:
		log.Error("Failed to settle game", "error", err, "gameID", gameID)
	default:
		log.Info("Settled game", "gameID", gameID, "winner", result.WinnerWallet, "winnerAmount", result.WinnerAmount.SOL())
	}
}

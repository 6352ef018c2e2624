package settlement

import (
	"context"
	"errors"
)

var (
	// ErrGameNotFound is returned when the game does not exist.
	ErrGameNotFound = errors.New("game not found")
	// ErrAlreadyCompleted is returned when completing a completed game.
	ErrAlreadyCompleted = errors.New("game already completed")
	// ErrNotCompleted is returned when settling or paying out a game that
	// has not reached a terminal state.
	ErrNotCompleted = errors.New("game is not completed")
	// ErrAlreadySettled is returned when the settlement pipeline already
	// ran for the game.
	ErrAlreadySettled = errors.New("game already settled")
	// ErrAlreadyPaidOut is returned on a second payout for the same game.
	ErrAlreadyPaidOut = errors.New("game already paid out")
	// ErrNoWinner is returned when no participant carries the winner flag.
	ErrNoWinner = errors.New("game has no winner marked")
)

// Settler defines the interface for the settlement lifecycle. Complete and
// Settle converge on the same idempotent pipeline: amounts, stats rollups and
// notifications run exactly once per game no matter which path fires first.
type Settler interface {
	// Complete terminates a running game with a declared outcome and
	// settles it synchronously.
	Complete(ctx context.Context, gameID, winnerWallet, loserWallet string) (*Result, error)
	// Settle runs the settlement pipeline for a game that already reached
	// a terminal state, deriving the winner from the participant flags.
	Settle(ctx context.Context, gameID string) (*Result, error)
	// Payout transfers the winner amount from escrow and records the
	// ledger row. Guarded by a unique constraint per game.
	Payout(ctx context.Context, gameID string) (*PayoutRecord, error)
	// PendingGames lists completed games whose settlement has not finished.
	PendingGames() ([]string, error)
}

package game

import (
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when a game or its state is absent.
	ErrNotFound = errors.New("game not found")
	// ErrPlayerNotInGame is returned when the caller has no participant row.
	ErrPlayerNotInGame = errors.New("player is not in this game")
	// ErrInvalidMove is returned when a supplied move fails validation
	// against the previous state.
	ErrInvalidMove = errors.New("invalid move")
)

// Store defines the interface for reading and appending game state.
type Store interface {
	// GetState returns the most recent state snapshot for a game.
	GetState(gameID string) (*StateRow, error)
	// History returns all state snapshots for a game in append order,
	// enabling replay and audit.
	History(gameID string) ([]StateRow, error)
	// UpdateState validates an optional move against the previous state,
	// appends the new state and evaluates the terminal condition. When the
	// game ends the game row is flipped to completed and the acting
	// player's winner flag is set.
	UpdateState(gameID, walletAddress string, state json.RawMessage, mv *Move) (*UpdateResult, error)
}

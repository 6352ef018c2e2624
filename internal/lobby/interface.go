package lobby

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lobby does not exist.
	ErrNotFound = errors.New("lobby not found")
	// ErrNotAcceptingPlayers is returned when a lobby is no longer waiting.
	ErrNotAcceptingPlayers = errors.New("lobby is not accepting players")
	// ErrFull is returned when a lobby is at max capacity.
	ErrFull = errors.New("lobby is full")
	// ErrAlreadyReady is returned when a paid participant re-joins.
	ErrAlreadyReady = errors.New("participant already paid and ready")
	// ErrNotInLobby is returned when the wallet has no participant row.
	ErrNotInLobby = errors.New("player is not in this lobby")
	// ErrAlreadyPaid is returned on a second payment for the same participant.
	ErrAlreadyPaid = errors.New("entry fee already paid")
	// ErrCannotCancelStarted is returned when cancelling after start.
	ErrCannotCancelStarted = errors.New("cannot cancel a started game")
	// ErrAlreadyStarted is returned when starting a lobby twice.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNotAllReady is returned when starting before every participant paid.
	ErrNotAllReady = errors.New("not all participants are ready")
	// ErrInsufficientPlayers is returned when starting with fewer than two players.
	ErrInsufficientPlayers = errors.New("at least two players are required")
)

// Manager defines the interface for the lobby and payment lifecycle.
// Every mutating operation runs as a single transaction per game.
type Manager interface {
	// Create opens a new lobby with the creator as implicit participant.
	Create(params CreateParams) (*Game, error)
	Get(lobbyID string) (*Game, []Participant, error)
	// ListOpen returns public lobbies still accepting players.
	ListOpen() ([]Game, error)
	// Invite adds a participant row in "invited" status for a wallet.
	Invite(lobbyID, walletAddress string) (*Participant, error)
	// Join adds the wallet to the lobby in "waiting" status, or promotes an
	// existing "invited" row. Payment is still required to become ready.
	Join(lobbyID, walletAddress string) (*Participant, error)
	// Pay verifies the on-chain entry fee transaction and marks the
	// participant ready. Returns the number of ready participants.
	Pay(ctx context.Context, lobbyID, walletAddress, txSignature string) (int, error)
	// Cancel removes the caller from the lobby, or tears the whole lobby
	// down when the caller is the creator. Paid participants are refunded
	// from escrow.
	Cancel(ctx context.Context, lobbyID, walletAddress string) error
	// Start transitions the lobby to in_progress and seeds the initial
	// board state for its game type.
	Start(lobbyID string) (*Game, error)
}

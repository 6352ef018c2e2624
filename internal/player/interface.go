package player

import "errors"

// ErrNotFound is returned when a wallet has no player row.
var ErrNotFound = errors.New("player not found")

// Store defines the interface for interacting with the player directory.
type Store interface {
	// Upsert creates a player on first wallet interaction or updates the
	// mutable profile fields of an existing one.
	Upsert(info Info) (*Info, error)
	Get(walletAddress string) (*Info, error)
	GetMany(walletAddresses []string) ([]Info, error)
	SetPresence(walletAddress string, online bool) error
	IsKnownPlayer(walletAddress string) bool
	Leaderboard(limit int) ([]Stats, error)
	GetStats(walletAddress string) (*Stats, error)
}

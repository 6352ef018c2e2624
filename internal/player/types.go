package player

import (
	"database/sql"
	"sync"

	"github.com/cryptoboards/cryptoboards/internal/money"
)

// store handles all database operations for the player directory.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Info represents a player in the directory. Players are keyed by wallet
// address and never hard-deleted.
type Info struct {
	WalletAddress string  `json:"wallet_address"`
	DisplayName   string  `json:"display_name"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	SMSOptIn      bool    `json:"sms_opt_in"`
	IsOnline      bool    `json:"is_online"`
	LastSeenAt    *int64  `json:"last_seen_at,omitempty"`
	CreatedAt     int64   `json:"created_at"`
}

// Stats is the per-player aggregate rollup, updated by settlement.
type Stats struct {
	WalletAddress string         `json:"wallet_address"`
	DisplayName   string         `json:"display_name"`
	GamesPlayed   int            `json:"games_played"`
	GamesWon      int            `json:"games_won"`
	TotalWinnings money.Lamports `json:"total_winnings"`
	TotalLosses   money.Lamports `json:"total_losses"`
	CurrentStreak int            `json:"current_streak"`
	BestStreak    int            `json:"best_streak"`
}

package lobby

import (
	"database/sql"
	"sync"

	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/solana"
)

// store handles all database operations for lobbies and participants.
type store struct {
	db    *sql.DB
	chain solana.Client
	mu    sync.RWMutex
}

// ParticipantStatus is the per-player status within one game.
type ParticipantStatus string

const (
	ParticipantInvited   ParticipantStatus = "invited"
	ParticipantWaiting   ParticipantStatus = "waiting"
	ParticipantReady     ParticipantStatus = "ready"
	ParticipantActive    ParticipantStatus = "active"
	ParticipantCompleted ParticipantStatus = "completed"
)

// Game is a match instance. While status is "waiting" it is a lobby.
type Game struct {
	ID               string         `json:"id"`
	GameType         game.Type      `json:"game_type"`
	Status           game.Status    `json:"status"`
	MaxPlayers       int            `json:"max_players"`
	EntryFee         money.Lamports `json:"entry_fee"`
	IsPrivate        bool           `json:"is_private"`
	CreatorWallet    string         `json:"creator_wallet"`
	SettlementStatus string         `json:"-"`
	CurrentPlayers   int            `json:"current_players"`
	CreatedAt        int64          `json:"created_at"`
	StartedAt        *int64         `json:"started_at,omitempty"`
	EndedAt          *int64         `json:"ended_at,omitempty"`
}

// Participant is the join row between a player and a game.
type Participant struct {
	GameID           string            `json:"game_id"`
	WalletAddress    string            `json:"wallet_address"`
	Status           ParticipantStatus `json:"status"`
	PaymentSignature *string           `json:"payment_signature,omitempty"`
	IsWinner         *bool             `json:"is_winner,omitempty"`
	JoinedAt         int64             `json:"joined_at"`
}

// CreateParams are the inputs for creating a lobby.
type CreateParams struct {
	CreatorWallet string         `json:"creator_wallet"`
	GameType      game.Type      `json:"game_type"`
	EntryFee      money.Lamports `json:"entry_fee"`
	MaxPlayers    int            `json:"max_players"`
	IsPrivate     bool           `json:"is_private"`
}

package settlement

import (
	"database/sql"
	"sync"

	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/notifier"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/solana"
)

// platformFeeBps is the platform cut in basis points of the total pot.
// Fixed, not configurable per game.
const platformFeeBps = 400

// Settlement pipeline states on the game row. The NONE -> PENDING
// check-and-set is the idempotency gate for the whole pipeline.
const (
	SettlementNone    = "NONE"
	SettlementPending = "PENDING"
	SettlementSettled = "SETTLED"
)

// store handles all settlement operations.
type store struct {
	db       *sql.DB
	chain    solana.Client
	players  player.Store
	notifier notifier.Notifier
	metrics  metrics.Metrics
	mu       sync.Mutex
}

// Result holds the computed amounts for a settled game.
// winnerAmount + platformFee always equals the total pot.
type Result struct {
	GameID       string         `json:"game_id"`
	WinnerWallet string         `json:"winner_wallet"`
	LoserWallet  string         `json:"loser_wallet"`
	TotalPot     money.Lamports `json:"total_pot"`
	PlatformFee  money.Lamports `json:"platform_fee"`
	WinnerAmount money.Lamports `json:"winner_amount"`
}

// PayoutRecord is the immutable ledger row for a winner payout.
type PayoutRecord struct {
	ID            string         `json:"id"`
	GameID        string         `json:"game_id"`
	WalletAddress string         `json:"wallet_address"`
	Amount        money.Lamports `json:"amount"`
	TxSignature   string         `json:"tx_signature"`
	CreatedAt     int64          `json:"created_at"`
}

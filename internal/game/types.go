package game

import (
	"database/sql"
	"encoding/json"
	"sync"
)

// store handles all database operations for game sessions.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Type enumerates the supported board games.
type Type string

const (
	TypeCheckers   Type = "checkers"
	TypeBattleship Type = "battleship"
	TypeStratego   Type = "stratego"
)

// Valid reports whether t is a known game type.
func (t Type) Valid() bool {
	switch t {
	case TypeCheckers, TypeBattleship, TypeStratego:
		return true
	}
	return false
}

// Status is the lifecycle status of a game. Transitions are monotonic:
// waiting -> in_progress -> completed. Cancelled games are hard deleted.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Side identifies one of the two sides of a board.
type Side string

const (
	SideRed   Side = "r"
	SideBlack Side = "b"
)

// Move is the optional move descriptor accompanying a state update.
type Move struct {
	FromRow int `json:"from_row"`
	FromCol int `json:"from_col"`
	ToRow   int `json:"to_row"`
	ToCol   int `json:"to_col"`
}

// StateRow is one append-only snapshot of a game's board state.
// The current state of a game is its most recent row.
type StateRow struct {
	ID        int64           `json:"id"`
	GameID    string          `json:"game_id"`
	State     json.RawMessage `json:"state"`
	CreatedAt int64           `json:"created_at"`
}

// UpdateResult describes the outcome of a state update.
type UpdateResult struct {
	State       *StateRow `json:"state"`
	GameEnded   bool      `json:"game_ended"`
	WinningSide Side      `json:"winning_side,omitempty"`
}

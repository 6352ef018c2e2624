package game

import (
	"encoding/json"
	"hash/fnv"
)

// Variant is the capability set implemented once per game type: seeding the
// initial board, validating moves and detecting the terminal condition.
type Variant interface {
	// Seed produces the initial board state for a new game.
	Seed() json.RawMessage
	// ValidateMove checks a move descriptor against the previous state.
	// A nil error accepts the move.
	ValidateMove(prev json.RawMessage, side Side, mv *Move) error
	// Evaluate inspects the current state and reports whether the game is
	// over and which side won.
	Evaluate(cur json.RawMessage) (over bool, winner Side)
}

// VariantFor selects the variant for a game type.
func VariantFor(t Type) Variant {
	switch t {
	case TypeCheckers:
		return checkersVariant{}
	default:
		return defaultVariant{gameType: t}
	}
}

// SideForPlayer derives a player's side from a hash of the wallet address.
// Known weak point: two players can hash to the same side. A stored seat
// assignment would be the fix.
func SideForPlayer(walletAddress string) Side {
	h := fnv.New32a()
	h.Write([]byte(walletAddress))
	if h.Sum32()%2 == 0 {
		return SideRed
	}
	return SideBlack
}

// defaultVariant covers game types without move validation rules yet.
// It seeds an empty setup-phase payload and never ends a game on its own;
// those games end through the explicit complete route.
type defaultVariant struct {
	gameType Type
}

func (v defaultVariant) Seed() json.RawMessage {
	payload := map[string]any{
		"game_type": v.gameType,
		"phase":     "setup",
	}
	b, _ := json.Marshal(payload)
	return b
}

func (v defaultVariant) ValidateMove(prev json.RawMessage, side Side, mv *Move) error {
	return nil
}

func (v defaultVariant) Evaluate(cur json.RawMessage) (bool, Side) {
	return false, ""
}

package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

const boardSize = 8

// CheckersState is the board payload for checkers games. Cells hold "" for
// empty, "r"/"b" for men and "R"/"B" for kings.
type CheckersState struct {
	Board [boardSize][boardSize]string `json:"board"`
	Turn  Side                         `json:"turn"`
}

type checkersVariant struct{}

// Seed builds the standard starting position: three alternating rows of
// pieces for each side on the dark squares, black at the top.
func (checkersVariant) Seed() json.RawMessage {
	var st CheckersState
	for row := 0; row < 3; row++ {
		for col := 0; col < boardSize; col++ {
			if (row+col)%2 == 1 {
				st.Board[row][col] = string(SideBlack)
			}
		}
	}
	for row := boardSize - 3; row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			if (row+col)%2 == 1 {
				st.Board[row][col] = string(SideRed)
			}
		}
	}
	st.Turn = SideRed
	b, _ := json.Marshal(st)
	return b
}

// ValidateMove performs minimal bounds, ownership and turn checks against the
// previous state. It does not enforce full checkers legality (jump chains,
// forced captures); state payloads remain client-authoritative beyond this.
func (checkersVariant) ValidateMove(prev json.RawMessage, side Side, mv *Move) error {
	if mv == nil {
		return nil
	}
	var st CheckersState
	if err := json.Unmarshal(prev, &st); err != nil {
		return fmt.Errorf("%w: previous state is not a checkers board", ErrInvalidMove)
	}
	for _, pos := range [][2]int{{mv.FromRow, mv.FromCol}, {mv.ToRow, mv.ToCol}} {
		if pos[0] < 0 || pos[0] >= boardSize || pos[1] < 0 || pos[1] >= boardSize {
			return fmt.Errorf("%w: coordinates out of board", ErrInvalidMove)
		}
	}
	piece := st.Board[mv.FromRow][mv.FromCol]
	if piece == "" {
		return fmt.Errorf("%w: no piece at source square", ErrInvalidMove)
	}
	if pieceSide(piece) != side {
		return fmt.Errorf("%w: piece belongs to the other side", ErrInvalidMove)
	}
	if st.Turn != "" && st.Turn != side {
		return fmt.Errorf("%w: not your turn", ErrInvalidMove)
	}
	return nil
}

// Evaluate counts remaining pieces per side; when one side has none, the
// other side has won.
func (checkersVariant) Evaluate(cur json.RawMessage) (bool, Side) {
	var st CheckersState
	if err := json.Unmarshal(cur, &st); err != nil {
		return false, ""
	}
	var red, black int
	for row := 0; row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			switch pieceSide(st.Board[row][col]) {
			case SideRed:
				red++
			case SideBlack:
				black++
			}
		}
	}
	if red == 0 && black > 0 {
		return true, SideBlack
	}
	if black == 0 && red > 0 {
		return true, SideRed
	}
	return false, ""
}

func pieceSide(piece string) Side {
	switch strings.ToLower(piece) {
	case "r":
		return SideRed
	case "b":
		return SideBlack
	}
	return ""
}

package game

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a new game session Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

// GetState returns the most recent state row for a game.
func (s *store) GetState(gameID string) (*StateRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, game_id, state_json, created_at
		FROM game_states
		WHERE game_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, gameID)
	st, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return st, nil
}

// History returns every state snapshot for a game in append order.
func (s *store) History(gameID string) ([]StateRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, game_id, state_json, created_at
		FROM game_states
		WHERE game_id = ?
		ORDER BY id ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state history: %w", err)
	}
	defer rows.Close()

	history := []StateRow{}
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *st)
	}
	return history, rows.Err()
}

// UpdateState appends a new state snapshot. States are never mutated in
// place. Terminal detection and the status flip are guarded by a
// check-and-set on games.status so racing appends cannot settle twice.
func (s *store) UpdateState(gameID, walletAddress string, state json.RawMessage, mv *Move) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var gameType Type
	var status Status
	err = tx.QueryRow("SELECT game_type, status FROM games WHERE id = ?", gameID).Scan(&gameType, &status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	var participantStatus string
	err = tx.QueryRow(`
		SELECT status FROM game_participants WHERE game_id = ? AND wallet_address = ?
	`, gameID, walletAddress).Scan(&participantStatus)
	if err == sql.ErrNoRows {
		return nil, ErrPlayerNotInGame
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	variant := VariantFor(gameType)
	if mv != nil {
		prev, err := latestState(tx, gameID)
		if err != nil {
			return nil, err
		}
		if err := variant.ValidateMove(prev, SideForPlayer(walletAddress), mv); err != nil {
			return nil, err
		}
	}

	now := time.Now().Unix()
	res, err := tx.Exec(`
		INSERT INTO game_states (game_id, state_json, created_at) VALUES (?, ?, ?)
	`, gameID, string(state), now)
	if err != nil {
		return nil, fmt.Errorf("failed to append game state: %w", err)
	}
	stateID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{
		State: &StateRow{ID: stateID, GameID: gameID, State: state, CreatedAt: now},
	}

	if status == StatusInProgress {
		if over, winner := variant.Evaluate(state); over {
			ended, err := s.markCompleted(tx, gameID, walletAddress)
			if err != nil {
				return nil, err
			}
			if ended {
				result.GameEnded = true
				result.WinningSide = winner
				log.Info("Game reached terminal state", "gameID", gameID, "winningSide", winner, "actingPlayer", walletAddress)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// markCompleted flips the game to completed and stamps the winner flags.
// Returns false when another writer already completed the game.
//
// NOTE: the winner flag is set on the player who made the finishing move,
// not on the winning side. Latent bug pending clarification.
func (s *store) markCompleted(tx *sql.Tx, gameID, actingWallet string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE games SET status = ?, ended_at = ? WHERE id = ? AND status = ?
	`, StatusCompleted, time.Now().Unix(), gameID, StatusInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to complete game: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	_, err = tx.Exec(`
		UPDATE game_participants
		SET status = 'completed',
		    is_winner = CASE WHEN wallet_address = ? THEN 1 ELSE 0 END
		WHERE game_id = ?
	`, actingWallet, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to mark winners: %w", err)
	}
	return true, nil
}

func latestState(tx *sql.Tx, gameID string) (json.RawMessage, error) {
	var stateJSON string
	err := tx.QueryRow(`
		SELECT state_json FROM game_states WHERE game_id = ? ORDER BY id DESC LIMIT 1
	`, gameID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load previous state: %w", err)
	}
	return json.RawMessage(stateJSON), nil
}

// scanState is a helper to scan a single state row.
func scanState(scanner interface{ Scan(...any) error }) (*StateRow, error) {
	var st StateRow
	var stateJSON string
	if err := scanner.Scan(&st.ID, &st.GameID, &stateJSON, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.State = json.RawMessage(stateJSON)
	return &st, nil
}

package lobby

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/solana"
	"github.com/google/uuid"
)

// New creates a new lobby Manager. The chain client is used to verify entry
// fee payments and to refund paid participants on cancel.
func New(db *sql.DB, chain solana.Client) Manager {
	return &store{
		db:    db,
		chain: chain,
	}
}

// Create opens a new lobby in "waiting" status with the creator as its first
// participant.
func (s *store) Create(params CreateParams) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !params.GameType.Valid() {
		return nil, fmt.Errorf("unknown game type %q", params.GameType)
	}
	if params.EntryFee < 0 {
		return nil, fmt.Errorf("entry fee cannot be negative")
	}
	if params.MaxPlayers < 2 {
		params.MaxPlayers = 2
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.New().String()
	now := time.Now().Unix()
	_, err = tx.Exec(`
		INSERT INTO games (id, game_type, status, max_players, entry_fee_lamports, is_private, creator_wallet, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, params.GameType, game.StatusWaiting, params.MaxPlayers, params.EntryFee, params.IsPrivate, params.CreatorWallet, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO game_participants (game_id, wallet_address, status, joined_at)
		VALUES (?, ?, ?, ?)
	`, id, params.CreatorWallet, ParticipantWaiting, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add creator participant: %w", err)
	}

	lobby, err := getGame(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Info("Lobby created", "lobbyID", id, "gameType", params.GameType, "entryFee", params.EntryFee.SOL(), "creator", params.CreatorWallet)
	return lobby, nil
}

// Get returns a lobby and its participants.
func (s *store) Get(lobbyID string) (*Game, []Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := getGame(s.db, lobbyID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := listParticipants(s.db, lobbyID)
	if err != nil {
		return nil, nil, err
	}
	return g, participants, nil
}

// ListOpen returns all public lobbies still in waiting status.
func (s *store) ListOpen() ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT g.id, g.game_type, g.status, g.max_players, g.entry_fee_lamports, g.is_private,
			g.creator_wallet, g.settlement_status, g.created_at, g.started_at, g.ended_at,
			(SELECT COUNT(*) FROM game_participants gp WHERE gp.game_id = g.id) AS current_players
		FROM games g
		WHERE g.status = ? AND g.is_private = 0
		ORDER BY g.created_at DESC
	`, game.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}
	defer rows.Close()

	lobbies := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		lobbies = append(lobbies, *g)
	}
	return lobbies, rows.Err()
}

// Invite adds an "invited" participant row, typically for private lobbies.
func (s *store) Invite(lobbyID, walletAddress string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := getGame(tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusWaiting {
		return nil, ErrNotAcceptingPlayers
	}
	if g.CurrentPlayers >= g.MaxPlayers {
		return nil, ErrFull
	}

	now := time.Now().Unix()
	_, err = tx.Exec(`
		INSERT INTO game_participants (game_id, wallet_address, status, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id, wallet_address) DO NOTHING
	`, lobbyID, walletAddress, ParticipantInvited, now)
	if err != nil {
		return nil, fmt.Errorf("failed to invite player: %w", err)
	}

	p, err := getParticipant(tx, lobbyID, walletAddress)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// Join adds the wallet to the lobby, or promotes an existing "invited" row to
// "waiting". Re-joining while "waiting" is a no-op; re-joining once "ready"
// fails so a replayed request cannot disturb a paid participant.
func (s *store) Join(lobbyID, walletAddress string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := getGame(tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusWaiting {
		return nil, ErrNotAcceptingPlayers
	}

	existing, err := getParticipant(tx, lobbyID, walletAddress)
	if err != nil && err != ErrNotInLobby {
		return nil, err
	}

	now := time.Now().Unix()
	switch {
	case existing == nil:
		if g.CurrentPlayers >= g.MaxPlayers {
			return nil, ErrFull
		}
		_, err = tx.Exec(`
			INSERT INTO game_participants (game_id, wallet_address, status, joined_at)
			VALUES (?, ?, ?, ?)
		`, lobbyID, walletAddress, ParticipantWaiting, now)
		if err != nil {
			return nil, fmt.Errorf("failed to join lobby: %w", err)
		}
	case existing.Status == ParticipantInvited:
		_, err = tx.Exec(`
			UPDATE game_participants SET status = ?, joined_at = ? WHERE game_id = ? AND wallet_address = ?
		`, ParticipantWaiting, now, lobbyID, walletAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to accept invite: %w", err)
		}
	case existing.Status == ParticipantReady:
		return nil, ErrAlreadyReady
	default:
		// Already waiting; joining again changes nothing.
	}

	p, err := getParticipant(tx, lobbyID, walletAddress)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Info("Player joined lobby", "lobbyID", lobbyID, "wallet", walletAddress, "status", p.Status)
	return p, nil
}

// Pay verifies the entry fee transaction signature on chain and marks the
// participant ready. Returns the number of ready participants.
func (s *store) Pay(ctx context.Context, lobbyID, walletAddress, txSignature string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the participant before touching the chain so a stranger's
	// request never costs an RPC round trip.
	p, err := getParticipant(s.db, lobbyID, walletAddress)
	if err != nil {
		return 0, err
	}
	if p.Status == ParticipantReady {
		return 0, ErrAlreadyPaid
	}

	if err := s.chain.VerifySignature(ctx, txSignature); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Re-check under the transaction; the guard keeps a replayed payment
	// from flipping an already ready row.
	res, err := tx.Exec(`
		UPDATE game_participants SET status = ?, payment_signature = ?
		WHERE game_id = ? AND wallet_address = ? AND status != ?
	`, ParticipantReady, txSignature, lobbyID, walletAddress, ParticipantReady)
	if err != nil {
		return 0, fmt.Errorf("failed to mark participant ready: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrAlreadyPaid
	}

	var readyCount int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM game_participants WHERE game_id = ? AND status = ?
	`, lobbyID, ParticipantReady).Scan(&readyCount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Info("Entry fee paid", "lobbyID", lobbyID, "wallet", walletAddress, "readyCount", readyCount)
	return readyCount, nil
}

// Cancel tears down the lobby when called by the creator, refunding every
// paid participant; called by anyone else it removes just that participant.
// Refunds run outside the teardown transaction: each one commits its own
// ledger row, so a failure partway through never forgets a transfer that
// already hit the chain, and a retried cancel skips the wallets it finds in
// the ledger.
func (s *store) Cancel(ctx context.Context, lobbyID, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := getGame(s.db, lobbyID)
	if err != nil {
		return err
	}
	if g.Status != game.StatusWaiting {
		return ErrCannotCancelStarted
	}

	if g.CreatorWallet == walletAddress {
		return s.cancelLobby(ctx, g)
	}
	return s.leaveLobby(ctx, g, walletAddress)
}

// cancelLobby refunds every ready participant, then hard-deletes the
// participants, states and the game row itself. The deletes only run once
// every refund is in the ledger.
func (s *store) cancelLobby(ctx context.Context, g *Game) error {
	participants, err := listParticipants(s.db, g.ID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if p.Status != ParticipantReady {
			continue
		}
		if err := s.refund(ctx, g, p.WalletAddress); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		"DELETE FROM game_participants WHERE game_id = ?",
		"DELETE FROM game_states WHERE game_id = ?",
		"DELETE FROM games WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, g.ID); err != nil {
			return fmt.Errorf("failed to delete lobby: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("Lobby cancelled by creator", "lobbyID", g.ID, "participants", len(participants))
	return nil
}

// leaveLobby removes one non-creator participant, refunding them if paid.
func (s *store) leaveLobby(ctx context.Context, g *Game, walletAddress string) error {
	p, err := getParticipant(s.db, g.ID, walletAddress)
	if err != nil {
		return err
	}
	if p.Status == ParticipantReady {
		if err := s.refund(ctx, g, walletAddress); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec("DELETE FROM game_participants WHERE game_id = ? AND wallet_address = ?", g.ID, walletAddress); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	log.Info("Player left lobby", "lobbyID", g.ID, "wallet", walletAddress, "refunded", p.Status == ParticipantReady)
	return nil
}

// refund sends the entry fee back from escrow. The ledger row is claimed
// first, with an empty signature, and committed before the transfer runs:
// the UNIQUE(game_id, wallet_address) constraint then makes a replayed
// cancel skip this wallet instead of transferring again. A transfer the RPC
// reports as failed releases the claim; a crash mid-transfer leaves the
// unsigned row behind for reconciliation rather than risking a double send.
func (s *store) refund(ctx context.Context, g *Game, walletAddress string) error {
	id := uuid.New().String()
	res, err := s.db.Exec(`
		INSERT INTO refunds (id, game_id, wallet_address, amount_lamports, tx_signature, created_at)
		VALUES (?, ?, ?, ?, '', ?)
		ON CONFLICT(game_id, wallet_address) DO NOTHING
	`, id, g.ID, walletAddress, g.EntryFee, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to claim refund: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Warn("Refund already in ledger, skipping transfer", "lobbyID", g.ID, "wallet", walletAddress)
		return nil
	}

	sig, err := s.chain.Transfer(ctx, walletAddress, g.EntryFee)
	if err != nil {
		if _, delErr := s.db.Exec("DELETE FROM refunds WHERE id = ?", id); delErr != nil {
			log.Error("Failed to release refund claim", "error", delErr, "lobbyID", g.ID, "wallet", walletAddress)
		}
		return fmt.Errorf("refund transfer failed for %s: %w", walletAddress, err)
	}
	if _, err := s.db.Exec("UPDATE refunds SET tx_signature = ? WHERE id = ?", sig, id); err != nil {
		return fmt.Errorf("failed to record refund signature: %w", err)
	}
	return nil
}

// Start flips the lobby to in_progress, marks every participant active and
// seeds the initial board state for the game type.
func (s *store) Start(lobbyID string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := getGame(tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if g.CurrentPlayers < 2 {
		return nil, ErrInsufficientPlayers
	}

	var notReady int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM game_participants WHERE game_id = ? AND status != ?
	`, lobbyID, ParticipantReady).Scan(&notReady)
	if err != nil {
		return nil, err
	}
	if notReady > 0 {
		return nil, ErrNotAllReady
	}

	now := time.Now().Unix()
	res, err := tx.Exec(`
		UPDATE games SET status = ?, started_at = ? WHERE id = ? AND status = ?
	`, game.StatusInProgress, now, lobbyID, game.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyStarted
	}

	if _, err := tx.Exec(`
		UPDATE game_participants SET status = ? WHERE game_id = ?
	`, ParticipantActive, lobbyID); err != nil {
		return nil, fmt.Errorf("failed to activate participants: %w", err)
	}

	seed := game.VariantFor(g.GameType).Seed()
	if _, err := tx.Exec(`
		INSERT INTO game_states (game_id, state_json, created_at) VALUES (?, ?, ?)
	`, lobbyID, string(seed), now); err != nil {
		return nil, fmt.Errorf("failed to seed initial state: %w", err)
	}

	started, err := getGame(tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Info("Game started", "lobbyID", lobbyID, "gameType", g.GameType, "players", g.CurrentPlayers)
	return started, nil
}

// queryer lets the helpers run against either the pool or a transaction.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func getGame(q queryer, id string) (*Game, error) {
	row := q.QueryRow(`
		SELECT g.id, g.game_type, g.status, g.max_players, g.entry_fee_lamports, g.is_private,
			g.creator_wallet, g.settlement_status, g.created_at, g.started_at, g.ended_at,
			(SELECT COUNT(*) FROM game_participants gp WHERE gp.game_id = g.id) AS current_players
		FROM games g
		WHERE g.id = ?
	`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return g, nil
}

func getParticipant(q queryer, gameID, walletAddress string) (*Participant, error) {
	row := q.QueryRow(`
		SELECT game_id, wallet_address, status, payment_signature, is_winner, joined_at
		FROM game_participants
		WHERE game_id = ? AND wallet_address = ?
	`, gameID, walletAddress)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotInLobby
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	return p, nil
}

func listParticipants(q queryer, gameID string) ([]Participant, error) {
	rows, err := q.Query(`
		SELECT game_id, wallet_address, status, payment_signature, is_winner, joined_at
		FROM game_participants
		WHERE game_id = ?
		ORDER BY joined_at ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

func scanGame(scanner interface{ Scan(...any) error }) (*Game, error) {
	var g Game
	var startedAt, endedAt sql.NullInt64
	err := scanner.Scan(&g.ID, &g.GameType, &g.Status, &g.MaxPlayers, &g.EntryFee, &g.IsPrivate,
		&g.CreatorWallet, &g.SettlementStatus, &g.CreatedAt, &startedAt, &endedAt, &g.CurrentPlayers)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		g.StartedAt = &startedAt.Int64
	}
	if endedAt.Valid {
		g.EndedAt = &endedAt.Int64
	}
	return &g, nil
}

func scanParticipant(scanner interface{ Scan(...any) error }) (*Participant, error) {
	var p Participant
	var sig sql.NullString
	var winner sql.NullBool
	err := scanner.Scan(&p.GameID, &p.WalletAddress, &p.Status, &sig, &winner, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	if sig.Valid {
		p.PaymentSignature = &sig.String
	}
	if winner.Valid {
		p.IsWinner = &winner.Bool
	}
	return &p, nil
}

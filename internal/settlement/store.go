package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/notifier"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/solana"
	"github.com/google/uuid"
)

// New creates a new settlement Settler. The chain client moves escrow funds
// for payouts; the notifier fan-out runs best-effort after each settlement.
func New(db *sql.DB, chain solana.Client, players player.Store, n notifier.Notifier, m metrics.Metrics) Settler {
	return &store{
		db:       db,
		chain:    chain,
		players:  players,
		notifier: n,
		metrics:  m,
	}
}

// gameRow is the slice of the game row settlement needs.
type gameRow struct {
	id               string
	gameType         game.Type
	status           game.Status
	entryFee         money.Lamports
	settlementStatus string
}

// Complete terminates a game with a declared winner and settles it. The
// status check-and-set rejects a second completion; the settlement pipeline
// behind it is additionally gated so the automatic detection path and this
// one cannot both pay stats out.
func (s *store) Complete(ctx context.Context, gameID, winnerWallet, loserWallet string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := getGame(tx, gameID)
	if err != nil {
		return nil, err
	}

	res, err := tx.Exec(`
		UPDATE games SET status = ?, ended_at = ? WHERE id = ? AND status != ?
	`, game.StatusCompleted, time.Now().Unix(), gameID, game.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to complete game: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyCompleted
	}

	// Winner flags follow the declared outcome, by wallet comparison.
	_, err = tx.Exec(`
		UPDATE game_participants
		SET status = 'completed',
		    is_winner = CASE WHEN wallet_address = ? THEN 1 ELSE 0 END
		WHERE game_id = ?
	`, winnerWallet, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark winner: %w", err)
	}

	result, err := s.settle(tx, g, winnerWallet, loserWallet)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.IncGamesCompleted()
	s.finalize(ctx, g, result)
	s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	log.Info("Game completed and settled", "gameID", gameID, "winner", winnerWallet, "winnerAmount", result.WinnerAmount.SOL())
	return result, nil
}

// Settle runs the pipeline for a game that already reached its terminal
// state, typically through automatic detection on a state append. The winner
// is derived from the participant flags. Safe to call repeatedly: a settled
// game fails ErrAlreadySettled, a half-finished one resumes at notification.
func (s *store) Settle(ctx context.Context, gameID string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := getGame(tx, gameID)
	if err != nil {
		return nil, err
	}
	if g.status != game.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if g.settlementStatus == SettlementSettled {
		return nil, ErrAlreadySettled
	}

	winnerWallet, loserWallet, err := winnerLoser(tx, gameID)
	if err != nil {
		return nil, err
	}

	if g.settlementStatus == SettlementPending {
		// Stats already ran; only the notification step is outstanding.
		// Release the transaction before finalize touches the pool.
		tx.Rollback()
		result := computeResult(g, winnerWallet, loserWallet)
		s.finalize(ctx, g, result)
		s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
		return result, nil
	}

	result, err := s.settle(tx, g, winnerWallet, loserWallet)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.finalize(ctx, g, result)
	s.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	log.Info("Detected game settled", "gameID", gameID, "winner", winnerWallet)
	return result, nil
}

// Payout transfers the winner amount from escrow and records the ledger row.
// The pot is recomputed from the live participant count; the UNIQUE(game_id)
// constraint on payouts keeps a replay from paying twice.
func (s *store) Payout(ctx context.Context, gameID string) (*PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := getGame(s.db, gameID)
	if err != nil {
		return nil, err
	}
	if g.status != game.StatusCompleted {
		return nil, ErrNotCompleted
	}

	winnerWallet, _, err := winnerLoser(s.db, gameID)
	if err != nil {
		return nil, err
	}

	var participants int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM game_participants WHERE game_id = ?
	`, gameID).Scan(&participants)
	if err != nil {
		return nil, err
	}
	pot := g.entryFee * money.Lamports(participants)
	fee := pot * platformFeeBps / 10_000
	amount := pot - fee

	var existing int
	err = s.db.QueryRow("SELECT COUNT(*) FROM payouts WHERE game_id = ?", gameID).Scan(&existing)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyPaidOut
	}

	record := &PayoutRecord{
		ID:            uuid.New().String(),
		GameID:        gameID,
		WalletAddress: winnerWallet,
		Amount:        amount,
		CreatedAt:     time.Now().Unix(),
	}
	// Claim the ledger row before the transfer runs. The UNIQUE(game_id)
	// constraint makes the claim the idempotency gate; a crash mid-transfer
	// leaves the unsigned row for reconciliation instead of allowing a
	// second send on retry. A transfer the RPC reports as failed releases
	// the claim.
	_, err = s.db.Exec(`
		INSERT INTO payouts (id, game_id, wallet_address, amount_lamports, tx_signature, created_at)
		VALUES (?, ?, ?, ?, '', ?)
	`, record.ID, record.GameID, record.WalletAddress, record.Amount, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to claim payout: %w", err)
	}

	sig, err := s.chain.Transfer(ctx, winnerWallet, amount)
	if err != nil {
		if _, delErr := s.db.Exec("DELETE FROM payouts WHERE id = ?", record.ID); delErr != nil {
			log.Error("Failed to release payout claim", "error", delErr, "gameID", gameID)
		}
		return nil, fmt.Errorf("payout transfer failed: %w", err)
	}
	record.TxSignature = sig
	if _, err := s.db.Exec("UPDATE payouts SET tx_signature = ? WHERE id = ?", sig, record.ID); err != nil {
		return nil, fmt.Errorf("failed to record payout signature: %w", err)
	}

	log.Info("Winner paid out", "gameID", gameID, "wallet", winnerWallet, "amount", amount.SOL(), "signature", sig)
	return record, nil
}

// PendingGames lists completed games whose settlement pipeline is not done.
func (s *store) PendingGames() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM games WHERE status = ? AND settlement_status != ?
	`, game.StatusCompleted, SettlementSettled)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending games: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// settle runs the amounts and stats half of the pipeline inside the caller's
// transaction. The NONE -> PENDING check-and-set is the single idempotency
// gate shared by both settlement paths.
func (s *store) settle(tx *sql.Tx, g *gameRow, winnerWallet, loserWallet string) (*Result, error) {
	res, err := tx.Exec(`
		UPDATE games SET settlement_status = ? WHERE id = ? AND settlement_status = ?
	`, SettlementPending, g.id, SettlementNone)
	if err != nil {
		return nil, fmt.Errorf("failed to claim settlement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadySettled
	}

	result := computeResult(g, winnerWallet, loserWallet)
	now := time.Now().Unix()

	// One signed ledger row per player.
	for _, row := range []struct {
		wallet string
		result string
		amount money.Lamports
	}{
		{winnerWallet, "win", result.WinnerAmount},
		{loserWallet, "loss", -g.entryFee},
	} {
		_, err = tx.Exec(`
			INSERT INTO game_stats (id, game_id, wallet_address, result, amount_lamports, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), g.id, row.wallet, row.result, row.amount, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record game stats: %w", err)
		}
	}

	if err := upsertPlayerStats(tx, winnerWallet, true, result.WinnerAmount, now); err != nil {
		return nil, err
	}
	if err := upsertPlayerStats(tx, loserWallet, false, g.entryFee, now); err != nil {
		return nil, err
	}
	return result, nil
}

// finalize runs the post-commit half: outcome notifications and the flip to
// SETTLED. Notification failures are logged and swallowed, never unwound.
func (s *store) finalize(ctx context.Context, g *gameRow, result *Result) {
	entryFee := result.TotalPot / 2

	infos, err := s.players.GetMany([]string{result.WinnerWallet, result.LoserWallet})
	if err != nil {
		log.Error("Failed to load players for notification", "error", err, "gameID", g.id)
	}
	byWallet := make(map[string]player.Info, len(infos))
	names := make(map[string]string, len(infos))
	for _, info := range infos {
		byWallet[info.WalletAddress] = info
		names[info.WalletAddress] = info.DisplayName
	}

	for _, wallet := range []string{result.WinnerWallet, result.LoserWallet} {
		info, ok := byWallet[wallet]
		if !ok {
			continue
		}
		won := wallet == result.WinnerWallet
		opponent := result.WinnerWallet
		amount := entryFee
		if won {
			opponent = result.LoserWallet
			amount = result.WinnerAmount
		}
		if name, ok := names[opponent]; ok {
			opponent = name
		}
		s.notifier.SendGameOutcome(ctx, info, notifier.Outcome{
			GameID:   g.id,
			GameType: string(g.gameType),
			Won:      won,
			Amount:   amount,
			Opponent: opponent,
		})
	}

	s.notifier.SendSettlementSummary(ctx, notifier.Settlement{
		GameID:       g.id,
		GameType:     string(g.gameType),
		WinnerWallet: result.WinnerWallet,
		LoserWallet:  result.LoserWallet,
		TotalPot:     result.TotalPot,
		PlatformFee:  result.PlatformFee,
		WinnerAmount: result.WinnerAmount,
	})

	_, err = s.db.Exec(`
		UPDATE games SET settlement_status = ? WHERE id = ? AND settlement_status = ?
	`, SettlementSettled, g.id, SettlementPending)
	if err != nil {
		log.Error("Failed to mark game settled", "error", err, "gameID", g.id)
		return
	}
	s.metrics.IncSettlements()
}

// computeResult derives the pot split. The fee is basis points with
// truncating division and the winner gets the remainder, so
// winnerAmount + platformFee == entryFee*2 exactly.
func computeResult(g *gameRow, winnerWallet, loserWallet string) *Result {
	pot := g.entryFee * 2
	fee := pot * platformFeeBps / 10_000
	return &Result{
		GameID:       g.id,
		WinnerWallet: winnerWallet,
		LoserWallet:  loserWallet,
		TotalPot:     pot,
		PlatformFee:  fee,
		WinnerAmount: pot - fee,
	}
}

func upsertPlayerStats(tx *sql.Tx, wallet string, won bool, amount money.Lamports, now int64) error {
	var played, wins, streak, best int
	var winnings, losses money.Lamports
	err := tx.QueryRow(`
		SELECT games_played, games_won, total_winnings_lamports, total_losses_lamports, current_streak, best_streak
		FROM player_stats WHERE wallet_address = ?
	`, wallet).Scan(&played, &wins, &winnings, &losses, &streak, &best)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to load player stats: %w", err)
	}

	played++
	if won {
		wins++
		winnings += amount
		streak++
		if streak > best {
			best = streak
		}
	} else {
		losses += amount
		streak = 0
	}

	_, err = tx.Exec(`
		INSERT INTO player_stats (wallet_address, games_played, games_won, total_winnings_lamports, total_losses_lamports, current_streak, best_streak, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			games_played = excluded.games_played,
			games_won = excluded.games_won,
			total_winnings_lamports = excluded.total_winnings_lamports,
			total_losses_lamports = excluded.total_losses_lamports,
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			updated_at = excluded.updated_at
	`, wallet, played, wins, winnings, losses, streak, best, now)
	if err != nil {
		return fmt.Errorf("failed to upsert player stats: %w", err)
	}
	return nil
}

// queryer lets the helpers run against either the pool or a transaction.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func getGame(q queryer, id string) (*gameRow, error) {
	var g gameRow
	err := q.QueryRow(`
		SELECT id, game_type, status, entry_fee_lamports, settlement_status FROM games WHERE id = ?
	`, id).Scan(&g.id, &g.gameType, &g.status, &g.entryFee, &g.settlementStatus)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return &g, nil
}

// winnerLoser reads the participant winner flags. A game can only settle
// once exactly one participant carries the flag.
func winnerLoser(q queryer, gameID string) (string, string, error) {
	rows, err := q.Query(`
		SELECT wallet_address, COALESCE(is_winner, 0) FROM game_participants WHERE game_id = ?
	`, gameID)
	if err != nil {
		return "", "", fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	var winner, loser string
	for rows.Next() {
		var wallet string
		var isWinner bool
		if err := rows.Scan(&wallet, &isWinner); err != nil {
			return "", "", err
		}
		if isWinner {
			winner = wallet
		} else {
			loser = wallet
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", err
	}
	if winner == "" {
		return "", "", ErrNoWinner
	}
	return winner, loser, nil
}

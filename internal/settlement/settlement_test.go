package settlement_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/cryptoboards/cryptoboards/internal/database"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/notifier"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/settlement"
	"github.com/cryptoboards/cryptoboards/internal/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	settler  settlement.Settler
	players  player.Store
	chain    *solana.Mock
	notifier *notifier.Mock
	metrics  *metrics.Mock
	db       *sql.DB
}

func setupTestDB(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	players := player.New(db)
	for _, w := range []string{"alice", "bob"} {
		_, err := players.Upsert(player.Info{WalletAddress: w, DisplayName: "name-" + w})
		require.NoError(t, err)
	}

	env := &testEnv{
		players:  players,
		chain:    solana.NewMock(),
		notifier: notifier.NewMock(),
		metrics:  metrics.NewMock(),
		db:       db,
	}
	env.settler = settlement.New(db, env.chain, players, env.notifier, env.metrics)
	return env, dbTeardown
}

// startedGame runs the full lobby lifecycle so the game under settlement is
// a real in_progress game with two paid participants.
func startedGame(t *testing.T, env *testEnv, entryFee string) string {
	t.Helper()

	fee, err := money.ParseSOL(entryFee)
	require.NoError(t, err)

	mgr := lobby.New(env.db, env.chain)
	g, err := mgr.Create(lobby.CreateParams{
		CreatorWallet: "alice",
		GameType:      game.TypeCheckers,
		EntryFee:      fee,
		MaxPlayers:    2,
	})
	require.NoError(t, err)

	_, err = mgr.Join(g.ID, "bob")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = mgr.Pay(ctx, g.ID, "alice", "sig-alice")
	require.NoError(t, err)
	_, err = mgr.Pay(ctx, g.ID, "bob", "sig-bob")
	require.NoError(t, err)
	_, err = mgr.Start(g.ID)
	require.NoError(t, err)
	return g.ID
}

func TestComplete(t *testing.T) {
	env, teardown := setupTestDB(t)
	defer teardown()
	gameID := startedGame(t, env, "1.0")

	result, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	// 2.0 SOL pot, 4% fee, exact split.
	assert.Equal(t, 2*money.LamportsPerSOL, result.TotalPot)
	assert.Equal(t, money.Lamports(80_000_000), result.PlatformFee)
	assert.Equal(t, money.Lamports(1_920_000_000), result.WinnerAmount)
	assert.Equal(t, result.TotalPot, result.WinnerAmount+result.PlatformFee)

	var status, settlementStatus string
	err = env.db.QueryRow("SELECT status, settlement_status FROM games WHERE id = ?", gameID).Scan(&status, &settlementStatus)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
	assert.Equal(t, "SETTLED", settlementStatus)

	var isWinner bool
	err = env.db.QueryRow("SELECT is_winner FROM game_participants WHERE game_id = ? AND wallet_address = ?", gameID, "alice").Scan(&isWinner)
	require.NoError(t, err)
	assert.True(t, isWinner)

	assert.Equal(t, 1, env.metrics.SettlementsCount())
}

func TestCompleteRecordsStats(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	var winAmount, lossAmount money.Lamports
	err = env.db.QueryRow("SELECT amount_lamports FROM game_stats WHERE game_id = ? AND result = 'win'", gameID).Scan(&winAmount)
	require.NoError(t, err)
	err = env.db.QueryRow("SELECT amount_lamports FROM game_stats WHERE game_id = ? AND result = 'loss'", gameID).Scan(&lossAmount)
	require.NoError(t, err)
	assert.Equal(t, money.Lamports(1_920_000_000), winAmount)
	assert.Equal(t, -money.LamportsPerSOL, lossAmount, "loser row carries the negative entry fee")

	winnerStats, err := env.players.GetStats("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, winnerStats.GamesPlayed)
	assert.Equal(t, 1, winnerStats.GamesWon)
	assert.Equal(t, money.Lamports(1_920_000_000), winnerStats.TotalWinnings)
	assert.Equal(t, 1, winnerStats.CurrentStreak)
	assert.Equal(t, 1, winnerStats.BestStreak)

	loserStats, err := env.players.GetStats("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, loserStats.GamesPlayed)
	assert.Equal(t, 0, loserStats.GamesWon)
	assert.Equal(t, money.LamportsPerSOL, loserStats.TotalLosses)
	assert.Equal(t, 0, loserStats.CurrentStreak)
}

func TestCompleteNotifiesBothPlayers(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	require.Len(t, env.notifier.GameOutcomeCalls, 2)
	winnerCall := env.notifier.GameOutcomeCalls[0]
	assert.Equal(t, "alice", winnerCall.To.WalletAddress)
	assert.True(t, winnerCall.Outcome.Won)
	assert.Equal(t, money.Lamports(1_920_000_000), winnerCall.Outcome.Amount)
	assert.Equal(t, "name-bob", winnerCall.Outcome.Opponent)

	loserCall := env.notifier.GameOutcomeCalls[1]
	assert.Equal(t, "bob", loserCall.To.WalletAddress)
	assert.False(t, loserCall.Outcome.Won)
	assert.Equal(t, money.LamportsPerSOL, loserCall.Outcome.Amount)

	require.Len(t, env.notifier.SettlementCalls, 1)
	assert.Equal(t, 2*money.LamportsPerSOL, env.notifier.SettlementCalls[0].TotalPot)
}

func TestCompleteTwiceFails(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	_, err = env.settler.Complete(context.Background(), gameID, "bob", "alice")
	assert.ErrorIs(t, err, settlement.ErrAlreadyCompleted)

	// The stats rolled up exactly once.
	stats, err := env.players.GetStats("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
}

func TestCompleteUnknownGame(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)

	_, err := env.settler.Complete(context.Background(), "no-such-game", "alice", "bob")
	assert.ErrorIs(t, err, settlement.ErrGameNotFound)
}

func TestCompleteNotifierFailureDoesNotAbort(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	env.notifier.SendGameOutcomeFunc = func(to player.Info, outcome notifier.Outcome) error {
		return assert.AnError
	}

	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err, "notification failures must not abort settlement")
}

// markDetectedTerminal mimics the automatic terminal detection path: the game
// is completed with the acting player's winner flag set, settlement untouched.
func markDetectedTerminal(t *testing.T, db *sql.DB, gameID, winnerWallet string) {
	t.Helper()
	_, err := db.Exec("UPDATE games SET status = 'completed', ended_at = 1 WHERE id = ?", gameID)
	require.NoError(t, err)
	_, err = db.Exec(`
		UPDATE game_participants
		SET status = 'completed', is_winner = CASE WHEN wallet_address = ? THEN 1 ELSE 0 END
		WHERE game_id = ?
	`, winnerWallet, gameID)
	require.NoError(t, err)
}

func TestSettleDetectedGame(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "0.5")
	markDetectedTerminal(t, env.db, gameID, "bob")

	result, err := env.settler.Settle(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "bob", result.WinnerWallet)
	assert.Equal(t, "alice", result.LoserWallet)
	assert.Equal(t, money.Lamports(1_000_000_000), result.TotalPot)
	assert.Equal(t, money.Lamports(40_000_000), result.PlatformFee)
	assert.Equal(t, money.Lamports(960_000_000), result.WinnerAmount)

	_, err = env.settler.Settle(context.Background(), gameID)
	assert.ErrorIs(t, err, settlement.ErrAlreadySettled)
}

func TestSettleRequiresCompletedGame(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	_, err := env.settler.Settle(context.Background(), gameID)
	assert.ErrorIs(t, err, settlement.ErrNotCompleted)
}

func TestSettleWithoutWinnerFlag(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")
	_, err := env.db.Exec("UPDATE games SET status = 'completed' WHERE id = ?", gameID)
	require.NoError(t, err)

	_, err = env.settler.Settle(context.Background(), gameID)
	assert.ErrorIs(t, err, settlement.ErrNoWinner)
}

func TestPayout(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")
	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	record, err := env.settler.Payout(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "alice", record.WalletAddress)
	assert.Equal(t, money.Lamports(1_920_000_000), record.Amount)
	assert.NotEmpty(t, record.TxSignature)

	require.Len(t, env.chain.TransferCalls, 1)
	assert.Equal(t, "alice", env.chain.TransferCalls[0].ToWallet)
	assert.Equal(t, money.Lamports(1_920_000_000), env.chain.TransferCalls[0].Amount)
}

func TestPayoutTwiceFails(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")
	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	_, err = env.settler.Payout(context.Background(), gameID)
	require.NoError(t, err)

	_, err = env.settler.Payout(context.Background(), gameID)
	assert.ErrorIs(t, err, settlement.ErrAlreadyPaidOut)
	assert.Len(t, env.chain.TransferCalls, 1, "escrow must not transfer twice")
}

func TestPayoutTransferFailureReleasesClaim(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")
	_, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
	require.NoError(t, err)

	env.chain.TransferFunc = func(toWallet string, amount money.Lamports) (string, error) {
		return "", errors.New("rpc unavailable")
	}
	_, err = env.settler.Payout(context.Background(), gameID)
	require.Error(t, err)

	var claims int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM payouts WHERE game_id = ?", gameID).Scan(&claims))
	assert.Equal(t, 0, claims, "a failed transfer must release the payout claim")

	// RPC recovers; the retry pays out exactly once.
	env.chain.TransferFunc = nil
	record, err := env.settler.Payout(context.Background(), gameID)
	require.NoError(t, err)
	assert.NotEmpty(t, record.TxSignature)

	var signed int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM payouts WHERE game_id = ? AND tx_signature != ''", gameID).Scan(&signed))
	assert.Equal(t, 1, signed)
}

func TestPayoutRequiresCompletedGame(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")

	_, err := env.settler.Payout(context.Background(), gameID)
	assert.ErrorIs(t, err, settlement.ErrNotCompleted)
}

func TestExactSplitAcrossFees(t *testing.T) {
	// The pot split must be exact for awkward lamport amounts too.
	for _, fee := range []string{"0.000000003", "0.1", "1.337", "12.5"} {
		env, teardown := setupTestDB(t)
		gameID := startedGame(t, env, fee)

		result, err := env.settler.Complete(context.Background(), gameID, "alice", "bob")
		require.NoError(t, err)

		entry, err := money.ParseSOL(fee)
		require.NoError(t, err)
		assert.Equal(t, entry*2, result.WinnerAmount+result.PlatformFee, "fee %s", fee)
		teardown()
	}
}

func TestProcessorSettlesPendingGames(t *testing.T) {
	env, teardown := setupTestDB(t)
	t.Cleanup(teardown)
	gameID := startedGame(t, env, "1.0")
	markDetectedTerminal(t, env.db, gameID, "alice")

	processor := settlement.NewProcessor(env.settler, env.metrics)
	processor.ProcessGames(context.Background())

	var settlementStatus string
	err := env.db.QueryRow("SELECT settlement_status FROM games WHERE id = ?", gameID).Scan(&settlementStatus)
	require.NoError(t, err)
	assert.Equal(t, "SETTLED", settlementStatus)
	assert.Equal(t, 1, env.metrics.SettlementsCount())

	// A second pass finds nothing to do.
	processor.ProcessGames(context.Background())
	assert.Equal(t, 1, env.metrics.SettlementsCount())
}

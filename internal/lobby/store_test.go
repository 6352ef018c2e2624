package lobby_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/cryptoboards/cryptoboards/internal/database"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database with a few
// players and returns a Manager backed by a mock chain client.
func setupTestDB(t *testing.T) (lobby.Manager, *solana.Mock, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	players := player.New(db)
	for _, w := range []string{"creator", "alice", "bob", "carol"} {
		_, err := players.Upsert(player.Info{WalletAddress: w, DisplayName: "name-" + w})
		require.NoError(t, err)
	}

	chain := solana.NewMock()
	return lobby.New(db, chain), chain, db, dbTeardown
}

func createLobby(t *testing.T, mgr lobby.Manager, maxPlayers int) *lobby.Game {
	t.Helper()
	fee, err := money.ParseSOL("1.0")
	require.NoError(t, err)
	g, err := mgr.Create(lobby.CreateParams{
		CreatorWallet: "creator",
		GameType:      game.TypeCheckers,
		EntryFee:      fee,
		MaxPlayers:    maxPlayers,
	})
	require.NoError(t, err)
	return g
}

func TestCreateLobby(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	assert.Equal(t, game.StatusWaiting, g.Status)
	assert.Equal(t, 1, g.CurrentPlayers, "creator is an implicit participant")

	_, participants, err := mgr.Get(g.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, lobby.ParticipantWaiting, participants[0].Status)
}

func TestCreateLobbyRejectsUnknownGameType(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	_, err := mgr.Create(lobby.CreateParams{CreatorWallet: "creator", GameType: "tic-tac-toe"})
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 3)

	p, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, lobby.ParticipantWaiting, p.Status)

	t.Run("missing lobby", func(t *testing.T) {
		_, err := mgr.Join("missing", "alice")
		assert.ErrorIs(t, err, lobby.ErrNotFound)
	})

	t.Run("rejoin while waiting is a no-op", func(t *testing.T) {
		p, err := mgr.Join(g.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, lobby.ParticipantWaiting, p.Status)
	})

	t.Run("full lobby", func(t *testing.T) {
		_, err := mgr.Join(g.ID, "bob")
		require.NoError(t, err)
		_, err = mgr.Join(g.ID, "carol")
		assert.ErrorIs(t, err, lobby.ErrFull)
	})
}

func TestJoinPromotesInvited(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)

	invited, err := mgr.Invite(g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, lobby.ParticipantInvited, invited.Status)

	p, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, lobby.ParticipantWaiting, p.Status, "invited players still need to pay")
}

func TestJoinAfterPaymentFails(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-alice")
	require.NoError(t, err)

	_, err = mgr.Join(g.ID, "alice")
	assert.ErrorIs(t, err, lobby.ErrAlreadyReady)
}

func TestPay(t *testing.T) {
	mgr, chain, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)

	ready, err := mgr.Pay(context.Background(), g.ID, "creator", "sig-creator")
	require.NoError(t, err)
	assert.Equal(t, 1, ready)

	ready, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-alice")
	require.NoError(t, err)
	assert.Equal(t, 2, ready)
	assert.Equal(t, []string{"sig-creator", "sig-alice"}, chain.VerifySignatureCalls)

	t.Run("double payment fails", func(t *testing.T) {
		_, err := mgr.Pay(context.Background(), g.ID, "alice", "sig-alice-2")
		assert.ErrorIs(t, err, lobby.ErrAlreadyPaid)
	})

	t.Run("outsider cannot pay", func(t *testing.T) {
		_, err := mgr.Pay(context.Background(), g.ID, "bob", "sig-bob")
		assert.ErrorIs(t, err, lobby.ErrNotInLobby)
	})
}

func TestPayRejectsBadSignature(t *testing.T) {
	mgr, chain, _, teardown := setupTestDB(t)
	defer teardown()

	chain.VerifySignatureFunc = func(signature string) error {
		return solana.ErrVerificationFailed
	}

	g := createLobby(t, mgr, 2)
	_, err := mgr.Pay(context.Background(), g.ID, "creator", "bad-sig")
	assert.ErrorIs(t, err, solana.ErrVerificationFailed)

	_, participants, err := mgr.Get(g.ID)
	require.NoError(t, err)
	assert.Equal(t, lobby.ParticipantWaiting, participants[0].Status, "failed payment leaves the participant unpaid")
}

func TestStart(t *testing.T) {
	mgr, _, db, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)

	t.Run("solitary creator cannot start", func(t *testing.T) {
		_, err := mgr.Start(g.ID)
		assert.ErrorIs(t, err, lobby.ErrInsufficientPlayers)
	})

	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)

	t.Run("unpaid participants block start", func(t *testing.T) {
		_, err := mgr.Start(g.ID)
		assert.ErrorIs(t, err, lobby.ErrNotAllReady)
	})

	_, err = mgr.Pay(context.Background(), g.ID, "creator", "sig-1")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-2")
	require.NoError(t, err)

	started, err := mgr.Start(g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	_, participants, err := mgr.Get(g.ID)
	require.NoError(t, err)
	for _, p := range participants {
		assert.Equal(t, lobby.ParticipantActive, p.Status)
	}

	var stateCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM game_states WHERE game_id = ?", g.ID).Scan(&stateCount))
	assert.Equal(t, 1, stateCount, "initial state is seeded exactly once")

	t.Run("starting twice fails", func(t *testing.T) {
		_, err := mgr.Start(g.ID)
		assert.ErrorIs(t, err, lobby.ErrAlreadyStarted)
	})
}

func TestCancelByCreatorRefundsAndDeletes(t *testing.T) {
	mgr, chain, db, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-alice")
	require.NoError(t, err)

	require.NoError(t, mgr.Cancel(context.Background(), g.ID, "creator"))

	// Only the paid participant is refunded.
	require.Len(t, chain.TransferCalls, 1)
	assert.Equal(t, "alice", chain.TransferCalls[0].ToWallet)
	assert.Equal(t, money.Lamports(1_000_000_000), chain.TransferCalls[0].Amount)

	_, _, err = mgr.Get(g.ID)
	assert.ErrorIs(t, err, lobby.ErrNotFound, "lobby is hard deleted")

	var refunds int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM refunds WHERE game_id = ?", g.ID).Scan(&refunds))
	assert.Equal(t, 1, refunds, "refund ledger row survives the delete")
}

func TestCancelByParticipantRemovesOnlyThem(t *testing.T) {
	mgr, chain, db, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)

	// Alice never paid, so no refund is due.
	require.NoError(t, mgr.Cancel(context.Background(), g.ID, "alice"))
	assert.Empty(t, chain.TransferCalls)

	got, participants, err := mgr.Get(g.ID)
	require.NoError(t, err, "the lobby itself is unaffected")
	assert.Equal(t, 1, got.CurrentPlayers)
	require.Len(t, participants, 1)
	assert.Equal(t, "creator", participants[0].WalletAddress)

	var refunds int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM refunds WHERE game_id = ?", g.ID).Scan(&refunds))
	assert.Equal(t, 0, refunds)
}

func TestCancelStartedGameFails(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "creator", "sig-1")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-2")
	require.NoError(t, err)
	_, err = mgr.Start(g.ID)
	require.NoError(t, err)

	err = mgr.Cancel(context.Background(), g.ID, "creator")
	assert.ErrorIs(t, err, lobby.ErrCannotCancelStarted)
}

func TestCancelAbortsWhenRefundFails(t *testing.T) {
	mgr, chain, _, teardown := setupTestDB(t)
	defer teardown()

	chain.TransferFunc = func(toWallet string, amount money.Lamports) (string, error) {
		return "", errors.New("rpc unavailable")
	}

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-alice")
	require.NoError(t, err)

	err = mgr.Cancel(context.Background(), g.ID, "creator")
	require.Error(t, err)

	_, _, err = mgr.Get(g.ID)
	assert.NoError(t, err, "a failed refund leaves the lobby intact")
}

func TestCancelRetryRefundsEachWalletOnce(t *testing.T) {
	mgr, chain, db, teardown := setupTestDB(t)
	defer teardown()

	g := createLobby(t, mgr, 2)
	_, err := mgr.Join(g.ID, "alice")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "creator", "sig-creator")
	require.NoError(t, err)
	_, err = mgr.Pay(context.Background(), g.ID, "alice", "sig-alice")
	require.NoError(t, err)

	// The first refund lands on chain, the second one fails. Only executed
	// transfers count; the failed attempt moved no funds.
	calls := 0
	sent := map[string]int{}
	chain.TransferFunc = func(toWallet string, amount money.Lamports) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("rpc unavailable")
		}
		sent[toWallet]++
		return "sig-refund", nil
	}

	err = mgr.Cancel(context.Background(), g.ID, "creator")
	require.Error(t, err)

	// The executed refund survives the aborted cancel in the ledger.
	var recorded int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM refunds WHERE game_id = ? AND tx_signature != ''", g.ID).Scan(&recorded))
	assert.Equal(t, 1, recorded)

	// RPC recovers; the retried cancel must not transfer to the first
	// wallet again.
	chain.TransferFunc = func(toWallet string, amount money.Lamports) (string, error) {
		sent[toWallet]++
		return "sig-refund", nil
	}
	require.NoError(t, mgr.Cancel(context.Background(), g.ID, "creator"))

	assert.Equal(t, 1, sent["creator"], "creator must be refunded exactly once")
	assert.Equal(t, 1, sent["alice"], "alice must be refunded exactly once")

	var refunds int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM refunds WHERE game_id = ? AND tx_signature != ''", g.ID).Scan(&refunds))
	assert.Equal(t, 2, refunds)

	_, _, err = mgr.Get(g.ID)
	assert.ErrorIs(t, err, lobby.ErrNotFound)
}

func TestListOpen(t *testing.T) {
	mgr, _, _, teardown := setupTestDB(t)
	defer teardown()

	open := createLobby(t, mgr, 2)
	fee := money.Lamports(500_000_000)
	_, err := mgr.Create(lobby.CreateParams{CreatorWallet: "alice", GameType: game.TypeBattleship, EntryFee: fee, MaxPlayers: 2, IsPrivate: true})
	require.NoError(t, err)

	lobbies, err := mgr.ListOpen()
	require.NoError(t, err)
	require.Len(t, lobbies, 1, "private lobbies are not listed")
	assert.Equal(t, open.ID, lobbies[0].ID)
}

package player_test

import (
	"database/sql"
	"testing"

	"github.com/cryptoboards/cryptoboards/internal/database"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (player.Store, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return player.New(db), db, dbTeardown
}

func TestUpsertAndGet(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	created, err := store.Upsert(player.Info{WalletAddress: "wallet-aaaa-1111", DisplayName: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.DisplayName)
	assert.True(t, created.IsOnline)

	got, err := store.Get("wallet-aaaa-1111")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DisplayName)

	assert.True(t, store.IsKnownPlayer("wallet-aaaa-1111"))
	assert.False(t, store.IsKnownPlayer("wallet-bbbb-2222"))
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()

	_, err := db.Exec(`INSERT INTO players (wallet_address, display_name, created_at) VALUES ('w1', 'old-name', 42)`)
	require.NoError(t, err)

	phone := "+4512345678"
	updated, err := store.Upsert(player.Info{WalletAddress: "w1", DisplayName: "new-name", PhoneNumber: &phone, SMSOptIn: true})
	require.NoError(t, err)
	assert.Equal(t, "new-name", updated.DisplayName)
	assert.Equal(t, int64(42), updated.CreatedAt)
	require.NotNil(t, updated.PhoneNumber)
	assert.Equal(t, phone, *updated.PhoneNumber)
	assert.True(t, updated.SMSOptIn)
}

func TestUpsertDerivesDisplayName(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	created, err := store.Upsert(player.Info{WalletAddress: "So11111111111111111111111111111111111111112"})
	require.NoError(t, err)
	assert.Equal(t, "player-So111111", created.DisplayName)
}

func TestUpsertKeepsChosenNameWhenOmitted(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	_, err := store.Upsert(player.Info{WalletAddress: "wallet-aaaa-1111", DisplayName: "alice"})
	require.NoError(t, err)

	// A later update without a name must not fall back to the generated one.
	updated, err := store.Upsert(player.Info{WalletAddress: "wallet-aaaa-1111", SMSOptIn: true})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.DisplayName)
	assert.True(t, updated.SMSOptIn)
}

func TestGetNotFound(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, player.ErrNotFound)
}

func TestSetPresence(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	_, err := store.Upsert(player.Info{WalletAddress: "w1"})
	require.NoError(t, err)

	require.NoError(t, store.SetPresence("w1", false))
	got, err := store.Get("w1")
	require.NoError(t, err)
	assert.False(t, got.IsOnline)
	assert.NotNil(t, got.LastSeenAt)

	assert.ErrorIs(t, store.SetPresence("missing", true), player.ErrNotFound)
}

func TestGetMany(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	for _, w := range []string{"w1", "w2", "w3"} {
		_, err := store.Upsert(player.Info{WalletAddress: w, DisplayName: "name-" + w})
		require.NoError(t, err)
	}

	players, err := store.GetMany([]string{"w1", "w3", "w9"})
	require.NoError(t, err)
	assert.Len(t, players, 2)

	players, err = store.GetMany(nil)
	require.NoError(t, err)
	assert.Len(t, players, 0)
}

func TestLeaderboard(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()

	for _, w := range []string{"w1", "w2"} {
		_, err := store.Upsert(player.Info{WalletAddress: w, DisplayName: "name-" + w})
		require.NoError(t, err)
	}
	_, err := db.Exec(`INSERT INTO player_stats (wallet_address, games_played, games_won, total_winnings_lamports, total_losses_lamports, current_streak, best_streak, updated_at)
		VALUES ('w1', 3, 1, 1920000000, -2000000000, 0, 1, 0),
		       ('w2', 3, 2, 3840000000, -1000000000, 2, 2, 0)`)
	require.NoError(t, err)

	stats, err := store.Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "w2", stats[0].WalletAddress, "biggest winner first")
	assert.Equal(t, 2, stats[0].GamesWon)

	one, err := store.GetStats("w1")
	require.NoError(t, err)
	assert.Equal(t, 3, one.GamesPlayed)

	_, err = store.GetStats("w9")
	assert.ErrorIs(t, err, player.ErrNotFound)
}

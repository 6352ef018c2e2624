package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{
		"players", "games", "game_participants", "game_states",
		"payouts", "refunds", "game_stats", "player_stats",
	} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "querying for %s table should not produce an error", table)
		assert.Equal(t, table, name, "the %q table should be created", table)
	}
}

func TestInitDB_PayoutLedgerIsIdempotent(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec(`INSERT INTO payouts (id, game_id, wallet_address, amount_lamports, tx_signature, created_at)
		VALUES ('p1', 'g1', 'wallet-a', 100, 'sig1', 0)`)
	require.NoError(t, err)

	// A second payout row for the same game must violate the unique constraint.
	_, err = db.Exec(`INSERT INTO payouts (id, game_id, wallet_address, amount_lamports, tx_signature, created_at)
		VALUES ('p2', 'g1', 'wallet-a', 100, 'sig2', 0)`)
	assert.Error(t, err)
}

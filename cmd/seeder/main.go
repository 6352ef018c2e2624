package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/cryptoboards/cryptoboards/internal/settlement"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := make(map[string]string)
	required := []string{"TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	return config
}

type seedPlayer struct {
	wallet string
	name   string
}

// tally accumulates the per-player rollup written to player_stats at the end.
type tally struct {
	played   int
	won      int
	winnings money.Lamports
	losses   money.Lamports
	streak   int
	best     int
}

func (t *tally) record(won bool, amount money.Lamports) {
	t.played++
	if won {
		t.won++
		t.winnings += amount
		t.streak++
		if t.streak > t.best {
			t.best = t.streak
		}
	} else {
		t.losses += amount
		t.streak = 0
	}
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	// Connect directly to the primary database
	dbURL := fmt.Sprintf("%s?authToken=%s", cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		log.Fatalf("Failed to open primary database: %s", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to primary database: %s", err)
	}

	log.Info("Successfully connected to the primary database.")

	// Create 4 dummy players to use in games
	dummyPlayers := []seedPlayer{
		{wallet: "SeedWa11etAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", name: "Seeder Player A"},
		{wallet: "SeedWa11etBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", name: "Seeder Player B"},
		{wallet: "SeedWa11etCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", name: "Seeder Player C"},
		{wallet: "SeedWa11etDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD", name: "Seeder Player D"},
	}

	now := time.Now().Unix()
	for _, p := range dummyPlayers {
		_, err := db.Exec("INSERT OR IGNORE INTO players (wallet_address, display_name, created_at) VALUES (?, ?, ?)", p.wallet, p.name, now)
		if err != nil {
			log.Fatalf("Failed to insert dummy player %s: %s", p.name, err)
		}
	}
	log.Info("Ensured dummy players exist.")

	const batchSize = 100 // Insert 100 games at a time
	const numGames = 10000

	entryFee := money.LamportsPerSOL / 10 // 0.1 SOL
	pot := entryFee * 2
	platformFee := pot * 400 / 10_000
	winnerAmount := pot - platformFee

	gameTypes := []game.Type{game.TypeCheckers, game.TypeBattleship, game.TypeStratego}
	tallies := map[string]*tally{}
	for _, p := range dummyPlayers {
		tallies[p.wallet] = &tally{}
	}

	log.Info("Preparing to insert dummy games...", "total", numGames, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	gameStrings := make([]string, 0, batchSize)
	gameArgs := make([]interface{}, 0, batchSize*11) // 11 columns per game
	participantStrings := make([]string, 0, batchSize*2)
	participantArgs := make([]interface{}, 0, batchSize*2*6)
	statStrings := make([]string, 0, batchSize*2)
	statArgs := make([]interface{}, 0, batchSize*2*6)

	for i := 0; i < numGames; i++ {
		startedAt := time.Now().Add(-time.Duration(rand.Intn(365*24)) * time.Hour)
		endedAt := startedAt.Add(20 * time.Minute)
		gameID := uuid.NewString()
		winner := dummyPlayers[rand.Intn(2)]
		loser := dummyPlayers[2+rand.Intn(2)]

		gameStrings = append(gameStrings, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		gameArgs = append(gameArgs,
			gameID,
			gameTypes[rand.Intn(len(gameTypes))],
			game.StatusCompleted,
			2,
			entryFee,
			0,
			winner.wallet,
			settlement.SettlementSettled,
			startedAt.Add(-time.Hour).Unix(),
			startedAt.Unix(),
			endedAt.Unix(),
		)

		for j, p := range []seedPlayer{winner, loser} {
			participantStrings = append(participantStrings, "(?, ?, ?, ?, ?, ?)")
			participantArgs = append(participantArgs,
				gameID,
				p.wallet,
				lobby.ParticipantCompleted,
				uuid.NewString(),
				boolToInt(j == 0),
				startedAt.Add(-time.Hour).Unix(),
			)
		}

		for _, row := range []struct {
			wallet string
			result string
			amount money.Lamports
		}{
			{winner.wallet, "win", winnerAmount},
			{loser.wallet, "loss", -entryFee},
		} {
			statStrings = append(statStrings, "(?, ?, ?, ?, ?, ?)")
			statArgs = append(statArgs, uuid.NewString(), gameID, row.wallet, row.result, row.amount, endedAt.Unix())
		}
		tallies[winner.wallet].record(true, winnerAmount)
		tallies[loser.wallet].record(false, entryFee)

		if (i+1)%batchSize == 0 || (i+1) == numGames {
			gameStmt := fmt.Sprintf(`
				INSERT INTO games (id, game_type, status, max_players, entry_fee_lamports, is_private,
					creator_wallet, settlement_status, created_at, started_at, ended_at)
				VALUES %s;`, strings.Join(gameStrings, ","))

			if _, err := tx.Exec(gameStmt, gameArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute game batch insert: %s", err)
			}

			participantStmt := fmt.Sprintf(`
				INSERT INTO game_participants (game_id, wallet_address, status, payment_signature, is_winner, joined_at)
				VALUES %s;`, strings.Join(participantStrings, ","))

			if _, err := tx.Exec(participantStmt, participantArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute participant batch insert: %s", err)
			}

			statStmt := fmt.Sprintf(`
				INSERT INTO game_stats (id, game_id, wallet_address, result, amount_lamports, created_at)
				VALUES %s;`, strings.Join(statStrings, ","))

			if _, err := tx.Exec(statStmt, statArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute stats batch insert: %s", err)
			}

			// Reset for the next batch
			gameStrings = make([]string, 0, batchSize)
			gameArgs = make([]interface{}, 0, batchSize*11)
			participantStrings = make([]string, 0, batchSize*2)
			participantArgs = make([]interface{}, 0, batchSize*2*6)
			statStrings = make([]string, 0, batchSize*2)
			statArgs = make([]interface{}, 0, batchSize*2*6)
			log.Info("Inserted batch", "completed", i+1, "total", numGames)
		}
	}

	// The leaderboard reads player_stats, so write the rollup too.
	for wallet, t := range tallies {
		_, err := tx.Exec(`
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
		`, wallet, t.played, t.won, t.winnings, t.losses, t.streak, t.best, now)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to upsert player stats for %s: %s", wallet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	duration := time.Since(startTime)
	log.Info("Successfully inserted all dummy games.", "duration", duration)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

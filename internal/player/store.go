package player

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// New creates a new player directory Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

// Upsert inserts a new player or updates an existing one. The created_at
// timestamp is preserved across upserts.
func (s *store) Upsert(info Info) (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info.WalletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}
	// The generated fallback name only applies on first insert; an update
	// with an empty name keeps the name the player already chose.
	named := info.DisplayName != ""
	if !named {
		info.DisplayName = defaultDisplayName(info.WalletAddress)
	}

	_, err := s.db.Exec(`
		INSERT INTO players (wallet_address, display_name, avatar_url, phone_number, sms_opt_in, is_online, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			display_name = CASE WHEN ? THEN excluded.display_name ELSE players.display_name END,
			avatar_url = excluded.avatar_url,
			phone_number = excluded.phone_number,
			sms_opt_in = excluded.sms_opt_in;
	`, info.WalletAddress, info.DisplayName, info.AvatarURL, info.PhoneNumber, info.SMSOptIn, time.Now().Unix(), named)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}

	return s.get(info.WalletAddress)
}

// Get retrieves a player by wallet address.
func (s *store) Get(walletAddress string) (*Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(walletAddress)
}

func (s *store) get(walletAddress string) (*Info, error) {
	row := s.db.QueryRow(`
		SELECT wallet_address, display_name, avatar_url, phone_number, sms_opt_in, is_online, last_seen_at, created_at
		FROM players
		WHERE wallet_address = ?
	`, walletAddress)

	info, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return info, nil
}

// GetMany retrieves the players for the given wallet addresses.
func (s *store) GetMany(walletAddresses []string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(walletAddresses) == 0 {
		return []Info{}, nil
	}

	placeholders := strings.Repeat("?,", len(walletAddresses)-1) + "?"
	args := make([]any, len(walletAddresses))
	for i, w := range walletAddresses {
		args[i] = w
	}

	rows, err := s.db.Query(`
		SELECT wallet_address, display_name, avatar_url, phone_number, sms_opt_in, is_online, last_seen_at, created_at
		FROM players
		WHERE wallet_address IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	defer rows.Close()

	players := []Info{}
	for rows.Next() {
		info, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *info)
	}
	return players, rows.Err()
}

// SetPresence flips the online flag and stamps last_seen_at.
func (s *store) SetPresence(walletAddress string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE players SET is_online = ?, last_seen_at = ? WHERE wallet_address = ?
	`, online, time.Now().Unix(), walletAddress)
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsKnownPlayer reports whether a wallet has a player row.
func (s *store) IsKnownPlayer(walletAddress string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM players WHERE wallet_address = ?", walletAddress).Scan(&exists)
	return err == nil
}

// Leaderboard returns players ordered by winnings, then wins.
func (s *store) Leaderboard(limit int) ([]Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.Query(`
		SELECT p.wallet_address, p.display_name, ps.games_played, ps.games_won,
			ps.total_winnings_lamports, ps.total_losses_lamports, ps.current_streak, ps.best_streak
		FROM player_stats ps
		JOIN players p ON p.wallet_address = ps.wallet_address
		ORDER BY ps.total_winnings_lamports DESC, ps.games_won DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	stats := []Stats{}
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.WalletAddress, &st.DisplayName, &st.GamesPlayed, &st.GamesWon,
			&st.TotalWinnings, &st.TotalLosses, &st.CurrentStreak, &st.BestStreak); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// GetStats returns the aggregate stats for one player.
func (s *store) GetStats(walletAddress string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	err := s.db.QueryRow(`
		SELECT p.wallet_address, p.display_name, ps.games_played, ps.games_won,
			ps.total_winnings_lamports, ps.total_losses_lamports, ps.current_streak, ps.best_streak
		FROM player_stats ps
		JOIN players p ON p.wallet_address = ps.wallet_address
		WHERE ps.wallet_address = ?
	`, walletAddress).Scan(&st.WalletAddress, &st.DisplayName, &st.GamesPlayed, &st.GamesWon,
		&st.TotalWinnings, &st.TotalLosses, &st.CurrentStreak, &st.BestStreak)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &st, nil
}

// scanPlayer is a helper to scan a single player row.
func scanPlayer(scanner interface{ Scan(...any) error }) (*Info, error) {
	var info Info
	var avatar, phone sql.NullString
	var lastSeen sql.NullInt64

	err := scanner.Scan(&info.WalletAddress, &info.DisplayName, &avatar, &phone,
		&info.SMSOptIn, &info.IsOnline, &lastSeen, &info.CreatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		info.AvatarURL = &avatar.String
	}
	if phone.Valid {
		info.PhoneNumber = &phone.String
	}
	if lastSeen.Valid {
		info.LastSeenAt = &lastSeen.Int64
	}
	return &info, nil
}

// defaultDisplayName derives a handle from the wallet for first-time players
// that did not pick a name.
func defaultDisplayName(wallet string) string {
	if len(wallet) > 8 {
		return "player-" + wallet[:8]
	}
	return "player-" + wallet
}

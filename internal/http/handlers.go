package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/pubsub"
	"github.com/cryptoboards/cryptoboards/internal/settlement"
	"github.com/cryptoboards/cryptoboards/internal/solana"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// UpsertPlayerHandler registers a wallet on first contact or updates the
// mutable profile fields.
func (s *Server) UpsertPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var info player.Info
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if info.WalletAddress == "" {
			badRequest(w, "wallet_address is required")
			return
		}

		saved, err := s.Players.Upsert(info)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func (s *Server) GetPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.Players.Get(r.PathValue("wallet"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func (s *Server) SetPresenceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Online bool `json:"online"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if err := s.Players.SetPresence(r.PathValue("wallet"), body.Online); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LeaderboardHandler serves the player statistics leaderboard.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 1 {
				badRequest(w, "invalid limit parameter")
				return
			}
			limit = parsed
		}

		stats, err := s.Players.Leaderboard(limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) ListLobbiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies, err := s.Lobby.ListOpen()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lobbies)
	}
}

func (s *Server) CreateLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params lobby.CreateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if params.CreatorWallet == "" {
			badRequest(w, "creator_wallet is required")
			return
		}
		if !params.GameType.Valid() {
			badRequest(w, "unknown game type")
			return
		}

		g, err := s.Lobby.Create(params)
		if err != nil {
			writeError(w, err)
			return
		}
		s.Metrics.IncLobbiesCreated()
		writeJSON(w, http.StatusCreated, g)
	}
}

func (s *Server) GetLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, participants, err := s.Lobby.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"lobby":        g,
			"participants": participants,
		})
	}
}

func (s *Server) InviteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := walletFromBody(w, r)
		if !ok {
			return
		}
		p, err := s.Lobby.Invite(r.PathValue("id"), wallet)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) JoinLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := walletFromBody(w, r)
		if !ok {
			return
		}
		p, err := s.Lobby.Join(r.PathValue("id"), wallet)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// PayHandler verifies the entry fee transaction on chain and marks the
// participant ready.
func (s *Server) PayHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WalletAddress string `json:"wallet_address"`
			TxSignature   string `json:"tx_signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if body.WalletAddress == "" || body.TxSignature == "" {
			badRequest(w, "wallet_address and tx_signature are required")
			return
		}

		readyCount, err := s.Lobby.Pay(r.Context(), r.PathValue("id"), body.WalletAddress, body.TxSignature)
		if err != nil {
			if errors.Is(err, solana.ErrVerificationFailed) {
				s.Metrics.IncPaymentsFailed()
			}
			writeError(w, err)
			return
		}
		s.Metrics.IncPaymentsVerified()
		writeJSON(w, http.StatusOK, map[string]any{"ready_count": readyCount})
	}
}

func (s *Server) StartGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := s.Lobby.Start(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		s.Metrics.IncGamesStarted()
		writeJSON(w, http.StatusOK, g)
	}
}

func (s *Server) CancelLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := walletFromBody(w, r)
		if !ok {
			return
		}
		if err := s.Lobby.Cancel(r.Context(), r.PathValue("id"), wallet); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
	}
}

func (s *Server) GetStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.Games.GetState(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) StateHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := s.Games.History(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

// UpdateStateHandler appends a state snapshot. When the append trips the
// terminal condition, a settle event is published for the processor.
func (s *Server) UpdateStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WalletAddress string          `json:"wallet_address"`
			State         json.RawMessage `json:"state"`
			Move          *game.Move      `json:"move,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if body.WalletAddress == "" || len(body.State) == 0 {
			badRequest(w, "wallet_address and state are required")
			return
		}

		gameID := r.PathValue("id")
		result, err := s.Games.UpdateState(gameID, body.WalletAddress, body.State, body.Move)
		if err != nil {
			writeError(w, err)
			return
		}

		if result.GameEnded {
			s.Metrics.IncGamesCompleted()
			if err := s.pubsub.SendMessage(pubsub.EventSettleGame, pubsub.SettleGameEvent{GameID: gameID}); err != nil {
				// The processor sweep picks the game up later.
				log.Error("Failed to publish settle event", "error", err, "gameID", gameID)
			}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// CompleteGameHandler terminates a game with a client-declared outcome and
// settles it synchronously.
func (s *Server) CompleteGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WinnerWallet string `json:"winner_wallet"`
			LoserWallet  string `json:"loser_wallet"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if body.WinnerWallet == "" || body.LoserWallet == "" {
			badRequest(w, "winner_wallet and loser_wallet are required")
			return
		}

		result, err := s.Settler.Complete(r.Context(), r.PathValue("id"), body.WinnerWallet, body.LoserWallet)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) PayoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := s.Settler.Payout(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// SettleEventHandler is the Pub/Sub push endpoint for settle-game events.
// An already settled game still acks so the subscription does not redeliver.
func (s *Server) SettleEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event pubsub.SettleGameEvent
		if !s.decodePushMessage(w, r, &event) {
			return
		}

		_, err := s.Settler.Settle(r.Context(), event.GameID)
		if err != nil && !errors.Is(err, settlement.ErrAlreadySettled) {
			log.Error("Failed to settle game from event", "error", err, "gameID", event.GameID)
			http.Error(w, "Failed to settle game", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// NotifyResultEventHandler resumes the notification step for a settled game.
func (s *Server) NotifyResultEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event pubsub.NotifyResultEvent
		if !s.decodePushMessage(w, r, &event) {
			return
		}

		_, err := s.Settler.Settle(r.Context(), event.GameID)
		if err != nil && !errors.Is(err, settlement.ErrAlreadySettled) {
			log.Error("Failed to notify result from event", "error", err, "gameID", event.GameID)
			http.Error(w, "Failed to notify result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) ProcessGamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isDryRunFromContext(r) {
			ids, err := s.Settler.PendingGames()
			if err != nil {
				writeError(w, err)
				return
			}
			log.Info("[Dry Run] Would settle pending games", "count", len(ids))
			writeJSON(w, http.StatusOK, map[string]any{"pending": ids})
			return
		}

		s.Processor.ProcessGames(r.Context())
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Settlement processing completed.")
	}
}

// decodePushMessage unwraps the Pub/Sub push envelope: outer JSON, base64
// data, MessagePack payload. Returns false after writing the error response.
func (s *Server) decodePushMessage(w http.ResponseWriter, r *http.Request, v any) bool {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Failed to read request body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return false
	}
	log.Debug("Received push message", "body", string(bodyBytes))

	var pushMsg struct {
		Subscription string `json:"subscription"`
		Message      struct {
			Data string `json:"data"` // base64-encoded message payload
		} `json:"message"`
	}
	if err := json.Unmarshal(bodyBytes, &pushMsg); err != nil {
		log.Error("Failed to unmarshal wrapper JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}

	rawData, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		log.Error("Failed to decode base64 data", "error", err)
		http.Error(w, "Invalid base64 data", http.StatusBadRequest)
		return false
	}

	if err := s.pubsub.ProcessMessage(rawData, v); err != nil {
		http.Error(w, "Invalid message payload", http.StatusBadRequest)
		return false
	}
	return true
}

// walletFromBody decodes the single-field wallet body shared by several
// lobby routes. Returns false after writing the error response.
func walletFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return "", false
	}
	if body.WalletAddress == "" {
		badRequest(w, "wallet_address is required")
		return "", false
	}
	return body.WalletAddress, true
}

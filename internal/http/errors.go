package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/settlement"
	"github.com/cryptoboards/cryptoboards/internal/solana"
)

// errorResponse is the JSON envelope every failed request gets.
type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps the domain error taxonomy to HTTP status codes.
// Anything unmapped is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, player.ErrNotFound),
		errors.Is(err, lobby.ErrNotFound),
		errors.Is(err, game.ErrNotFound),
		errors.Is(err, settlement.ErrGameNotFound):
		return http.StatusNotFound

	case errors.Is(err, game.ErrInvalidMove):
		return http.StatusBadRequest

	case errors.Is(err, solana.ErrVerificationFailed):
		return http.StatusPaymentRequired

	case errors.Is(err, lobby.ErrNotAcceptingPlayers),
		errors.Is(err, lobby.ErrFull),
		errors.Is(err, lobby.ErrAlreadyReady),
		errors.Is(err, lobby.ErrNotInLobby),
		errors.Is(err, lobby.ErrAlreadyPaid),
		errors.Is(err, lobby.ErrCannotCancelStarted),
		errors.Is(err, lobby.ErrAlreadyStarted),
		errors.Is(err, lobby.ErrNotAllReady),
		errors.Is(err, lobby.ErrInsufficientPlayers),
		errors.Is(err, game.ErrPlayerNotInGame),
		errors.Is(err, settlement.ErrAlreadyCompleted),
		errors.Is(err, settlement.ErrNotCompleted),
		errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, settlement.ErrAlreadyPaidOut),
		errors.Is(err, settlement.ErrNoWinner):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status and writes the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// badRequest writes a 400 with the given message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

package http

import (
	"net/http"

	"github.com/cryptoboards/cryptoboards/internal/config"
	"github.com/cryptoboards/cryptoboards/internal/game"
	"github.com/cryptoboards/cryptoboards/internal/lobby"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/cryptoboards/cryptoboards/internal/pubsub"
	"github.com/cryptoboards/cryptoboards/internal/settlement"
)

func NewServer(players player.Store, lobbyMgr lobby.Manager, games game.Store, settler settlement.Settler, processor *settlement.Processor, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Players:        players,
		Lobby:          lobbyMgr,
		Games:          games,
		Settler:        settler,
		Processor:      processor,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("POST /players", Chain(s.UpsertPlayerHandler(), paramsMiddleware))
	s.Router.Handle("GET /players/{wallet}", Chain(s.GetPlayerHandler(), paramsMiddleware))
	s.Router.Handle("POST /players/{wallet}/presence", Chain(s.SetPresenceHandler(), paramsMiddleware))
	s.Router.Handle("GET /leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))

	s.Router.Handle("GET /lobbies", Chain(s.ListLobbiesHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies", Chain(s.CreateLobbyHandler(), paramsMiddleware))
	s.Router.Handle("GET /lobbies/{id}", Chain(s.GetLobbyHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies/{id}/invite", Chain(s.InviteHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies/{id}/join", Chain(s.JoinLobbyHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies/{id}/pay", Chain(s.PayHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies/{id}/start", Chain(s.StartGameHandler(), paramsMiddleware))
	s.Router.Handle("POST /lobbies/{id}/cancel", Chain(s.CancelLobbyHandler(), paramsMiddleware))

	s.Router.Handle("GET /games/{id}/state", Chain(s.GetStateHandler(), paramsMiddleware))
	s.Router.Handle("GET /games/{id}/history", Chain(s.StateHistoryHandler(), paramsMiddleware))
	s.Router.Handle("PUT /games/{id}/state", Chain(s.UpdateStateHandler(), paramsMiddleware))
	s.Router.Handle("POST /games/{id}/complete", Chain(s.CompleteGameHandler(), paramsMiddleware))
	s.Router.Handle("POST /games/{id}/payout", Chain(s.PayoutHandler(), paramsMiddleware))

	// Pub/Sub push endpoints.
	s.Router.Handle("POST /events/settle", Chain(s.SettleEventHandler(), paramsMiddleware))
	s.Router.Handle("POST /events/notify-result", Chain(s.NotifyResultEventHandler(), paramsMiddleware))
	s.Router.Handle("POST /process", Chain(s.ProcessGamesHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

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

type Server struct {
	Players        player.Store
	Lobby          lobby.Manager
	Games          game.Store
	Settler        settlement.Settler
	Processor      *settlement.Processor
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}

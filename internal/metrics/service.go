package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		LobbiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_lobbies_created_total",
			Help: "The total number of lobbies created.",
		}),
		PaymentsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_payments_verified_total",
			Help: "The total number of entry fee payments verified on chain.",
		}),
		PaymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_payments_failed_total",
			Help: "The total number of entry fee payments that failed verification.",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_games_started_total",
			Help: "The total number of games started.",
		}),
		GamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_games_completed_total",
			Help: "The total number of games that reached a terminal state.",
		}),
		Settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_settlements_total",
			Help: "The total number of games settled.",
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boards_settlement_duration_seconds",
			Help:    "The duration of individual game settlements.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SMSNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_sms_notifications_sent_total",
			Help: "The total number of SMS notifications successfully sent.",
		}),
		SMSNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_sms_notifications_failed_total",
			Help: "The total number of SMS notifications that failed to send.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boards_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boards_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.LobbiesCreated,
		s.PaymentsVerified,
		s.PaymentsFailed,
		s.GamesStarted,
		s.GamesCompleted,
		s.Settlements,
		s.SettlementDuration,
		s.SMSNotifSent,
		s.SMSNotifFailed,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncLobbiesCreated() {
	s.LobbiesCreated.Inc()
}

func (s *Service) IncPaymentsVerified() {
	s.PaymentsVerified.Inc()
}

func (s *Service) IncPaymentsFailed() {
	s.PaymentsFailed.Inc()
}

func (s *Service) IncGamesStarted() {
	s.GamesStarted.Inc()
}

func (s *Service) IncGamesCompleted() {
	s.GamesCompleted.Inc()
}

func (s *Service) IncSettlements() {
	s.Settlements.Inc()
}

func (s *Service) ObserveSettlementDuration(duration float64) {
	s.SettlementDuration.Observe(duration)
}

func (s *Service) IncSMSNotifSent() {
	s.SMSNotifSent.Inc()
}

func (s *Service) IncSMSNotifFailed() {
	s.SMSNotifFailed.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	LobbiesCreated     prometheus.Counter
	PaymentsVerified   prometheus.Counter
	PaymentsFailed     prometheus.Counter
	GamesStarted       prometheus.Counter
	GamesCompleted     prometheus.Counter
	Settlements        prometheus.Counter
	SettlementDuration prometheus.Histogram
	SMSNotifSent       prometheus.Counter
	SMSNotifFailed     prometheus.Counter
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}

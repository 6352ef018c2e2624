package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncLobbiesCreated()
	IncPaymentsVerified()
	IncPaymentsFailed()
	IncGamesStarted()
	IncGamesCompleted()
	IncSettlements()
	ObserveSettlementDuration(duration float64)
	IncSMSNotifSent()
	IncSMSNotifFailed()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

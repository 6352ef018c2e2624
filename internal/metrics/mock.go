package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	lobbiesCreated      int
	paymentsVerified    int
	paymentsFailed      int
	gamesStarted        int
	gamesCompleted      int
	settlements         int
	settlementDurations []float64
	smsNotifSent        int
	smsNotifFailed      int
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		settlementDurations: make([]float64, 0),
	}
}

var _ Metrics = (*Mock)(nil)

func (m *Mock) IncLobbiesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbiesCreated++
}

func (m *Mock) IncPaymentsVerified() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentsVerified++
}

func (m *Mock) IncPaymentsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentsFailed++
}

func (m *Mock) IncGamesStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gamesStarted++
}

func (m *Mock) IncGamesCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gamesCompleted++
}

func (m *Mock) IncSettlements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements++
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementDurations = append(m.settlementDurations, duration)
}

func (m *Mock) IncSMSNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smsNotifSent++
}

func (m *Mock) IncSMSNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smsNotifFailed++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// LobbiesCreated returns the number of times IncLobbiesCreated was called.
func (m *Mock) LobbiesCreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lobbiesCreated
}

// SettlementsCount returns the number of times IncSettlements was called.
func (m *Mock) SettlementsCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settlements
}

// SMSNotifSentCount returns the number of times IncSMSNotifSent was called.
func (m *Mock) SMSNotifSentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smsNotifSent
}

// SMSNotifFailedCount returns the number of times IncSMSNotifFailed was called.
func (m *Mock) SMSNotifFailedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smsNotifFailed
}

// SlackNotifSentCount returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

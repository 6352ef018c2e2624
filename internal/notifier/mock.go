package notifier

import (
	"context"
	"sync"

	"github.com/cryptoboards/cryptoboards/internal/player"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendGameOutcomeFunc       func(to player.Info, outcome Outcome) error
	SendSettlementSummaryFunc func(settlement Settlement) error

	// Call records
	GameOutcomeCalls []GameOutcomeCall
	SettlementCalls  []Settlement
}

// GameOutcomeCall holds the arguments for a call to SendGameOutcome.
type GameOutcomeCall struct {
	To      player.Info
	Outcome Outcome
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

var _ Notifier = (*Mock)(nil)

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GameOutcomeCalls = nil
	m.SettlementCalls = nil
}

func (m *Mock) SendGameOutcome(_ context.Context, to player.Info, outcome Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GameOutcomeCalls = append(m.GameOutcomeCalls, GameOutcomeCall{To: to, Outcome: outcome})
	if m.SendGameOutcomeFunc != nil {
		return m.SendGameOutcomeFunc(to, outcome)
	}
	return nil
}

func (m *Mock) SendSettlementSummary(_ context.Context, settlement Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettlementCalls = append(m.SettlementCalls, settlement)
	if m.SendSettlementSummaryFunc != nil {
		return m.SendSettlementSummaryFunc(settlement)
	}
	return nil
}

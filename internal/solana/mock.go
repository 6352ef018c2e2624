package solana

import (
	"context"
	"fmt"
	"sync"

	"github.com/cryptoboards/cryptoboards/internal/money"
)

// Mock is a mock implementation of the Client interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	VerifySignatureFunc func(signature string) error
	TransferFunc        func(toWallet string, amount money.Lamports) (string, error)

	// Call records
	VerifySignatureCalls []string
	TransferCalls        []TransferCall
}

// TransferCall holds the arguments for a call to Transfer.
type TransferCall struct {
	ToWallet string
	Amount   money.Lamports
}

// NewMock creates a new mock client.
func NewMock() *Mock {
	return &Mock{}
}

var _ Client = (*Mock)(nil)

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifySignatureCalls = nil
	m.TransferCalls = nil
}

// VerifySignature records the call and executes the mock function if provided.
// By default every signature verifies.
func (m *Mock) VerifySignature(_ context.Context, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifySignatureCalls = append(m.VerifySignatureCalls, signature)
	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(signature)
	}
	return nil
}

// Transfer records the call and executes the mock function if provided.
// By default it returns a synthetic signature.
func (m *Mock) Transfer(_ context.Context, toWallet string, amount money.Lamports) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransferCalls = append(m.TransferCalls, TransferCall{ToWallet: toWallet, Amount: amount})
	if m.TransferFunc != nil {
		return m.TransferFunc(toWallet, amount)
	}
	return fmt.Sprintf("mock-transfer-%d", len(m.TransferCalls)), nil
}

package solana

import (
	"context"

	"github.com/cryptoboards/cryptoboards/internal/money"
)

// Client defines the interface for interacting with the Solana chain.
// This allows for mock implementations to be used in tests.
type Client interface {
	// VerifySignature checks that a transaction with the given signature
	// exists on chain, is confirmed and did not error. It does not verify
	// amount or destination.
	VerifySignature(ctx context.Context, signature string) error
	// Transfer sends lamports from the escrow wallet to the given wallet
	// and returns the transaction signature.
	Transfer(ctx context.Context, toWallet string, amount money.Lamports) (string, error)
}

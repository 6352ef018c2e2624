package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/config"
	"github.com/cryptoboards/cryptoboards/internal/money"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrVerificationFailed is returned when a payment signature cannot be
// confirmed on chain.
var ErrVerificationFailed = errors.New("transaction verification failed")

const rpcTimeout = 10 * time.Second

// RPCClient talks to a Solana JSON-RPC node and implements the Client
// interface. Escrow transfers are signed with the escrow private key.
type RPCClient struct {
	rpc       *rpc.Client
	escrowKey solana.PrivateKey
}

// NewClient creates a new Solana RPC client from config.
func NewClient(cfg config.SolanaConfig) (*RPCClient, error) {
	key, err := solana.PrivateKeyFromBase58(cfg.EscrowPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid escrow private key: %w", err)
	}
	if cfg.EscrowWallet != "" {
		pub, err := solana.PublicKeyFromBase58(cfg.EscrowWallet)
		if err != nil {
			return nil, fmt.Errorf("invalid escrow wallet address: %w", err)
		}
		if !pub.Equals(key.PublicKey()) {
			return nil, fmt.Errorf("escrow wallet %s does not match escrow private key", cfg.EscrowWallet)
		}
	}
	return &RPCClient{
		rpc:       rpc.New(cfg.RPCURL),
		escrowKey: key,
	}, nil
}

// Ensure RPCClient implements the Client interface.
var _ Client = (*RPCClient)(nil)

// VerifySignature confirms that the transaction exists, succeeded and reached
// at least "confirmed" commitment.
func (c *RPCClient) VerifySignature(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature: %s", ErrVerificationFailed, signature)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return fmt.Errorf("fetching signature status: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return fmt.Errorf("%w: transaction not found", ErrVerificationFailed)
	}
	status := out.Value[0]
	if status.Err != nil {
		return fmt.Errorf("%w: transaction errored on chain: %v", ErrVerificationFailed, status.Err)
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		log.Debug("Verified payment signature", "signature", signature, "slot", status.Slot)
		return nil
	default:
		return fmt.Errorf("%w: transaction not yet confirmed", ErrVerificationFailed)
	}
}

// Transfer builds, signs and submits a system transfer from the escrow wallet.
func (c *RPCClient) Transfer(ctx context.Context, toWallet string, amount money.Lamports) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	to, err := solana.PublicKeyFromBase58(toWallet)
	if err != nil {
		return "", fmt.Errorf("invalid destination wallet %s: %w", toWallet, err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("fetching blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(uint64(amount), c.escrowKey.PublicKey(), to).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.escrowKey.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("building transfer transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.escrowKey.PublicKey()) {
			return &c.escrowKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("signing transfer transaction: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("submitting transfer transaction: %w", err)
	}
	log.Info("Submitted escrow transfer", "to", toWallet, "lamports", amount, "signature", sig.String())
	return sig.String(), nil
}

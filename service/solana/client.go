package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/blinks/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetMinimumBalanceForRentExemption(
		ctx context.Context,
		dataSize uint64,
		commitment rpc.CommitmentType,
	) (uint64, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	SendTransaction(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// ErrTransactionFailed is returned when a submitted transaction lands with an error.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// Client wraps the RPC client with the chain lookups donations need.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

func (c *Client) record(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// RentExemptFloor returns the minimum balance, in lamports, for a zero-data
// account to be rent exempt.
func (c *Client) RentExemptFloor(ctx context.Context) (uint64, error) {
	start := time.Now()
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, 0, rpc.CommitmentFinalized)
	c.record("getMinimumBalanceForRentExemption", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get rent exemption floor", "error", err)
		return 0, fmt.Errorf("failed to get minimum balance for rent exemption: %w", err)
	}
	return lamports, nil
}

// LatestBlockhash returns the latest finalized blockhash and the last block
// height at which a transaction referencing it is valid.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.record("getLatestBlockhash", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get latest blockhash", "error", err)
		return solana.Hash{}, 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, 0, errors.New("empty latest blockhash response")
	}
	return out.Value.Blockhash, out.Value.LastValidBlockHeight, nil
}

// SendTransaction submits a fully signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransaction(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.record("sendTransaction", start, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.InfoContext(ctx, "transaction submitted", "signature", sig.String())
	return sig, nil
}

// WaitForConfirmation polls the signature status until it reaches confirmed
// or finalized, the transaction fails, or ctx is done.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature, pollInterval time.Duration) (rpc.ConfirmationStatusType, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		out, err := c.rpc.GetSignatureStatuses(ctx, sig)
		c.record("getSignatureStatuses", start, err)
		if err != nil {
			return "", fmt.Errorf("failed to get signature status: %w", err)
		}

		if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return status.ConfirmationStatus, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return status.ConfirmationStatus, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubmitAndConfirm sends a signed transaction and waits until it is confirmed.
func (c *Client) SubmitAndConfirm(ctx context.Context, tx *solana.Transaction, pollInterval time.Duration) (solana.Signature, error) {
	sig, err := c.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	status, err := c.WaitForConfirmation(ctx, sig, pollInterval)
	if err != nil {
		return sig, err
	}

	c.logger.InfoContext(ctx, "transaction confirmed",
		"signature", sig.String(),
		"status", status,
	)
	return sig, nil
}

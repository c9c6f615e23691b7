package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	rentFloor    uint64
	rentErr      error
	blockhash    solana.Hash
	blockhashErr error
	sendSig      solana.Signature
	sendErr      error
	statuses     []*rpc.SignatureStatusesResult // returned one per poll, last one repeats
	statusErr    error

	blockhashCalls int
	sent           []*solana.Transaction
	polls          int
}

func (m *mockRPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	return m.rentFloor, m.rentErr
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	m.blockhashCalls++
	if m.blockhashErr != nil {
		return nil, m.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: m.blockhash, LastValidBlockHeight: 1234},
	}, nil
}

func (m *mockRPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	m.sent = append(m.sent, tx)
	return m.sendSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	i := m.polls
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.polls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{m.statuses[i]}}, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", metrics.NewMetrics(prometheus.NewRegistry()), logger)
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func TestAssembleDonation(t *testing.T) {
	ctx := context.Background()
	payer, recipient, fee := newKey(t), newKey(t), newKey(t)
	blockhash := solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")

	mock := &mockRPCClient{rentFloor: 890_880, blockhash: blockhash}
	client := newTestClient(mock)

	donation, err := client.AssembleDonation(ctx, DonationParams{
		Payer:       payer,
		Recipient:   recipient,
		FeeAccount:  fee,
		Amount:      decimal.RequireFromString("1.0"),
		FeeLamports: 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), donation.Lamports)
	assert.Equal(t, uint64(1234), donation.LastValidBlockHeight)
	assert.Empty(t, mock.sent, "assembly must never submit")

	tx, err := DecodeTransaction(donation.Encoded)
	require.NoError(t, err)

	assert.Equal(t, payer, tx.Message.AccountKeys[0], "payer is the fee payer")
	assert.Equal(t, blockhash, tx.Message.RecentBlockhash)
	require.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero(), "signature slot is a placeholder")

	transfers, err := ParseTransfers(tx)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, Transfer{From: payer, To: recipient, Lamports: 1_000_000_000}, transfers[0])
	assert.Equal(t, Transfer{From: payer, To: fee, Lamports: 1_000_000}, transfers[1])
}

func TestAssembleDonation_BelowRentFloor(t *testing.T) {
	mock := &mockRPCClient{rentFloor: 100_000_000}
	client := newTestClient(mock)
	recipient := newKey(t)

	_, err := client.AssembleDonation(context.Background(), DonationParams{
		Payer:     newKey(t),
		Recipient: recipient,
		Amount:    decimal.RequireFromString("0.05"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindChainPolicy, apperr.KindOf(err))
	assert.Equal(t, "Account may not be rent exempt: "+recipient.String(), apperr.MessageOf(err))
	assert.Zero(t, mock.blockhashCalls, "no blockhash is fetched for a rejected amount")
}

func TestAssembleDonation_AtRentFloor(t *testing.T) {
	mock := &mockRPCClient{rentFloor: 100_000_000}
	client := newTestClient(mock)

	_, err := client.AssembleDonation(context.Background(), DonationParams{
		Payer:     newKey(t),
		Recipient: newKey(t),
		Amount:    decimal.RequireFromString("0.1"),
	})
	assert.NoError(t, err)
}

func TestAssembleDonation_RPCErrors(t *testing.T) {
	params := DonationParams{Payer: newKey(t), Recipient: newKey(t), Amount: decimal.NewFromInt(1)}

	_, err := newTestClient(&mockRPCClient{rentErr: errors.New("node down")}).AssembleDonation(context.Background(), params)
	assert.ErrorContains(t, err, "node down")

	_, err = newTestClient(&mockRPCClient{blockhashErr: errors.New("timeout")}).AssembleDonation(context.Background(), params)
	assert.ErrorContains(t, err, "timeout")
}

func TestToLamports(t *testing.T) {
	tests := []struct {
		sol     string
		want    uint64
		wantErr bool
	}{
		{sol: "1", want: 1_000_000_000},
		{sol: "0.001", want: 1_000_000},
		{sol: "0.1234567891", want: 123_456_789},
		{sol: "18446744073.709551615", want: math.MaxUint64},
		{sol: "18446744073.709551616", wantErr: true},
		{sol: "18446744074", wantErr: true},
		{sol: "1e20", wantErr: true},
		{sol: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.sol, func(t *testing.T) {
			got, err := ToLamports(decimal.RequireFromString(tt.sol))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssembleDonation_AmountOutOfRange(t *testing.T) {
	for _, amount := range []string{"18446744074", "1e20"} {
		mock := &mockRPCClient{rentFloor: 890_880}
		client := newTestClient(mock)

		_, err := client.AssembleDonation(context.Background(), DonationParams{
			Payer:       newKey(t),
			Recipient:   newKey(t),
			FeeAccount:  newKey(t),
			Amount:      decimal.RequireFromString(amount),
			FeeLamports: 1_000_000,
		})
		require.Error(t, err, amount)
		assert.Equal(t, apperr.CodeInvalidAmount, apperr.CodeOf(err))
		assert.Zero(t, mock.blockhashCalls, "no blockhash is fetched for %s", amount)
	}
}

func TestSubmitAndConfirm(t *testing.T) {
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

	t.Run("confirmed after polling", func(t *testing.T) {
		mock := &mockRPCClient{
			sendSig: sig,
			statuses: []*rpc.SignatureStatusesResult{
				nil,
				{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
				{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
			},
		}
		client := newTestClient(mock)

		got, err := client.SubmitAndConfirm(context.Background(), &solana.Transaction{}, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, sig, got)
		assert.Equal(t, 3, mock.polls)
		assert.Len(t, mock.sent, 1)
	})

	t.Run("failed on chain", func(t *testing.T) {
		mock := &mockRPCClient{
			sendSig:  sig,
			statuses: []*rpc.SignatureStatusesResult{{Err: map[string]interface{}{"InstructionError": []interface{}{0, "InsufficientFunds"}}}},
		}
		client := newTestClient(mock)

		_, err := client.SubmitAndConfirm(context.Background(), &solana.Transaction{}, time.Millisecond)
		assert.ErrorIs(t, err, ErrTransactionFailed)
	})

	t.Run("context cancelled", func(t *testing.T) {
		mock := &mockRPCClient{sendSig: sig, statuses: []*rpc.SignatureStatusesResult{nil}}
		client := newTestClient(mock)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.SubmitAndConfirm(ctx, &solana.Transaction{}, 5*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("send error", func(t *testing.T) {
		mock := &mockRPCClient{sendErr: errors.New("blockhash not found")}
		client := newTestClient(mock)

		_, err := client.SubmitAndConfirm(context.Background(), &solana.Transaction{}, time.Millisecond)
		assert.ErrorContains(t, err, "blockhash not found")
		assert.Zero(t, mock.polls)
	})
}

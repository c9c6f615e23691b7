package solana

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(LamportsPerSOL)

// ToLamports converts a SOL amount to lamports, truncating sub-lamport precision.
// Negative amounts and amounts that do not fit in a uint64 are rejected.
func ToLamports(sol decimal.Decimal) (uint64, error) {
	lamports := sol.Mul(lamportsPerSOL).Truncate(0).BigInt()
	if !lamports.IsUint64() {
		return 0, fmt.Errorf("%s SOL is out of lamport range", sol.String())
	}
	return lamports.Uint64(), nil
}

// DonationParams describes a donation transfer to assemble.
type DonationParams struct {
	Payer       solana.PublicKey
	Recipient   solana.PublicKey
	FeeAccount  solana.PublicKey
	Amount      decimal.Decimal // SOL
	FeeLamports uint64
}

// Donation is an assembled, unsigned donation transaction.
type Donation struct {
	Transaction          *solana.Transaction
	Encoded              string // base64 wire format with empty signature slots
	Lamports             uint64
	FeeLamports          uint64
	LastValidBlockHeight uint64
}

// BuildDonationTransaction builds a transaction paid for by payer with two
// transfers in this order: payer to recipient, then payer to feeAccount.
// Signature slots are present but zeroed.
func BuildDonationTransaction(payer, recipient, feeAccount solana.PublicKey, lamports, feeLamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payer, recipient).Build(),
			system.NewTransferInstruction(feeLamports, payer, feeAccount).Build(),
		},
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx, nil
}

// EncodeTransaction serializes tx to base64 wire format.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// AssembleDonation checks the rent floor, fetches a blockhash and returns the
// serialized donation transaction. It never submits anything.
func (c *Client) AssembleDonation(ctx context.Context, params DonationParams) (*Donation, error) {
	lamports, err := ToLamports(params.Amount)
	if err != nil {
		return nil, apperr.InvalidAmount(params.Amount.String())
	}

	floor, err := c.RentExemptFloor(ctx)
	if err != nil {
		return nil, err
	}

	if lamports < floor {
		return nil, apperr.RentExempt(params.Recipient.String())
	}

	blockhash, lastValid, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := BuildDonationTransaction(params.Payer, params.Recipient, params.FeeAccount, lamports, params.FeeLamports, blockhash)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "assembled donation transaction",
		"payer", params.Payer.String(),
		"recipient", params.Recipient.String(),
		"lamports", lamports,
		"fee_lamports", params.FeeLamports,
	)

	return &Donation{
		Transaction:          tx,
		Encoded:              encoded,
		Lamports:             lamports,
		FeeLamports:          params.FeeLamports,
		LastValidBlockHeight: lastValid,
	}, nil
}

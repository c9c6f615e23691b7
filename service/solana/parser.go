package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SystemProgramTransferInstruction is the System Program instruction index for Transfer.
const SystemProgramTransferInstruction = uint32(2)

// Transfer is a native SOL transfer found in a transaction.
type Transfer struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
}

// DecodeTransaction decodes a base64 wire-format transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// ParseTransfers extracts the System Program transfers of tx in instruction order.
// Any instruction that is not a system transfer is an error.
func ParseTransfers(tx *solana.Transaction) ([]Transfer, error) {
	accountKeys := tx.Message.AccountKeys
	transfers := make([]Transfer, 0, len(tx.Message.Instructions))

	for i, instruction := range tx.Message.Instructions {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			return nil, fmt.Errorf("instruction %d: program index out of bounds", i)
		}
		programID := accountKeys[instruction.ProgramIDIndex]
		if !programID.Equals(solana.SystemProgramID) {
			return nil, fmt.Errorf("instruction %d: unexpected program %s", i, programID)
		}

		transfer, err := parseSystemTransfer(instruction, accountKeys)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		transfers = append(transfers, transfer)
	}

	return transfers, nil
}

// parseSystemTransfer decodes a System Program Transfer instruction.
func parseSystemTransfer(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (Transfer, error) {
	// [0..4]  = instruction type (u32, 2 for Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return Transfer{}, fmt.Errorf("instruction data too short: %d bytes", len(instruction.Data))
	}

	instructionType := binary.LittleEndian.Uint32(instruction.Data[0:4])
	if instructionType != SystemProgramTransferInstruction {
		return Transfer{}, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	// Accounts: [from, to]
	if len(instruction.Accounts) < 2 {
		return Transfer{}, fmt.Errorf("transfer missing accounts")
	}
	from, to := instruction.Accounts[0], instruction.Accounts[1]
	if int(from) >= len(accountKeys) || int(to) >= len(accountKeys) {
		return Transfer{}, fmt.Errorf("transfer account index out of bounds")
	}

	return Transfer{
		From:     accountKeys[from],
		To:       accountKeys[to],
		Lamports: binary.LittleEndian.Uint64(instruction.Data[4:12]),
	}, nil
}

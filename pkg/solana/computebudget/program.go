package compute_budget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	commandRequestUnits uint8 = iota
	commandRequestHeapFrame
	commandSetComputeUnitLimit
	commandSetComputeUnitPrice
)

// MaxComputeUnitLimit is the most compute a single transaction may request.
const MaxComputeUnitLimit = 1_400_000

func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(
		ProgramKey,
		data,
	)
}

// SetComputeUnitPrice sets the priority fee, in micro-lamports per compute
// unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)

	return solana.NewInstruction(
		ProgramKey,
		data,
	)
}

// PriorityFee returns the lamports paid on top of the base fee for the given
// limit and price, rounded up.
func PriorityFee(computeUnitLimit uint32, microLamports uint64) uint64 {
	const microLamportsPerLamport = 1_000_000

	total := uint64(computeUnitLimit) * microLamports
	fee := total / microLamportsPerLamport
	if total%microLamportsPerLamport != 0 {
		fee++
	}
	return fee
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	if len(data) != 5 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}

	if data[0] != commandSetComputeUnitLimit {
		return 0, solana.ErrIncorrectInstruction
	}

	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	if len(data) != 9 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}

	if data[0] != commandSetComputeUnitPrice {
		return 0, solana.ErrIncorrectInstruction
	}

	return binary.LittleEndian.Uint64(data[1:]), nil
}

// IsComputeBudgetInstruction reports whether the instruction targets the
// compute budget program.
func IsComputeBudgetInstruction(ixn solana.Instruction) bool {
	return bytes.Equal(ixn.Program, ProgramKey)
}

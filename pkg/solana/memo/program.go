package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/solana"
)

// ProgramKey is the address of the memo program that should be used.
//
// Current key: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
var ProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

// MaxMemoSize keeps a memo well inside the transaction size limit.
const MaxMemoSize = 256

var ErrInvalidMemo = errors.New("invalid memo")

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/entrypoint.rs
func Instruction(data string) (solana.Instruction, error) {
	if len(data) == 0 || len(data) > MaxMemoSize {
		return solana.Instruction{}, errors.Wrapf(ErrInvalidMemo, "length %d", len(data))
	}
	if !utf8.ValidString(data) {
		return solana.Instruction{}, errors.Wrap(ErrInvalidMemo, "not utf-8")
	}

	return solana.NewInstruction(
		ProgramKey,
		[]byte(data),
	), nil
}

type DecompiledMemo struct {
	Data []byte
}

func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	return &DecompiledMemo{Data: i.Data}, nil
}

package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is a reference to an account made by an instruction.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// accountGroup is the position of an account within the canonical account
// table. Groups are laid out in ascending order.
type accountGroup int

const (
	groupSignerWritable accountGroup = iota
	groupSignerReadonly
	groupWritable
	groupReadonly
)

func (m AccountMeta) group() accountGroup {
	switch {
	case m.IsSigner && m.IsWritable:
		return groupSignerWritable
	case m.IsSigner:
		return groupSignerReadonly
	case m.IsWritable:
		return groupWritable
	default:
		return groupReadonly
	}
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction represents an instruction that has been compiled into a transaction.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

// mergeAccountMetas collapses repeated references to the same account into
// one entry at the position of its first reference. Signer and writable flags
// are promoted if any reference sets them.
func mergeAccountMetas(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))

	for _, account := range accounts {
		found := false
		for j := range merged {
			if bytes.Equal(account.PublicKey, merged[j].PublicKey) {
				merged[j].IsSigner = merged[j].IsSigner || account.IsSigner
				merged[j].IsWritable = merged[j].IsWritable || account.IsWritable
				found = true
				break
			}
		}

		if !found {
			merged = append(merged, account)
		}
	}

	return merged
}

// partitionAccountMetas stably orders accounts into signer-writable,
// signer-readonly, writable and readonly groups.
func partitionAccountMetas(accounts []AccountMeta) []AccountMeta {
	partitioned := make([]AccountMeta, 0, len(accounts))
	for g := groupSignerWritable; g <= groupReadonly; g++ {
		for _, account := range accounts {
			if account.group() == g {
				partitioned = append(partitioned, account)
			}
		}
	}
	return partitioned
}

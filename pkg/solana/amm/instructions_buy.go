package amm

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/solana"
	"github.com/code-payments/copy-trader/pkg/solana/binary"
	"github.com/code-payments/copy-trader/pkg/solana/system"
	"github.com/code-payments/copy-trader/pkg/solana/token"
)

const (
	BuyInstructionArgsSize = (8 + // sol_in
		8) // min_tokens_out

	buyInstructionAccountCount = 8
)

type BuyInstructionArgs struct {
	SolIn        uint64
	MinTokensOut uint64
}

type BuyInstructionAccounts struct {
	User             ed25519.PublicKey
	Mint             ed25519.PublicKey
	UserTokenAccount ed25519.PublicKey
	Pool             ed25519.PublicKey
	PoolMetadata     ed25519.PublicKey
	BondingCurve     ed25519.PublicKey
}

func NewBuyInstruction(
	accounts *BuyInstructionAccounts,
	args *BuyInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+BuyInstructionArgsSize)

	binary.PutUint8(data, uint8(InstructionTypeBuy), &offset)
	binary.PutUint64(data, args.SolIn, &offset)
	binary.PutUint64(data, args.MinTokensOut, &offset)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(accounts.User, true),
		solana.NewAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.UserTokenAccount, false),
		solana.NewAccountMeta(accounts.Pool, false),
		solana.NewAccountMeta(accounts.PoolMetadata, false),
		solana.NewAccountMeta(accounts.BondingCurve, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

type DecompiledBuy struct {
	Accounts BuyInstructionAccounts
	Args     BuyInstructionArgs
}

func DecompileBuyInstruction(m solana.Message, index int) (*DecompiledBuy, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if int(i.ProgramIndex) >= len(m.Accounts) {
		return nil, errors.Wrapf(solana.ErrUnknownAccountReference, "program index %d", i.ProgramIndex)
	}
	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) != 1+BuyInstructionArgsSize || i.Data[0] != uint8(InstructionTypeBuy) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) != buyInstructionAccountCount {
		return nil, errors.Errorf("invalid number of accounts: %d (expected %d)", len(i.Accounts), buyInstructionAccountCount)
	}
	if !bytes.Equal(m.Accounts[i.Accounts[6]], system.ProgramKey) {
		return nil, errors.New("system program key mismatch")
	}
	if !bytes.Equal(m.Accounts[i.Accounts[7]], token.ProgramKey) {
		return nil, errors.New("token program key mismatch")
	}

	var decompiled DecompiledBuy

	offset := 1
	binary.GetUint64(i.Data, &decompiled.Args.SolIn, &offset)
	binary.GetUint64(i.Data, &decompiled.Args.MinTokensOut, &offset)

	decompiled.Accounts = BuyInstructionAccounts{
		User:             m.Accounts[i.Accounts[0]],
		Mint:             m.Accounts[i.Accounts[1]],
		UserTokenAccount: m.Accounts[i.Accounts[2]],
		Pool:             m.Accounts[i.Accounts[3]],
		PoolMetadata:     m.Accounts[i.Accounts[4]],
		BondingCurve:     m.Accounts[i.Accounts[5]],
	}

	return &decompiled, nil
}

// Package amm quotes and builds buys against a constant-product bonding
// curve pool.
package amm

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrPoolNotFound         = errors.New("pool not found")
	ErrMalformedPoolAccount = errors.New("malformed pool account")
	ErrInvalidSlippage      = errors.New("slippage must be at most 10000 basis points")
)

// ProgramKey is the AMM program.
//
// Current key: 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P
var ProgramKey = ed25519.PublicKey(mustBase58Decode("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"))

type AccountType uint8

const (
	AccountTypeUnknown AccountType = iota
	AccountTypePool
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeBuy     InstructionType = 0x66
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

package amm

import (
	"crypto/ed25519"

	"github.com/code-payments/copy-trader/pkg/solana"
)

var (
	PoolPrefix         = []byte("pool")
	MetadataPrefix     = []byte("metadata")
	BondingCurvePrefix = []byte("bonding-curve")
)

// GetPoolAddress derives the pool holding the reserves for mint.
func GetPoolAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		PoolPrefix,
		mint,
	)
}

func GetPoolMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		MetadataPrefix,
		mint,
	)
}

func GetBondingCurveAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		BondingCurvePrefix,
		mint,
	)
}

// PoolAddresses are the program derived accounts a buy touches.
type PoolAddresses struct {
	Pool         ed25519.PublicKey
	Metadata     ed25519.PublicKey
	BondingCurve ed25519.PublicKey
}

func GetPoolAddresses(mint ed25519.PublicKey) (*PoolAddresses, error) {
	pool, _, err := GetPoolAddress(mint)
	if err != nil {
		return nil, err
	}
	metadata, _, err := GetPoolMetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	bondingCurve, _, err := GetBondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}

	return &PoolAddresses{
		Pool:         pool,
		Metadata:     metadata,
		BondingCurve: bondingCurve,
	}, nil
}

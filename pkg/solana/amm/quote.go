package amm

import (
	"github.com/holiman/uint256"
)

const MaxSlippageBps = 10_000

// QuoteBuy returns the tokens received for solIn lamports against the pool's
// virtual reserves, rounded down:
//
//	virtualToken * solIn / (virtualSol + solIn)
func QuoteBuy(solIn uint64, pool *PoolState) uint64 {
	if pool == nil || pool.VirtualSolReserve == 0 {
		return 0
	}

	numerator := new(uint256.Int).Mul(
		uint256.NewInt(pool.VirtualTokenReserve),
		uint256.NewInt(solIn),
	)
	denominator := new(uint256.Int).Add(
		uint256.NewInt(pool.VirtualSolReserve),
		uint256.NewInt(solIn),
	)

	// Bounded by the virtual token reserve, so it always fits
	return numerator.Div(numerator, denominator).Uint64()
}

// MinimumOut applies slippage to a quote, rounding down. Slippage above
// MaxSlippageBps is treated as MaxSlippageBps.
func MinimumOut(tokensOut, slippageBps uint64) uint64 {
	if slippageBps > MaxSlippageBps {
		slippageBps = MaxSlippageBps
	}

	v := new(uint256.Int).Mul(
		uint256.NewInt(tokensOut),
		uint256.NewInt(MaxSlippageBps-slippageBps),
	)
	return v.Div(v, uint256.NewInt(MaxSlippageBps)).Uint64()
}

type BuyQuote struct {
	SolIn        uint64
	TokensOut    uint64
	MinTokensOut uint64
	SlippageBps  uint64
}

func NewBuyQuote(pool *PoolState, solIn, slippageBps uint64) BuyQuote {
	tokensOut := QuoteBuy(solIn, pool)
	return BuyQuote{
		SolIn:        solIn,
		TokensOut:    tokensOut,
		MinTokensOut: MinimumOut(tokensOut, slippageBps),
		SlippageBps:  slippageBps,
	}
}

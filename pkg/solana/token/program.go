package token

import (
	"github.com/code-payments/copy-trader/pkg/solana"
)

// ProgramKey is the SPL token program that owns the traded mints.
var ProgramKey = solana.MustAddressFromText("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

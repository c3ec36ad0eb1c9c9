package system

import (
	"github.com/code-payments/copy-trader/pkg/solana"
)

// ProgramKey is the system program, which owns wallets and creates accounts.
var ProgramKey = solana.MustAddressFromText("11111111111111111111111111111111")

package memo

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/copy-trader/pkg/solana"
)

func TestInstruction(t *testing.T) {
	i, err := Instruction("hello, world!")
	require.NoError(t, err)
	assert.Equal(t, ProgramKey, i.Program)
	assert.Empty(t, i.Accounts)
	assert.Equal(t, "hello, world!", string(i.Data))

	for _, invalid := range []string{"", strings.Repeat("a", MaxMemoSize+1), string([]byte{0xff, 0xfe})} {
		_, err = Instruction(invalid)
		assert.ErrorIs(t, err, ErrInvalidMemo)
	}
}

func TestDecompile(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ixn, err := Instruction("hello, world")
	require.NoError(t, err)

	tx, err := solana.NewTransaction(solana.NewMessage(payer).AddInstruction(ixn).SetBlockhash(solana.Blockhash{1}))
	require.NoError(t, err)

	i, err := DecompileMemo(tx.Message, 0)
	assert.NoError(t, err)
	assert.Equal(t, "hello, world", string(i.Data))

	_, err = DecompileMemo(tx.Message, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "instruction doesn't exist")

	tx.Message.Accounts[1], _, err = ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = DecompileMemo(tx.Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

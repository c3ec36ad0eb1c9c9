package token

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/copy-trader/pkg/solana"
	"github.com/code-payments/copy-trader/pkg/testutil"
)

type accountStore map[string]solana.AccountInfo

func (s accountStore) serve(server *testutil.RPCServer) {
	server.Handle("getAccountInfo", func(params []interface{}) (interface{}, *jsonrpc.RPCError) {
		info, ok := s[params[0].(string)]
		if !ok {
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}, nil
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"data":       []string{base64.StdEncoding.EncodeToString(info.Data), "base64"},
				"executable": false,
				"lamports":   info.Lamports,
				"owner":      base58.Encode(info.Owner),
			},
		}, nil
	})
}

func TestEnsureAssociatedAccount_Missing(t *testing.T) {
	server := testutil.NewRPCServer(t)
	accountStore{}.serve(server)

	keys := testutil.GenerateSolanaKeys(t, 3)
	owner, mint, payer := keys[0], keys[1], keys[2]

	c := NewClient(solana.New(server.URL))

	result, err := c.EnsureAssociatedAccount(context.Background(), owner, mint, payer, solana.CommitmentConfirmed)
	require.NoError(t, err)

	expected, err := GetAssociatedAccount(owner, mint)
	require.NoError(t, err)
	assert.EqualValues(t, expected, result.Address)
	assert.Nil(t, result.Account)
	require.NotNil(t, result.Instruction)

	ixn, _, err := CreateAssociatedTokenAccountIdempotent(payer, owner, mint)
	require.NoError(t, err)
	assert.Equal(t, ixn, *result.Instruction)

	requests := server.Requests("getAccountInfo")
	require.Len(t, requests, 1)
	assert.Equal(t, base58.Encode(expected), requests[0].Params.([]interface{})[0])
}

func TestEnsureAssociatedAccount_Exists(t *testing.T) {
	server := testutil.NewRPCServer(t)

	keys := testutil.GenerateSolanaKeys(t, 3)
	owner, mint, payer := keys[0], keys[1], keys[2]

	addr, err := GetAssociatedAccount(owner, mint)
	require.NoError(t, err)

	account := Account{
		Mint:   mint,
		Owner:  owner,
		Amount: 42,
		State:  AccountStateInitialized,
	}
	accountStore{
		base58.Encode(addr): {Data: account.Marshal(), Owner: ProgramKey, Lamports: 2039280},
	}.serve(server)

	c := NewClient(solana.New(server.URL))

	result, err := c.EnsureAssociatedAccount(context.Background(), owner, mint, payer, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, addr, result.Address)
	assert.Nil(t, result.Instruction)
	require.NotNil(t, result.Account)
	assert.EqualValues(t, 42, result.Account.Amount)
	assert.Len(t, server.Requests("getAccountInfo"), 1)

	fetched, err := c.GetAccount(context.Background(), addr, mint, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, result.Account, fetched)

	_, err = c.GetAccount(context.Background(), owner, mint, solana.CommitmentConfirmed)
	assert.Equal(t, ErrAccountNotFound, err)
}

func TestEnsureAssociatedAccount_Invalid(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 4)
	owner, mint, payer, other := keys[0], keys[1], keys[2], keys[3]

	addr, err := GetAssociatedAccount(owner, mint)
	require.NoError(t, err)

	valid := Account{Mint: mint, Owner: owner, State: AccountStateInitialized}
	wrongMint := Account{Mint: other, Owner: owner, State: AccountStateInitialized}
	wrongOwner := Account{Mint: mint, Owner: other, State: AccountStateInitialized}
	uninitialized := Account{Mint: mint, Owner: owner}

	for _, info := range []solana.AccountInfo{
		{Data: valid.Marshal(), Owner: other},
		{Data: valid.Marshal()[:100], Owner: ProgramKey},
		{Data: wrongMint.Marshal(), Owner: ProgramKey},
		{Data: wrongOwner.Marshal(), Owner: ProgramKey},
		{Data: uninitialized.Marshal(), Owner: ProgramKey},
	} {
		server := testutil.NewRPCServer(t)
		accountStore{base58.Encode(addr): info}.serve(server)

		_, err := NewClient(solana.New(server.URL)).EnsureAssociatedAccount(context.Background(), owner, mint, payer, solana.CommitmentConfirmed)
		assert.ErrorIs(t, err, ErrInvalidTokenAccount)
	}
}

func TestEnsureAssociatedAccount_RPCFailure(t *testing.T) {
	server := testutil.NewRPCServer(t)
	server.FailWith(503, "unavailable")

	keys := testutil.GenerateSolanaKeys(t, 3)

	_, err := NewClient(solana.New(server.URL)).EnsureAssociatedAccount(context.Background(), keys[0], keys[1], keys[2], solana.CommitmentConfirmed)
	require.Error(t, err)

	var transportErr *solana.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 503, transportErr.StatusCode)
}

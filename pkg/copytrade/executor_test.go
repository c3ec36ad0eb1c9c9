package copytrade

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/copy-trader/pkg/metrics"
	"github.com/code-payments/copy-trader/pkg/solana"
	"github.com/code-payments/copy-trader/pkg/solana/amm"
	compute_budget "github.com/code-payments/copy-trader/pkg/solana/computebudget"
	"github.com/code-payments/copy-trader/pkg/solana/memo"
	"github.com/code-payments/copy-trader/pkg/solana/token"
	"github.com/code-payments/copy-trader/pkg/testutil"
)

const sourceSignature = "5wHu1qwD7q5ifaN5nwdcDqNFo53GJqa7nLp2BeeEpcHCusb4GzARz4GjgzsEHMkBMgCJMGa6GSQ1VG96Exv8kt2W"

// fakeNode is a minimal validator: it serves accounts, hands out a blockhash,
// accepts transactions, and reports them confirmed after a number of polls.
type fakeNode struct {
	t      *testing.T
	server *testutil.RPCServer

	mu             sync.Mutex
	accounts       map[string]solana.AccountInfo
	fees           []solana.PrioritizationFee
	blockhash      solana.Blockhash
	sent           []solana.Transaction
	pendingPolls   int
	statusPolls    int
	statusOverride map[string]interface{}
}

func newFakeNode(t *testing.T) *fakeNode {
	n := &fakeNode{
		t:         t,
		server:    testutil.NewRPCServer(t),
		accounts:  make(map[string]solana.AccountInfo),
		blockhash: solana.Blockhash{1, 2, 3},
	}

	n.server.Handle("getAccountInfo", n.getAccountInfo)
	n.server.Handle("getRecentPrioritizationFees", n.getRecentPrioritizationFees)
	n.server.Handle("getLatestBlockhash", n.getLatestBlockhash)
	n.server.Handle("sendTransaction", n.sendTransaction)
	n.server.Handle("getSignatureStatuses", n.getSignatureStatuses)

	return n
}

func (n *fakeNode) setAccount(address ed25519.PublicKey, info solana.AccountInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.accounts[base58.Encode(address)] = info
}

func (n *fakeNode) sentTransactions() []solana.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]solana.Transaction(nil), n.sent...)
}

func (n *fakeNode) getAccountInfo(params []interface{}) (interface{}, *jsonrpc.RPCError) {
	n.mu.Lock()
	info, ok := n.accounts[params[0].(string)]
	n.mu.Unlock()

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
}

func (n *fakeNode) getRecentPrioritizationFees(params []interface{}) (interface{}, *jsonrpc.RPCError) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fees == nil {
		return []interface{}{}, nil
	}
	return n.fees, nil
}

func (n *fakeNode) getLatestBlockhash(params []interface{}) (interface{}, *jsonrpc.RPCError) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 1},
		"value": map[string]interface{}{
			"blockhash":            n.blockhash.String(),
			"lastValidBlockHeight": 100,
		},
	}, nil
}

func (n *fakeNode) sendTransaction(params []interface{}) (interface{}, *jsonrpc.RPCError) {
	txn, err := solana.DecodeTransaction(params[0].(string))
	if err != nil {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: err.Error()}
	}
	if !txn.VerifySignatures() {
		return nil, &jsonrpc.RPCError{Code: -32003, Message: "Transaction signature verification failure"}
	}

	n.mu.Lock()
	n.sent = append(n.sent, txn)
	n.mu.Unlock()

	return txn.Signature().String(), nil
}

func (n *fakeNode) getSignatureStatuses(params []interface{}) (interface{}, *jsonrpc.RPCError) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.statusPolls++

	var status interface{}
	switch {
	case n.statusOverride != nil:
		status = n.statusOverride
	case len(n.sent) > 0 && n.statusPolls > n.pendingPolls:
		status = map[string]interface{}{
			"slot":               42,
			"confirmations":      1,
			"confirmationStatus": "confirmed",
			"err":                nil,
		}
	}

	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 42},
		"value":   []interface{}{status},
	}, nil
}

func setupPool(t *testing.T, node *fakeNode) (ed25519.PublicKey, *amm.PoolState) {
	mint := testutil.GenerateSolanaKeys(t, 1)[0]

	pool, _, err := amm.GetPoolAddress(mint)
	require.NoError(t, err)

	state := &amm.PoolState{
		Version:             1,
		TokenMint:           mint,
		RealTokenReserve:    793_100_000_000_000,
		VirtualSolReserve:   30_000_000_000,
		VirtualTokenReserve: 1_073_000_000_000_000,
	}
	node.setAccount(pool, solana.AccountInfo{Data: state.Marshal(), Owner: amm.ProgramKey, Lamports: 1_000_000})

	return mint, state
}

func setupExecutor(t *testing.T, node *fakeNode, overrides *testOverrides) (*Executor, solana.KeyPair) {
	wallet, err := solana.NewRandomKeyPair()
	require.NoError(t, err)

	executor, err := NewExecutor(solana.New(node.server.URL), wallet, withManualTestOverrides(overrides))
	require.NoError(t, err)

	return executor, wallet
}

func isProgram(m solana.Message, index int, program ed25519.PublicKey) bool {
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], program)
}

func TestBuy_CreatesTokenAccount(t *testing.T) {
	node := newFakeNode(t)
	node.fees = []solana.PrioritizationFee{{Slot: 1, Fee: 300}, {Slot: 2, Fee: 100}, {Slot: 3, Fee: 200}}
	node.pendingPolls = 2

	mint, pool := setupPool(t, node)
	executor, wallet := setupExecutor(t, node, defaultTestOverrides())

	result, err := executor.Buy(context.Background(), BuyRequest{
		Mint:            mint,
		SolIn:           1_000_000_000,
		SourceSignature: sourceSignature,
	})
	require.NoError(t, err)

	assert.Equal(t, amm.NewBuyQuote(pool, 1_000_000_000, 500), result.Quote)
	assert.EqualValues(t, 34_612_903_225_806, result.Quote.TokensOut)
	assert.EqualValues(t, 32_882_258_064_515, result.Quote.MinTokensOut)
	assert.True(t, result.CreatedTokenAccount)
	assert.EqualValues(t, 200, result.ComputeUnitPrice)
	require.NotNil(t, result.Status)
	assert.EqualValues(t, 42, result.Status.Slot)
	assert.Contains(t, result.String(), result.Signature.String())

	expectedATA, err := token.GetAssociatedAccount(wallet.PublicKey(), mint)
	require.NoError(t, err)
	assert.EqualValues(t, expectedATA, result.TokenAccount)

	sent := node.sentTransactions()
	require.Len(t, sent, 1)
	txn := sent[0]
	assert.Equal(t, result.Signature, txn.Signature())
	assert.Equal(t, node.blockhash, txn.Message.RecentBlockhash)
	assert.EqualValues(t, wallet.PublicKey(), txn.Message.Accounts[0])

	// limit, price, create account, buy, memo
	require.Len(t, txn.Message.Instructions, 5)

	require.True(t, isProgram(txn.Message, 0, compute_budget.ProgramKey))
	limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(txn.Message.Instructions[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, defaultComputeUnitLimit, limit)

	require.True(t, isProgram(txn.Message, 1, compute_budget.ProgramKey))
	price, err := compute_budget.ParseSetComputeUnitPriceIxnData(txn.Message.Instructions[1].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 200, price)

	create, err := token.DecompileCreateAssociatedAccount(txn.Message, 2)
	require.NoError(t, err)
	assert.EqualValues(t, expectedATA, create.Address)
	assert.EqualValues(t, wallet.PublicKey(), create.Owner)
	assert.EqualValues(t, mint, create.Mint)

	buy, err := amm.DecompileBuyInstruction(txn.Message, 3)
	require.NoError(t, err)
	addresses, err := amm.GetPoolAddresses(mint)
	require.NoError(t, err)
	assert.EqualValues(t, wallet.PublicKey(), buy.Accounts.User)
	assert.EqualValues(t, mint, buy.Accounts.Mint)
	assert.EqualValues(t, expectedATA, buy.Accounts.UserTokenAccount)
	assert.EqualValues(t, addresses.Pool, buy.Accounts.Pool)
	assert.EqualValues(t, addresses.Metadata, buy.Accounts.PoolMetadata)
	assert.EqualValues(t, addresses.BondingCurve, buy.Accounts.BondingCurve)
	assert.EqualValues(t, 1_000_000_000, buy.Args.SolIn)
	assert.EqualValues(t, 32_882_258_064_515, buy.Args.MinTokensOut)

	decompiledMemo, err := memo.DecompileMemo(txn.Message, 4)
	require.NoError(t, err)
	assert.Equal(t, memoPrefix+sourceSignature, string(decompiledMemo.Data))

	// One read each for the pool and the token account
	assert.Len(t, node.server.Requests("getAccountInfo"), 2)
	assert.Len(t, node.server.Requests("getRecentPrioritizationFees"), 1)
	assert.Len(t, node.server.Requests("getSignatureStatuses"), 3)
}

func TestBuy_ExistingTokenAccount(t *testing.T) {
	node := newFakeNode(t)

	mint, _ := setupPool(t, node)

	overrides := defaultTestOverrides()
	overrides.computeUnitPrice = 10_000
	overrides.enableMemo = false
	overrides.slippageBps = 100
	executor, wallet := setupExecutor(t, node, overrides)

	ata, err := token.GetAssociatedAccount(wallet.PublicKey(), mint)
	require.NoError(t, err)
	account := token.Account{
		Mint:  mint,
		Owner: wallet.PublicKey(),
		State: token.AccountStateInitialized,
	}
	node.setAccount(ata, solana.AccountInfo{Data: account.Marshal(), Owner: token.ProgramKey, Lamports: 2_039_280})

	result, err := executor.Buy(context.Background(), BuyRequest{
		Mint:            mint,
		SolIn:           1_000_000_000,
		SourceSignature: sourceSignature,
	})
	require.NoError(t, err)
	assert.False(t, result.CreatedTokenAccount)
	assert.EqualValues(t, 10_000, result.ComputeUnitPrice)
	assert.EqualValues(t, 100, result.Quote.SlippageBps)

	// The configured price never asks the node
	assert.Empty(t, node.server.Requests("getRecentPrioritizationFees"))

	sent := node.sentTransactions()
	require.Len(t, sent, 1)

	// limit, price, buy
	require.Len(t, sent[0].Message.Instructions, 3)
	buy, err := amm.DecompileBuyInstruction(sent[0].Message, 2)
	require.NoError(t, err)
	assert.EqualValues(t, ata, buy.Accounts.UserTokenAccount)
	assert.Equal(t, result.Quote.MinTokensOut, buy.Args.MinTokensOut)
}

func TestBuy_NoPriorityFee(t *testing.T) {
	node := newFakeNode(t)

	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	result, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000})
	require.NoError(t, err)
	assert.Zero(t, result.ComputeUnitPrice)

	// No fee samples and no source signature: limit, create account, buy
	sent := node.sentTransactions()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Message.Instructions, 3)
	_, err = amm.DecompileBuyInstruction(sent[0].Message, 2)
	assert.NoError(t, err)
}

func TestBuy_ZeroQuote(t *testing.T) {
	node := newFakeNode(t)

	mint := testutil.GenerateSolanaKeys(t, 1)[0]
	pool, _, err := amm.GetPoolAddress(mint)
	require.NoError(t, err)
	state := &amm.PoolState{
		Version:             1,
		TokenMint:           mint,
		VirtualSolReserve:   30_000_000_000,
		VirtualTokenReserve: 10,
	}
	node.setAccount(pool, solana.AccountInfo{Data: state.Marshal(), Owner: amm.ProgramKey})

	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000})
	assert.True(t, errors.Is(err, ErrZeroQuote))

	assert.Empty(t, node.server.Requests("getLatestBlockhash"))
	assert.Empty(t, node.server.Requests("sendTransaction"))
}

func TestBuy_PoolNotFound(t *testing.T) {
	node := newFakeNode(t)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	_, err := executor.Buy(context.Background(), BuyRequest{
		Mint:  testutil.GenerateSolanaKeys(t, 1)[0],
		SolIn: 1_000,
	})
	assert.True(t, errors.Is(err, amm.ErrPoolNotFound))
	assert.Empty(t, node.server.Requests("sendTransaction"))
}

func TestBuy_InvalidInput(t *testing.T) {
	node := newFakeNode(t)
	mint, _ := setupPool(t, node)

	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	_, err := executor.Buy(context.Background(), BuyRequest{SolIn: 1})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	overrides := defaultTestOverrides()
	overrides.slippageBps = amm.MaxSlippageBps + 1
	executor, _ = setupExecutor(t, node, overrides)
	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1})
	assert.True(t, errors.Is(err, amm.ErrInvalidSlippage))

	overrides = defaultTestOverrides()
	overrides.commitment = "eventually"
	executor, _ = setupExecutor(t, node, overrides)
	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	overrides = defaultTestOverrides()
	overrides.computeUnitLimit = compute_budget.MaxComputeUnitLimit + 1
	executor, _ = setupExecutor(t, node, overrides)
	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	assert.Empty(t, node.server.Requests("getAccountInfo"))

	_, err = NewExecutor(solana.New(node.server.URL), solana.KeyPair{}, withManualTestOverrides(defaultTestOverrides()))
	assert.Error(t, err)
}

func TestBuy_TransactionFailed(t *testing.T) {
	node := newFakeNode(t)
	node.statusOverride = map[string]interface{}{
		"slot":               42,
		"confirmations":      1,
		"confirmationStatus": "confirmed",
		"err":                map[string]interface{}{"InstructionError": []interface{}{3, map[string]interface{}{"Custom": 6003}}},
	}

	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	result, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	assert.True(t, errors.Is(err, ErrTransactionFailed))

	// The caller still learns what was sent
	require.NotNil(t, result)
	assert.False(t, result.Signature.IsZero())
	require.NotNil(t, result.Status)
	require.NotNil(t, result.Status.ErrorResult)
	require.NotNil(t, result.Status.ErrorResult.InstructionError())
	assert.Equal(t, 3, result.Status.ErrorResult.InstructionError().Index)

	// Failures are final
	assert.Len(t, node.server.Requests("getSignatureStatuses"), 1)
}

func TestBuy_SendRejected(t *testing.T) {
	node := newFakeNode(t)
	node.server.Handle("sendTransaction", func([]interface{}) (interface{}, *jsonrpc.RPCError) {
		return nil, &jsonrpc.RPCError{
			Code:    solana.SendTransactionPreflightFailureCode,
			Message: "Transaction simulation failed",
			Data: map[string]interface{}{
				"err":  map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6002}}},
				"logs": []string{"Program log: Error: slippage"},
			},
		}
	})

	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())
	logs := testutil.CaptureLogs(t)

	result, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	assert.Nil(t, result)

	var warned bool
	for _, entry := range logs.AllEntries() {
		if entry.Message == "failed to submit transaction" {
			warned = true
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.NotEmpty(t, entry.Data["signature"])
		}
	}
	assert.True(t, warned)

	var rpcErr *solana.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, solana.SendTransactionPreflightFailureCode, rpcErr.Code)
	require.NotNil(t, rpcErr.TxError)
	assert.Equal(t, []string{"Program log: Error: slippage"}, rpcErr.Logs)

	assert.Empty(t, node.server.Requests("getSignatureStatuses"))
}

func TestBuy_BlockhashRetry(t *testing.T) {
	node := newFakeNode(t)

	var calls int
	node.server.Handle("getLatestBlockhash", func(params []interface{}) (interface{}, *jsonrpc.RPCError) {
		calls++
		if calls == 1 {
			return nil, &jsonrpc.RPCError{Code: solana.NodeUnhealthyCode, Message: "Node is behind"}
		}
		return node.getLatestBlockhash(params)
	})

	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	_, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	require.NoError(t, err)
	assert.Len(t, node.server.Requests("getLatestBlockhash"), 2)
}

func TestBuy_BlockhashNonTransientError(t *testing.T) {
	node := newFakeNode(t)
	node.server.Handle("getLatestBlockhash", func([]interface{}) (interface{}, *jsonrpc.RPCError) {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: "Invalid params"}
	})

	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	_, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	var rpcErr *solana.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Len(t, node.server.Requests("getLatestBlockhash"), 1)
	assert.Empty(t, node.server.Requests("sendTransaction"))
}

func TestBuy_PoolAddressesCached(t *testing.T) {
	node := newFakeNode(t)
	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	for i := 0; i < 2; i++ {
		_, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
		require.NoError(t, err)
	}

	cached, ok := executor.poolAddresses.Retrieve(solana.AddressToText(mint))
	require.True(t, ok)
	expected, err := amm.GetPoolAddresses(mint)
	require.NoError(t, err)
	assert.Equal(t, expected, cached)
	assert.Equal(t, 1, executor.poolAddresses.GetWeight())

	// Pool state is never cached
	assert.Len(t, node.sentTransactions(), 2)
}

func TestWaitForConfirmation_Timeout(t *testing.T) {
	node := newFakeNode(t)

	overrides := defaultTestOverrides()
	overrides.confirmationTimeout = 50 * time.Millisecond
	executor, _ := setupExecutor(t, node, overrides)

	status, err := executor.WaitForConfirmation(context.Background(), solana.Signature{1}, solana.CommitmentConfirmed)
	assert.True(t, errors.Is(err, ErrConfirmationTimeout))
	assert.Nil(t, status)
	assert.True(t, len(node.server.Requests("getSignatureStatuses")) > 1)
}

func TestWaitForConfirmation_Commitment(t *testing.T) {
	node := newFakeNode(t)
	node.statusOverride = map[string]interface{}{
		"slot":               42,
		"confirmations":      3,
		"confirmationStatus": "confirmed",
		"err":                nil,
	}

	overrides := defaultTestOverrides()
	overrides.confirmationTimeout = 50 * time.Millisecond
	executor, _ := setupExecutor(t, node, overrides)

	// Confirmed isn't enough for finalized
	status, err := executor.WaitForConfirmation(context.Background(), solana.Signature{1}, solana.CommitmentFinalized)
	assert.True(t, errors.Is(err, ErrConfirmationTimeout))
	require.NotNil(t, status)
	assert.Equal(t, "confirmed", status.ConfirmationStatus)

	status, err = executor.WaitForConfirmation(context.Background(), solana.Signature{1}, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 42, status.Slot)
}

func TestWaitForConfirmation_ContextCancelled(t *testing.T) {
	node := newFakeNode(t)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := executor.WaitForConfirmation(ctx, solana.Signature{1}, solana.CommitmentConfirmed)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrConfirmationTimeout))
}

func TestMedianFee(t *testing.T) {
	for _, tc := range []struct {
		fees     []uint64
		expected uint64
	}{
		{nil, 0},
		{[]uint64{5}, 5},
		{[]uint64{1, 9}, 9},
		{[]uint64{300, 100, 200}, 200},
		{[]uint64{0, 0, 0, 50}, 0},
		{[]uint64{7, 1, 3, 5}, 5},
	} {
		var fees []solana.PrioritizationFee
		for i, fee := range tc.fees {
			fees = append(fees, solana.PrioritizationFee{Slot: uint64(i), Fee: fee})
		}
		assert.Equal(t, tc.expected, medianFee(fees), tc.fees)
	}
}

func TestBuy_RateLimited(t *testing.T) {
	node := newFakeNode(t)
	mint, _ := setupPool(t, node)
	otherMint, _ := setupPool(t, node)

	overrides := defaultTestOverrides()
	overrides.maxBuysPerMintPerMinute = 1
	executor, _ := setupExecutor(t, node, overrides)

	_, err := executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	require.NoError(t, err)

	_, err = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	assert.True(t, errors.Is(err, ErrRateLimited))

	_, err = executor.Buy(context.Background(), BuyRequest{Mint: otherMint, SolIn: 1_000_000_000})
	require.NoError(t, err)

	assert.Len(t, node.sentTransactions(), 2)
}

func TestBuy_Concurrent(t *testing.T) {
	node := newFakeNode(t)
	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = executor.Buy(context.Background(), BuyRequest{Mint: mint, SolIn: uint64(i+1) * 1_000_000})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	sent := node.sentTransactions()
	require.Len(t, sent, 4)

	signatures := make(map[solana.Signature]struct{})
	for _, txn := range sent {
		signatures[txn.Signature()] = struct{}{}
	}
	assert.Len(t, signatures, 4)
}

func TestBuy_WithNewRelicApp(t *testing.T) {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName("copytrade-test"),
		newrelic.ConfigEnabled(false),
	)
	require.NoError(t, err)
	defer app.Shutdown(time.Second)

	node := newFakeNode(t)
	mint, _ := setupPool(t, node)
	executor, _ := setupExecutor(t, node, defaultTestOverrides())

	ctx := metrics.WithNewRelicApp(context.Background(), app)

	_, err = executor.Buy(ctx, BuyRequest{Mint: mint, SolIn: 1_000_000_000})
	require.NoError(t, err)

	_, err = executor.Buy(ctx, BuyRequest{Mint: mint})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

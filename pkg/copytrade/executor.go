package copytrade

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/copy-trader/pkg/cache"
	"github.com/code-payments/copy-trader/pkg/metrics"
	"github.com/code-payments/copy-trader/pkg/pointer"
	"github.com/code-payments/copy-trader/pkg/rate"
	"github.com/code-payments/copy-trader/pkg/retry"
	"github.com/code-payments/copy-trader/pkg/retry/backoff"
	"github.com/code-payments/copy-trader/pkg/solana"
	"github.com/code-payments/copy-trader/pkg/solana/amm"
	compute_budget "github.com/code-payments/copy-trader/pkg/solana/computebudget"
	"github.com/code-payments/copy-trader/pkg/solana/memo"
	"github.com/code-payments/copy-trader/pkg/solana/token"
	"github.com/code-payments/copy-trader/pkg/sync"
)

const (
	memoPrefix = "copy:"

	poolAddressCacheBudget = 1024
	mintLockStripes        = 64

	blockhashAttempts   = 3
	blockhashBackoff    = 100 * time.Millisecond
	maxBlockhashBackoff = time.Second
	blockhashJitter     = 0.2
)

var (
	ErrInvalidRequest      = errors.New("invalid buy request")
	ErrInvalidConfig       = errors.New("invalid executor config")
	ErrZeroQuote           = errors.New("quote yields zero tokens")
	ErrRateLimited         = errors.New("too many buys for mint")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")

	errNotConfirmed = errors.New("transaction not confirmed")
)

// BuyRequest mirrors a buy observed from a copied wallet.
type BuyRequest struct {
	Mint  ed25519.PublicKey
	SolIn uint64

	// SourceSignature is the copied transaction. When set, and memos are
	// enabled, it's attached to our transaction as a memo.
	SourceSignature string
}

// BuyResult describes a submitted buy. It's returned alongside confirmation
// errors so the caller still learns the signature.
type BuyResult struct {
	Signature           solana.Signature
	Quote               amm.BuyQuote
	TokenAccount        ed25519.PublicKey
	CreatedTokenAccount bool
	ComputeUnitPrice    uint64
	Status              *solana.SignatureStatus
}

// Executor submits buys against the AMM from a single wallet.
type Executor struct {
	log  *logrus.Entry
	conf *conf

	sc     solana.Client
	amm    *amm.Client
	token  *token.Client
	wallet solana.KeyPair

	poolAddresses cache.Cache[*amm.PoolAddresses]
	mintLocks     *sync.StripedLock
	limiter       rate.Limiter
}

func NewExecutor(sc solana.Client, wallet solana.KeyPair, configProvider ConfigProvider) (*Executor, error) {
	if wallet.IsZero() {
		return nil, errors.New("wallet is required")
	}

	conf := configProvider()

	var limiter rate.Limiter = &rate.NoLimiter{}
	if perMinute := conf.maxBuysPerMintPerMinute.Get(context.Background()); perMinute > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(float64(perMinute)/60), 1)
	}

	return &Executor{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":   "copytrade/executor",
			"wallet": solana.AddressToText(wallet.PublicKey()),
		}),
		conf:          conf,
		sc:            sc,
		amm:           amm.NewClient(sc),
		token:         token.NewClient(sc),
		wallet:        wallet,
		poolAddresses: cache.NewCache[*amm.PoolAddresses](poolAddressCacheBudget),
		mintLocks:     sync.NewStripedLock(mintLockStripes),
		limiter:       limiter,
	}, nil
}

// Buy quotes, builds, signs and submits a buy for req, then waits for it to
// reach the configured commitment. Nothing is sent when the quote is zero.
//
// Buys for the same mint are serialized through confirmation.
func (e *Executor) Buy(ctx context.Context, req BuyRequest) (*BuyResult, error) {
	ctx, end := metrics.StartTransaction(ctx, buyTransactionName)
	defer end()

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Buy")
	defer tracer.End()

	if len(req.Mint) == ed25519.PublicKeySize {
		tracer.AddAttribute("mint", solana.AddressToText(req.Mint))
	}
	tracer.AddAttribute("sol_in", req.SolIn)

	result, err := e.buy(ctx, &req)
	if err != nil {
		tracer.OnError(err)
		recordBuyFailed(ctx)
	}
	return result, err
}

func (e *Executor) buy(ctx context.Context, req *BuyRequest) (*BuyResult, error) {
	if len(req.Mint) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidRequest, "mint is required")
	}
	if req.SolIn == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "sol in must be positive")
	}

	mintKey := solana.AddressToText(req.Mint)
	if !e.limiter.Allow(mintKey) {
		return nil, errors.Wrap(ErrRateLimited, mintKey)
	}

	unlock := e.mintLocks.Lock(req.Mint)
	defer unlock()

	log := e.log.WithFields(logrus.Fields{
		"method":           "Buy",
		"mint":             mintKey,
		"sol_in":           req.SolIn,
		"source_signature": req.SourceSignature,
	})

	commitment, err := solana.ParseCommitment(e.conf.commitment.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	slippageBps := e.conf.slippageBps.Get(ctx)
	if slippageBps > amm.MaxSlippageBps {
		return nil, errors.Wrapf(amm.ErrInvalidSlippage, "%d", slippageBps)
	}

	computeUnitLimit := e.conf.computeUnitLimit.Get(ctx)
	if computeUnitLimit == 0 || computeUnitLimit > compute_budget.MaxComputeUnitLimit {
		return nil, errors.Wrapf(ErrInvalidConfig, "compute unit limit %d", computeUnitLimit)
	}

	addresses, err := e.getPoolAddresses(req.Mint)
	if err != nil {
		return nil, err
	}

	pool, err := e.amm.GetPoolStateAt(ctx, addresses.Pool, req.Mint, commitment)
	if err != nil {
		return nil, err
	}

	quote := amm.NewBuyQuote(pool, req.SolIn, slippageBps)
	if quote.TokensOut == 0 {
		return nil, errors.Wrapf(ErrZeroQuote, "%d lamports", req.SolIn)
	}

	ata, err := e.token.EnsureAssociatedAccount(ctx, e.wallet.PublicKey(), req.Mint, e.wallet.PublicKey(), commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve token account")
	}

	computeUnitPrice := e.getComputeUnitPrice(ctx, addresses.Pool)

	instructions := []solana.Instruction{
		compute_budget.SetComputeUnitLimit(uint32(computeUnitLimit)),
	}
	if computeUnitPrice > 0 {
		instructions = append(instructions, compute_budget.SetComputeUnitPrice(computeUnitPrice))
	}
	if ata.Instruction != nil {
		instructions = append(instructions, *ata.Instruction)
	}
	instructions = append(instructions, amm.NewBuyInstruction(
		&amm.BuyInstructionAccounts{
			User:             e.wallet.PublicKey(),
			Mint:             req.Mint,
			UserTokenAccount: ata.Address,
			Pool:             addresses.Pool,
			PoolMetadata:     addresses.Metadata,
			BondingCurve:     addresses.BondingCurve,
		},
		&amm.BuyInstructionArgs{
			SolIn:        quote.SolIn,
			MinTokensOut: quote.MinTokensOut,
		},
	))
	if e.conf.enableMemo.Get(ctx) && len(req.SourceSignature) > 0 {
		memoIxn, err := memo.Instruction(memoPrefix + req.SourceSignature)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build memo")
		}
		instructions = append(instructions, memoIxn)
	}

	blockhash, err := e.getLatestBlockhash(ctx, commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest blockhash")
	}

	msg := solana.NewMessage(e.wallet.PublicKey()).
		AddInstruction(instructions...).
		SetBlockhash(blockhash.Blockhash)

	txn, err := solana.NewTransaction(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile transaction")
	}
	if err := txn.Sign(e.wallet); err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	raw, err := txn.Marshal()
	if err != nil {
		return nil, err
	}

	log = log.WithFields(logrus.Fields{
		"signature":      txn.Signature().String(),
		"tokens_out":     quote.TokensOut,
		"min_tokens_out": quote.MinTokensOut,
	})

	sig, err := e.sc.SendTransaction(ctx, raw, solana.SendOptions{
		SkipPreflight:       e.conf.skipPreflight.Get(ctx),
		PreflightCommitment: commitment,
		MaxRetries:          pointer.Uint64IfNonZero(e.conf.maxSendRetries.Get(ctx)),
	})
	if err != nil {
		log.WithError(err).Warn("failed to submit transaction")
		return nil, errors.Wrap(err, "failed to submit transaction")
	}
	if sig != txn.Signature() {
		return nil, errors.Errorf("node returned signature %s for transaction %s", sig, txn.Signature())
	}

	result := &BuyResult{
		Signature:           sig,
		Quote:               quote,
		TokenAccount:        ata.Address,
		CreatedTokenAccount: ata.Instruction != nil,
		ComputeUnitPrice:    computeUnitPrice,
	}

	log.Debug("submitted buy")
	recordBuySubmittedEvent(ctx, req, result)

	result.Status, err = e.WaitForConfirmation(ctx, sig, commitment)
	if err != nil {
		log.WithError(err).Warn("buy did not confirm")
		return result, err
	}

	log.WithField("slot", result.Status.Slot).Debug("buy confirmed")
	return result, nil
}

// WaitForConfirmation polls the status of sig until it reaches commitment,
// fails on chain, the configured timeout elapses, or ctx ends. The last
// observed status, if any, is always returned.
func (e *Executor) WaitForConfirmation(ctx context.Context, sig solana.Signature, commitment solana.Commitment) (*solana.SignatureStatus, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "WaitForConfirmation")
	defer tracer.End()

	timeout := e.conf.confirmationTimeout.Get(ctx)
	pollInterval := e.conf.confirmationPollInterval.Get(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var status *solana.SignatureStatus
	_, err := retry.RetryWithContext(
		waitCtx,
		func() error {
			s, err := e.sc.GetSignatureStatus(waitCtx, sig)
			if errors.Is(err, solana.ErrSignatureNotFound) {
				return errNotConfirmed
			} else if err != nil {
				return err
			}

			status = s
			if s.ErrorResult != nil {
				return errors.Wrap(ErrTransactionFailed, s.ErrorResult.Error())
			}
			if !s.Satisfies(commitment) {
				return errNotConfirmed
			}
			return nil
		},
		retry.NonRetriableErrors(ErrTransactionFailed),
		retry.BackoffWithContext(waitCtx, backoff.Constant(pollInterval), pollInterval),
	)

	switch {
	case err == nil:
		recordConfirmationLatency(ctx, time.Since(start))
		return status, nil
	case errors.Is(err, ErrTransactionFailed):
		tracer.OnError(err)
		return status, err
	case ctx.Err() != nil:
		return status, ctx.Err()
	case waitCtx.Err() != nil:
		recordConfirmationTimeoutEvent(ctx, sig, timeout)
		return status, errors.Wrapf(ErrConfirmationTimeout, "%s after %s", sig, timeout)
	default:
		tracer.OnError(err)
		return status, err
	}
}

func (e *Executor) getPoolAddresses(mint ed25519.PublicKey) (*amm.PoolAddresses, error) {
	key := solana.AddressToText(mint)
	if cached, ok := e.poolAddresses.Retrieve(key); ok {
		return cached, nil
	}

	addresses, err := amm.GetPoolAddresses(mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive pool addresses")
	}

	// A concurrent buy for the same mint may have inserted first
	_ = e.poolAddresses.Insert(key, addresses, 1)
	return addresses, nil
}

// getComputeUnitPrice returns the configured price, or the median of the
// recent prioritization fees paid for the pool. Fee lookup failures fall back
// to no priority fee.
func (e *Executor) getComputeUnitPrice(ctx context.Context, pool ed25519.PublicKey) uint64 {
	if price := e.conf.computeUnitPrice.Get(ctx); price > 0 {
		return price
	}

	fees, err := e.sc.GetRecentPrioritizationFees(ctx, pool)
	if err != nil {
		e.log.WithError(err).Warn("failed to get recent prioritization fees")
		return 0
	}
	return medianFee(fees)
}

// medianFee returns the upper median for an even number of samples.
func medianFee(fees []solana.PrioritizationFee) uint64 {
	if len(fees) == 0 {
		return 0
	}

	values := make([]uint64, len(fees))
	for i, fee := range fees {
		values[i] = fee.Fee
	}
	slices.Sort(values)
	return values[len(values)/2]
}

func (e *Executor) getLatestBlockhash(ctx context.Context, commitment solana.Commitment) (solana.LatestBlockhash, error) {
	var blockhash solana.LatestBlockhash
	_, err := retry.RetryWithContext(
		ctx,
		func() error {
			var err error
			blockhash, err = e.sc.GetLatestBlockhash(ctx, commitment)
			return err
		},
		retry.Limit(blockhashAttempts),
		retry.RetriableIf(isTransientRPCError),
		retry.BackoffWithJitter(ctx, backoff.BinaryExponential(blockhashBackoff), maxBlockhashBackoff, blockhashJitter),
	)
	return blockhash, err
}

func isTransientRPCError(err error) bool {
	var transportErr *solana.TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var rpcErr *solana.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == solana.NodeUnhealthyCode
}

func (r *BuyResult) String() string {
	return fmt.Sprintf(
		"buy %s: %d lamports for >= %d tokens (quoted %d) into %s",
		r.Signature,
		r.Quote.SolIn,
		r.Quote.MinTokensOut,
		r.Quote.TokensOut,
		solana.AddressToText(r.TokenAccount),
	)
}

package amm

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/copy-trader/pkg/solana"
)

// Client reads pool state from chain.
type Client struct {
	log *logrus.Entry
	sc  solana.Client
}

func NewClient(sc solana.Client) *Client {
	return &Client{
		log: logrus.StandardLogger().WithField("type", "solana/amm/client"),
		sc:  sc,
	}
}

// GetPoolState fetches the current reserves of the pool for mint. Every call
// reads the chain; callers must not reuse a snapshot across trades.
func (c *Client) GetPoolState(ctx context.Context, mint ed25519.PublicKey, commitment solana.Commitment) (*PoolState, error) {
	pool, _, err := GetPoolAddress(mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive pool address")
	}

	return c.GetPoolStateAt(ctx, pool, mint, commitment)
}

// GetPoolStateAt is GetPoolState for an already derived pool address.
func (c *Client) GetPoolStateAt(ctx context.Context, pool, mint ed25519.PublicKey, commitment solana.Commitment) (*PoolState, error) {
	log := c.log.WithFields(logrus.Fields{
		"method": "GetPoolState",
		"mint":   solana.AddressToText(mint),
		"pool":   solana.AddressToText(pool),
	})

	accountInfo, err := c.sc.GetAccountInfo(ctx, pool, commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, errors.Wrapf(ErrPoolNotFound, "no pool for mint %s", solana.AddressToText(mint))
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get pool account")
	}

	if !bytes.Equal(accountInfo.Owner, ProgramKey) {
		return nil, errors.Wrapf(ErrMalformedPoolAccount, "owned by %s", solana.AddressToText(accountInfo.Owner))
	}

	var state PoolState
	if err := state.Unmarshal(accountInfo.Data); err != nil {
		log.WithError(err).Warn("failed to decode pool account")
		return nil, err
	}

	if !bytes.Equal(state.TokenMint, mint) {
		return nil, errors.Wrapf(ErrMalformedPoolAccount, "pool is for mint %s", solana.AddressToText(state.TokenMint))
	}

	log.WithFields(logrus.Fields{
		"virtual_sol_reserve":   state.VirtualSolReserve,
		"virtual_token_reserve": state.VirtualTokenReserve,
	}).Trace("fetched pool state")

	return &state, nil
}

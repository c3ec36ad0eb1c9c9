package token

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/copy-trader/pkg/solana"
)

var (
	// ErrAccountNotFound indicates there is no account for the given address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTokenAccount indicates that a Solana account exists at the
	// given address, but it is either not initialized, or not configured correctly.
	ErrInvalidTokenAccount = errors.New("invalid token account")
)

// Client provides utilities for accessing token accounts.
type Client struct {
	log *logrus.Entry
	sc  solana.Client
}

// NewClient creates a new Client.
func NewClient(sc solana.Client) *Client {
	return &Client{
		log: logrus.StandardLogger().WithField("type", "solana/token/client"),
		sc:  sc,
	}
}

// GetAccount returns the token account info for the specified account.
//
// If the account is not initialized, or belongs to a different
// mint, then ErrInvalidTokenAccount is returned.
func (c *Client) GetAccount(ctx context.Context, accountID, mint ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	accountInfo, err := c.sc.GetAccountInfo(ctx, accountID, commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	return parseAccount(accountInfo, mint)
}

// EnsureResult is the associated account for an (owner, mint) pair.
// Instruction is set when the account does not exist yet and must be created
// by the transaction that uses it.
type EnsureResult struct {
	Address     ed25519.PublicKey
	Account     *Account
	Instruction *solana.Instruction
}

// EnsureAssociatedAccount looks up the associated account of owner for mint
// with a single read. Nothing is written: if the account is missing, the
// returned instruction creates it, paid for by payer.
func (c *Client) EnsureAssociatedAccount(ctx context.Context, owner, mint, payer ed25519.PublicKey, commitment solana.Commitment) (*EnsureResult, error) {
	log := c.log.WithFields(logrus.Fields{
		"method": "EnsureAssociatedAccount",
		"owner":  solana.AddressToText(owner),
		"mint":   solana.AddressToText(mint),
	})

	addr, err := GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive associated account")
	}

	accountInfo, err := c.sc.GetAccountInfo(ctx, addr, commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		ixn, _, err := CreateAssociatedTokenAccountIdempotent(payer, owner, mint)
		if err != nil {
			return nil, err
		}

		log.Debug("associated account does not exist")
		return &EnsureResult{
			Address:     addr,
			Instruction: &ixn,
		}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	account, err := parseAccount(accountInfo, mint)
	if err != nil {
		log.WithError(err).Warn("associated account is not a valid token account")
		return nil, err
	}
	if !bytes.Equal(account.Owner, owner) {
		return nil, errors.Wrap(ErrInvalidTokenAccount, "owner mismatch")
	}

	return &EnsureResult{
		Address: addr,
		Account: account,
	}, nil
}

func parseAccount(accountInfo solana.AccountInfo, mint ed25519.PublicKey) (*Account, error) {
	if !bytes.Equal(accountInfo.Owner, ProgramKey) {
		return nil, errors.Wrap(ErrInvalidTokenAccount, "not owned by the token program")
	}

	var account Account
	if err := account.Unmarshal(accountInfo.Data); err != nil {
		return nil, errors.Wrap(ErrInvalidTokenAccount, err.Error())
	}
	if account.State == AccountStateUninitialized {
		return nil, errors.Wrap(ErrInvalidTokenAccount, "uninitialized")
	}
	if !bytes.Equal(mint, account.Mint) {
		return nil, errors.Wrap(ErrInvalidTokenAccount, "mint mismatch")
	}

	return &account, nil
}

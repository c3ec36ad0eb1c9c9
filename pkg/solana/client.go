package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

const (
	jsonrpcVersion = "2.0"

	maxResponseSize  = 16 << 20
	maxErrorBodySize = 512

	// Reference: https://github.com/solana-labs/solana/blob/14d793b22c1571fb092d5822189d5b64f32605e6/client/src/rpc_custom_error.rs#L10
	SendTransactionPreflightFailureCode = -32002
	NodeUnhealthyCode                   = -32005
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// ParseCommitment maps a commitment level name to a Commitment.
func ParseCommitment(level string) (Commitment, error) {
	switch level {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	}
	return Commitment{}, errors.Errorf("unknown commitment level %q", level)
}

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type LatestBlockhash struct {
	Blockhash            Blockhash
	LastValidBlockHeight uint64
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Satisfies reports whether the status has reached the commitment level.
func (s SignatureStatus) Satisfies(commitment Commitment) bool {
	switch commitment.Commitment {
	case confirmationStatusFinalized:
		return s.Finalized()
	case confirmationStatusConfirmed:
		return s.Confirmed()
	default:
		return true
	}
}

type PrioritizationFee struct {
	Slot uint64 `json:"slot"`
	Fee  uint64 `json:"prioritizationFee"`
}

type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	// MaxRetries overrides the node's rebroadcast policy when set.
	MaxRetries *uint64
}

type SimulateOptions struct {
	// SigVerify cannot be combined with ReplaceRecentBlockhash.
	SigVerify              bool
	ReplaceRecentBlockhash bool
	Commitment             Commitment
}

type SimulationResult struct {
	Err           *TransactionError
	Logs          []string
	UnitsConsumed *uint64
}

// Client provides an interaction with the Solana JSON RPC API. Each call is a
// single request; retries and polling belong to the caller.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error)
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (LatestBlockhash, error)
	GetRecentPrioritizationFees(ctx context.Context, accounts ...ed25519.PublicKey) ([]PrioritizationFee, error)
	GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error)
	SendTransaction(ctx context.Context, raw []byte, opts SendOptions) (Signature, error)
	SimulateTransaction(ctx context.Context, raw []byte, opts SimulateOptions) (*SimulationResult, error)
}

type client struct {
	log        *logrus.Entry
	endpoint   string
	httpClient *http.Client

	lastRequestID int64
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithHTTPClient(endpoint, &http.Client{})
}

// NewWithHTTPClient returns a client that issues requests through httpClient.
func NewWithHTTPClient(endpoint string, httpClient *http.Client) Client {
	return &client{
		log:        logrus.StandardLogger().WithField("type", "solana/client"),
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// nextRequestID returns the id for the next request envelope. Ids start at 1
// and are unique per client instance.
func (c *client) nextRequestID() int {
	return int(atomic.AddInt64(&c.lastRequestID, 1))
}

func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	req := &jsonrpc.RPCRequest{
		JSONRPC: jsonrpcVersion,
		ID:      c.nextRequestID(),
		Method:  method,
	}
	if len(params) > 0 {
		req.Params = params
	}

	log := c.log.WithFields(logrus.Fields{
		"method": method,
		"id":     req.ID,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s request", method)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s request", method)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return &TransportError{Method: method, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Method: method, StatusCode: httpResp.StatusCode, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.WithField("status", httpResp.StatusCode).Debug("non-2xx response")

		snippet := respBody
		if len(snippet) > maxErrorBodySize {
			snippet = snippet[:maxErrorBodySize]
		}
		return &TransportError{
			Method:     method,
			StatusCode: httpResp.StatusCode,
			Body:       string(snippet),
		}
	}

	var resp jsonrpc.RPCResponse
	decoder := json.NewDecoder(bytes.NewReader(respBody))
	decoder.UseNumber()
	if err := decoder.Decode(&resp); err != nil {
		return errors.Wrapf(err, "%s: invalid response envelope", method)
	}

	if resp.Error != nil {
		log.WithField("code", resp.Error.Code).Debug("rpc error")
		return newRPCError(method, resp.Error)
	}

	if resp.ID != req.ID {
		return errors.Errorf("%s: response id %d does not match request id %d", method, resp.ID, req.ID)
	}

	if out == nil {
		return nil
	}

	if err := resp.GetObject(out); err != nil {
		return errors.Wrapf(err, "%s: failed to decode result", method)
	}
	return nil
}

func (c *client) GetBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error) {
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, &resp, "getBalance", base58.Encode(account), commitment); err != nil {
		return 0, err
	}

	return resp.Value, nil
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), rpcConfig); err != nil {
		return accountInfo, err
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) == 0 {
		return accountInfo, errors.New("missing account data")
	}
	accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable

	return accountInfo, nil
}

func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (LatestBlockhash, error) {
	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getLatestBlockhash", commitment); err != nil {
		return LatestBlockhash{}, err
	}

	hash, err := BlockhashFromText(resp.Value.Blockhash)
	if err != nil {
		return LatestBlockhash{}, err
	}

	return LatestBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: resp.Value.LastValidBlockHeight,
	}, nil
}

func (c *client) GetRecentPrioritizationFees(ctx context.Context, accounts ...ed25519.PublicKey) ([]PrioritizationFee, error) {
	var params []interface{}
	if len(accounts) > 0 {
		encoded := make([]string, len(accounts))
		for i, account := range accounts {
			encoded[i] = base58.Encode(account)
		}
		params = append(params, encoded)
	}

	var fees []PrioritizationFee
	if err := c.call(ctx, &fees, "getRecentPrioritizationFees", params...); err != nil {
		return nil, err
	}
	return fees, nil
}

// GetSignatureStatus returns the status of a single signature, or
// ErrSignatureNotFound if the node has no record of it.
func (c *client) GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error) {
	statuses, err := c.GetSignatureStatuses(ctx, []Signature{sig})
	if err != nil {
		return nil, err
	}

	if len(statuses) == 0 || statuses[0] == nil {
		return nil, ErrSignatureNotFound
	}
	return statuses[0], nil
}

// GetSignatureStatuses returns one entry per signature, nil for signatures
// the node has no record of.
func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = sigs[i].String()
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	var resp struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, err
	}

	if len(resp.Value) != len(sigs) {
		return nil, errors.Errorf("getSignatureStatuses: %d statuses for %d signatures", len(resp.Value), len(sigs))
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil {
			continue
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		txErr, err := decodeTransactionError(v.Err)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction result")
		}
		statuses[i].ErrorResult = txErr
	}

	return statuses, nil
}

func (c *client) SendTransaction(ctx context.Context, raw []byte, opts SendOptions) (Signature, error) {
	config := struct {
		Encoding            string  `json:"encoding"`
		SkipPreflight       bool    `json:"skipPreflight"`
		PreflightCommitment string  `json:"preflightCommitment,omitempty"`
		MaxRetries          *uint64 `json:"maxRetries,omitempty"`
	}{
		Encoding:            "base64",
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment.Commitment,
		MaxRetries:          opts.MaxRetries,
	}

	var sigText string
	if err := c.call(ctx, &sigText, "sendTransaction", base64.StdEncoding.EncodeToString(raw), config); err != nil {
		return Signature{}, err
	}

	return SignatureFromText(sigText)
}

func (c *client) SimulateTransaction(ctx context.Context, raw []byte, opts SimulateOptions) (*SimulationResult, error) {
	if opts.SigVerify && opts.ReplaceRecentBlockhash {
		return nil, errors.New("sigVerify cannot be combined with replaceRecentBlockhash")
	}

	config := struct {
		Encoding               string `json:"encoding"`
		SigVerify              bool   `json:"sigVerify"`
		ReplaceRecentBlockhash bool   `json:"replaceRecentBlockhash"`
		Commitment             string `json:"commitment,omitempty"`
	}{
		Encoding:               "base64",
		SigVerify:              opts.SigVerify,
		ReplaceRecentBlockhash: opts.ReplaceRecentBlockhash,
		Commitment:             opts.Commitment.Commitment,
	}

	var resp struct {
		Value struct {
			Err           json.RawMessage `json:"err"`
			Logs          []string        `json:"logs"`
			UnitsConsumed *uint64         `json:"unitsConsumed"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "simulateTransaction", base64.StdEncoding.EncodeToString(raw), config); err != nil {
		return nil, err
	}

	txErr, err := decodeTransactionError(resp.Value.Err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse simulation error")
	}

	return &SimulationResult{
		Err:           txErr,
		Logs:          resp.Value.Logs,
		UnitsConsumed: resp.Value.UnitsConsumed,
	}, nil
}

func decodeTransactionError(raw json.RawMessage) (*TransactionError, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var txError interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&txError); err != nil {
		return nil, err
	}

	return ParseTransactionError(txError)
}

package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransportError is returned when the RPC endpoint could not be reached, or
// answered with a non-2xx HTTP status. StatusCode is 0 when no response was
// received.
type TransportError struct {
	Method     string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("solana rpc %s: transport failure: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("solana rpc %s: http status %d: %s", e.Method, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RPCError is an error object returned inside a JSON-RPC response envelope.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    interface{}

	// TxError is set when the node rejected a transaction during preflight.
	TxError *TransactionError
	// Logs are the program logs attached to a preflight failure.
	Logs []string
}

func newRPCError(method string, raw *jsonrpc.RPCError) *RPCError {
	e := &RPCError{
		Method:  method,
		Code:    raw.Code,
		Message: raw.Message,
		Data:    raw.Data,
	}

	data, ok := raw.Data.(map[string]interface{})
	if !ok {
		return e
	}

	if txErr, ok := data["err"]; ok && txErr != nil {
		// Best effort, the remote code and message are kept regardless
		e.TxError, _ = ParseTransactionError(txErr)
	}
	if logs, ok := data["logs"].([]interface{}); ok {
		for _, l := range logs {
			if s, ok := l.(string); ok {
				e.Logs = append(e.Logs, s)
			}
		}
	}

	return e
}

func (e *RPCError) Error() string {
	if e.TxError != nil {
		return fmt.Sprintf("solana rpc %s: error %d: %s (%s)", e.Method, e.Code, e.Message, e.TxError.Error())
	}
	return fmt.Sprintf("solana rpc %s: error %d: %s", e.Method, e.Code, e.Message)
}

// TransactionErrorKey is the string key returned in a transaction error.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse                 TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound              TransactionErrorKey = "AccountNotFound"
	TransactionErrorAlreadyProcessed             TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorBlockhashNotFound            TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorDuplicateSignature           TransactionErrorKey = "DuplicateSignature"
	TransactionErrorInstructionError             TransactionErrorKey = "InstructionError"
	TransactionErrorInsufficientFundsForFee      TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorInsufficientFundsForRent     TransactionErrorKey = "InsufficientFundsForRent"
	TransactionErrorSignatureFailure             TransactionErrorKey = "SignatureFailure"
	TransactionErrorWouldExceedMaxBlockCostLimit TransactionErrorKey = "WouldExceedMaxBlockCostLimit"
)

// InstructionErrorKey is the string keys returned in an instruction error.
//
// Source: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
type InstructionErrorKey string

const (
	InstructionErrorCustom                   InstructionErrorKey = "Custom"
	InstructionErrorInvalidArgument          InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidAccountData       InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInsufficientFunds        InstructionErrorKey = "InsufficientFunds"
	InstructionErrorIncorrectProgramID       InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorMissingRequiredSignature InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInUse      InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorComputationalBudget      InstructionErrorKey = "ComputationalBudgetExceeded"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", int(c))
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func parseInstructionError(v interface{}) (e InstructionError, err error) {
	values, ok := v.([]interface{})
	if !ok {
		return e, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return e, errors.Errorf("unexpected InstructionError tuple size: %d", len(values))
	}

	e.Index, err = parseJSONNumber(values[0])
	if err != nil {
		return e, err
	}

	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]interface{}:
		k, v, ok := singleEntry(t)
		if !ok {
			e.Err = errors.New("unhandled InstructionError")
			return e, errors.Errorf("invalid instruction result size: %d", len(t))
		}

		if k != string(InstructionErrorCustom) {
			e.Err = errors.New(k)
			break
		}

		code, err := parseJSONNumber(v)
		if err != nil {
			e.Err = errors.New("unhandled CustomError")
			break
		}
		e.Err = CustomError(code)
	default:
		return e, errors.Errorf("unexpected instruction error value %T", t)
	}

	return e, nil
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	if i.Err == nil {
		return ""
	}
	if i.CustomError() != nil {
		return InstructionErrorCustom
	}
	return InstructionErrorKey(i.Err.Error())
}

func (i InstructionError) CustomError() *CustomError {
	ce, ok := i.Err.(CustomError)
	if ok {
		return &ce
	}
	return nil
}

// TransactionError contains the transaction error details reported by the
// node, either from preflight, simulation or a signature status.
type TransactionError struct {
	transactionError error
	instructionError *InstructionError
	raw              interface{}
}

// ParseTransactionError parses the JSON error returned from the "err" field in various
// RPC methods and fields.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	if raw == nil {
		return nil, nil
	}

	switch t := raw.(type) {
	case string:
		return &TransactionError{
			transactionError: errors.New(t),
			raw:              raw,
		}, nil
	case map[string]interface{}:
		k, v, ok := singleEntry(t)
		if !ok {
			return &TransactionError{
				transactionError: errors.New("unhandled transaction error"),
				raw:              raw,
			}, errors.Errorf("invalid transaction result size: %d", len(t))
		}

		if k != string(TransactionErrorInstructionError) {
			return &TransactionError{
				transactionError: errors.New(k),
				raw:              raw,
			}, nil
		}

		instructionErr, err := parseInstructionError(v)
		if err != nil {
			return &TransactionError{
				transactionError: errors.New("unhandled transaction error"),
				raw:              raw,
			}, errors.Wrap(err, "failed to parse instruction error")
		}

		return &TransactionError{
			transactionError: errors.New(string(TransactionErrorInstructionError)),
			instructionError: &instructionErr,
			raw:              raw,
		}, nil
	default:
		return nil, errors.Errorf("unhandled error type %T", raw)
	}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{
		transactionError: errors.New(string(key)),
		raw:              string(key),
	}
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}
	if t.transactionError != nil {
		return t.transactionError.Error()
	}
	return ""
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	if t.transactionError == nil {
		return ""
	}
	return TransactionErrorKey(t.transactionError.Error())
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

func singleEntry(m map[string]interface{}) (string, interface{}, bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		return k, v, true
	}
	return "", nil, false
}

func parseJSONNumber(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value: %v", v)
		}
		return int(n), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value: %v", v)
		}
		return int(n), nil
	case float64:
		return int(t), nil
	}

	return 0, errors.Errorf("non numeric value: %v", v)
}

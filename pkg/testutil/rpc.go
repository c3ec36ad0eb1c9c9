package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ybbus/jsonrpc"
)

const methodNotFoundCode = -32601

// RPCHandler answers a single JSON-RPC method call. Returning a non-nil
// RPCError produces an error envelope.
type RPCHandler func(params []interface{}) (interface{}, *jsonrpc.RPCError)

// RPCServer is a fake JSON-RPC node backed by httptest.
type RPCServer struct {
	*httptest.Server

	mu         sync.Mutex
	handlers   map[string]RPCHandler
	requests   []*jsonrpc.RPCRequest
	statusCode int
	statusBody string
}

func NewRPCServer(t *testing.T) *RPCServer {
	s := &RPCServer{
		handlers: make(map[string]RPCHandler),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *RPCServer) Handle(method string, handler RPCHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = handler
}

// HandleResult registers a handler that always returns result.
func (s *RPCServer) HandleResult(method string, result interface{}) {
	s.Handle(method, func([]interface{}) (interface{}, *jsonrpc.RPCError) {
		return result, nil
	})
}

// FailWith makes every subsequent request return the HTTP status and body.
func (s *RPCServer) FailWith(statusCode int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusCode = statusCode
	s.statusBody = body
}

// Requests returns the received requests for method, in arrival order.
func (s *RPCServer) Requests(method string) []*jsonrpc.RPCRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*jsonrpc.RPCRequest
	for _, req := range s.requests {
		if req.Method == method {
			matched = append(matched, req)
		}
	}
	return matched
}

func (s *RPCServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req jsonrpc.RPCRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, &req)
	handler, ok := s.handlers[req.Method]
	statusCode, statusBody := s.statusCode, s.statusBody
	s.mu.Unlock()

	if statusCode != 0 {
		http.Error(w, statusBody, statusCode)
		return
	}

	resp := &jsonrpc.RPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	if !ok {
		resp.Error = &jsonrpc.RPCError{Code: methodNotFoundCode, Message: "Method not found"}
	} else {
		params, _ := req.Params.([]interface{})
		resp.Result, resp.Error = handler(params)
	}

	// Results such as a missing account are an explicit null, which
	// RPCResponse would otherwise omit.
	var buf bytes.Buffer
	if resp.Error == nil && resp.Result == nil {
		_ = json.NewEncoder(&buf).Encode(map[string]interface{}{
			"jsonrpc": resp.JSONRPC,
			"id":      resp.ID,
			"result":  nil,
		})
	} else {
		_ = json.NewEncoder(&buf).Encode(resp)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrorCode classifies why a request never produced a usable result
// (spec §7, "Orchestrator" taxonomy).
type ErrorCode int

const (
	ErrSpawnFailed ErrorCode = iota + 1
	ErrCommunication
	ErrResponse
	ErrTimeout
	ErrNotInitialized
	ErrProcessTerminated
)

func (e ErrorCode) String() string {
	switch e {
	case ErrSpawnFailed:
		return "SpawnFailed"
	case ErrCommunication:
		return "CommunicationError"
	case ErrResponse:
		return "ResponseError"
	case ErrTimeout:
		return "Timeout"
	case ErrNotInitialized:
		return "NotInitialized"
	case ErrProcessTerminated:
		return "ProcessTerminated"
	default:
		return "Unknown"
	}
}

// RPCError is the terminal-for-the-request error type every Client
// method returns on failure.
type RPCError struct {
	Code    ErrorCode
	Message string
}

func (e *RPCError) Error() string { return fmt.Sprintf("checker: %s: %s", e.Code, e.Message) }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Method string          `json:"method,omitempty"` // present on notifications
	Params json.RawMessage `json:"params,omitempty"`
}

// PublishHandler is invoked for every textDocument/publishDiagnostics
// notification a subprocess pushes unprompted.
type PublishHandler func(uri string, diags []Diagnostic)

// Client drives one checker subprocess: request/response correlation
// by monotonic ID, a pending-response map with per-call timeout, and
// a background reader dispatching both responses and push
// notifications (spec §4.7).
type Client struct {
	transport Transport
	logger    *zap.Logger
	onPublish PublishHandler
	timeout   time.Duration

	nextID  int64
	mu      sync.Mutex
	pending map[int64]chan *rpcResponse
	closed  atomic.Bool

	initialized atomic.Bool
	readErr     chan error
}

// ClientOptions configures one Client.
type ClientOptions struct {
	Timeout   time.Duration // default 30s, per spec §4.7
	Logger    *zap.Logger
	OnPublish PublishHandler
}

func NewClient(t Transport, opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Client{
		transport: t,
		logger:    opts.Logger,
		onPublish: opts.OnPublish,
		timeout:   opts.Timeout,
		pending:   make(map[int64]chan *rpcResponse),
		readErr:   make(chan error, 1),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for {
		body, err := c.transport.Recv()
		if err != nil {
			c.failAllPending(&RPCError{Code: ErrCommunication, Message: err.Error()})
			c.readErr <- err
			return
		}
		var msg rpcResponse
		if err := json.Unmarshal(body, &msg); err != nil {
			c.logger.Warn("checker: malformed message", zap.Error(err))
			continue
		}
		if msg.Method == "textDocument/publishDiagnostics" {
			c.dispatchPublish(msg.Params)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

func (c *Client) dispatchPublish(params json.RawMessage) {
	if c.onPublish == nil {
		return
	}
	var payload struct {
		URI         string       `json:"uri"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		return
	}
	c.onPublish(payload.URI, payload.Diagnostics)
}

func (c *Client) failAllPending(err *RPCError) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan *rpcResponse)
	c.mu.Unlock()
	resp := &rpcResponse{Error: &struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{Message: err.Error()}}
	for _, ch := range pending {
		ch <- resp
	}
}

// Call issues a request and blocks until the response arrives, ctx is
// cancelled, the client's timeout elapses, or the client is closed.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, &RPCError{Code: ErrProcessTerminated, Message: "client is closed"}
	}
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan *rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		c.dropPending(id)
		return nil, &RPCError{Code: ErrCommunication, Message: err.Error()}
	}
	if err := c.transport.Send(body); err != nil {
		c.dropPending(id)
		return nil, &RPCError{Code: ErrCommunication, Message: err.Error()}
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, &RPCError{Code: ErrResponse, Message: resp.Error.Message}
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, &RPCError{Code: ErrCommunication, Message: ctx.Err().Error()}
	case <-timer.C:
		c.dropPending(id)
		return nil, &RPCError{Code: ErrTimeout, Message: fmt.Sprintf("%s timed out after %s", method, c.timeout)}
	}
}

// dropPending removes a pending entry so a late response is silently
// discarded (spec §4.7, "Cancellation").
func (c *Client) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Notify sends a one-way message with no response expected.
func (c *Client) Notify(method string, params any) error {
	if c.closed.Load() {
		return &RPCError{Code: ErrProcessTerminated, Message: "client is closed"}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return &RPCError{Code: ErrCommunication, Message: err.Error()}
	}
	if err := c.transport.Send(body); err != nil {
		return &RPCError{Code: ErrCommunication, Message: err.Error()}
	}
	return nil
}

// Initialize performs the initialize request + initialized
// notification handshake (spec §4.7, protocol minimum set).
func (c *Client) Initialize(ctx context.Context, processID int, rootURI string, capabilities, initOptions any) error {
	_, err := c.Call(ctx, "initialize", map[string]any{
		"processId":             processID,
		"rootUri":                rootURI,
		"capabilities":           capabilities,
		"initializationOptions": initOptions,
	})
	if err != nil {
		return err
	}
	c.initialized.Store(true)
	return c.Notify("initialized", map[string]any{})
}

func (c *Client) requireInitialized() error {
	if !c.initialized.Load() {
		return &RPCError{Code: ErrNotInitialized, Message: "initialize has not completed"}
	}
	return nil
}

func (c *Client) DidOpen(uri, languageID string, version int, text string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.Notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": uri, "languageId": languageID, "version": version, "text": text},
	})
}

// DidChange replaces the whole document (spec §4.7: "full-text
// replacement only").
func (c *Client) DidChange(uri string, version int, text string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.Notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": version},
		"contentChanges": []map[string]any{{"text": text}},
	})
}

func (c *Client) DidClose(uri string) error {
	return c.Notify("textDocument/didClose", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
}

// Diagnostic pulls diagnostics for one URI.
func (c *Client) Diagnostic(ctx context.Context, uri string) ([]Diagnostic, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.Call(ctx, "textDocument/diagnostic", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []Diagnostic `json:"items"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &RPCError{Code: ErrResponse, Message: err.Error()}
	}
	return FilterDropped(payload.Items), nil
}

// BatchDiagnostic pulls diagnostics for many URIs in one round trip.
func (c *Client) BatchDiagnostic(ctx context.Context, uris []string) (map[string][]Diagnostic, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.Call(ctx, "textDocument/diagnostic", map[string]any{"uris": uris})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []struct {
			URI         string       `json:"uri"`
			Diagnostics []Diagnostic `json:"diagnostics"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &RPCError{Code: ErrResponse, Message: err.Error()}
	}
	out := make(map[string][]Diagnostic, len(payload.Items))
	for _, item := range payload.Items {
		out[item.URI] = FilterDropped(item.Diagnostics)
	}
	return out, nil
}

// Shutdown performs the shutdown request + exit notification teardown
// and marks the client closed.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "shutdown", nil)
	_ = c.Notify("exit", nil)
	c.Close()
	return err
}

// Close marks the client terminated and fails every pending request
// with ProcessTerminated (spec §4.7, "A shutdown drains pending
// requests with ProcessTerminated").
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.failAllPending(&RPCError{Code: ErrProcessTerminated, Message: "client closed"})
	return c.transport.Close()
}

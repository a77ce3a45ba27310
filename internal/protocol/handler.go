package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ToolHandler executes a tool call. It receives the raw args object from the
// request and returns the tool result. The dispatcher has no knowledge of
// what the tool does; the handler is injected at construction.
type ToolHandler func(args json.RawMessage) (interface{}, error)

// RPCError is a structured protocol error carried in an error response.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type callToolParams struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// Dispatcher routes protocol messages to method handlers. The method table is
// fixed at construction.
type Dispatcher struct {
	descriptor *ToolDescriptor
	handler    ToolHandler
	logger     *zap.Logger
	methods    map[string]func(req *request) (interface{}, *RPCError)
}

// NewDispatcher creates a dispatcher for the given tool.
func NewDispatcher(descriptor *ToolDescriptor, handler ToolHandler, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		descriptor: descriptor,
		handler:    handler,
		logger:     logger,
	}
	d.methods = map[string]func(req *request) (interface{}, *RPCError){
		"initialize": d.handleInitialize,
		"list_tools": d.handleListTools,
		"call_tool":  d.handleCallTool,
	}
	return d
}

// Descriptor returns the tool descriptor served by this dispatcher.
func (d *Dispatcher) Descriptor() *ToolDescriptor {
	return d.descriptor
}

// Process handles one raw message and returns exactly one raw response.
// It never panics and never returns nil.
func (d *Dispatcher) Process(raw []byte) []byte {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.logger.Error("invalid protocol message", zap.Error(err))
		return d.errorResponse(nil, &RPCError{Code: CodeParseError, Message: "Invalid JSON"})
	}

	d.logger.Info("received protocol message",
		zap.String("method", req.Method),
		zap.String("id", string(req.ID)),
	)

	handle, ok := d.methods[req.Method]
	if !ok {
		return d.errorResponse(req.ID, &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("Unknown method: %s", req.Method),
		})
	}

	result, rpcErr := d.safeHandle(handle, &req)
	if rpcErr != nil {
		return d.errorResponse(req.ID, rpcErr)
	}
	return d.successResponse(req.ID, result)
}

// safeHandle runs a method handler, converting a panic into an internal error
// so a misbehaving handler cannot take down a transport loop.
func (d *Dispatcher) safeHandle(handle func(req *request) (interface{}, *RPCError), req *request) (result interface{}, rpcErr *RPCError) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", zap.Any("panic", r), zap.String("method", req.Method))
			result = nil
			rpcErr = &RPCError{Code: CodeInternalError, Message: "Internal error"}
		}
	}()
	return handle(req)
}

func (d *Dispatcher) handleInitialize(req *request) (interface{}, *RPCError) {
	return map[string]interface{}{"capabilities": []string{"tools"}}, nil
}

func (d *Dispatcher) handleListTools(req *request) (interface{}, *RPCError) {
	return map[string]interface{}{"tools": []*ToolDescriptor{d.descriptor}}, nil
}

func (d *Dispatcher) handleCallTool(req *request) (interface{}, *RPCError) {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params"}
		}
	}
	if params.Tool != d.descriptor.Name {
		return nil, &RPCError{
			Code:    CodeInvalidParams,
			Message: fmt.Sprintf("Unknown tool: %s", params.Tool),
		}
	}
	result, err := d.handler(params.Args)
	if err != nil {
		d.logger.Error("tool call failed", zap.Error(err))
		var typed *RPCError
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return map[string]interface{}{"result": result}, nil
}

func (d *Dispatcher) successResponse(id json.RawMessage, result interface{}) []byte {
	return d.marshal(&response{JSONRPC: "2.0", ID: normalizeID(id), Result: result})
}

func (d *Dispatcher) errorResponse(id json.RawMessage, rpcErr *RPCError) []byte {
	return d.marshal(&response{JSONRPC: "2.0", ID: normalizeID(id), Error: rpcErr})
}

func (d *Dispatcher) marshal(resp *response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		d.logger.Error("response marshal failed", zap.Error(err))
		out, _ = json.Marshal(&response{
			JSONRPC: "2.0",
			ID:      normalizeID(resp.ID),
			Error:   &RPCError{Code: CodeInternalError, Message: "Internal error"},
		})
	}
	return out
}

// normalizeID maps an absent id to explicit null so the response always
// carries an id field, and a present id round-trips byte for byte.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

package search

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/protocol"
	"github.com/torchseek/torchseek/internal/vector"
)

func TestToolHandlerEchoProbe(t *testing.T) {
	store := &failingStore{MemoryStore: vector.NewMemoryStore(testDimensions)}
	engine, _ := newTestEngine(t, store)
	handler := ToolHandler(engine, 5)

	// The probe must answer without reaching the store.
	result, err := handler(json.RawMessage(`{"query":"echo:ping"}`))
	if err != nil {
		t.Fatalf("echo probe: %v", err)
	}
	out, ok := result.(map[string]interface{})
	if !ok || out["ok"] != true {
		t.Fatalf("echo result = %v", result)
	}
}

func TestToolHandlerRunsSearch(t *testing.T) {
	store := vector.NewMemoryStore(testDimensions)
	engine, embedder := newTestEngine(t, store)
	seedStore(t, store, embedder, testChunks())
	handler := ToolHandler(engine, 5)

	result, err := handler(json.RawMessage(`{"query":"autograd mechanics","num_results":2}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	resp, ok := result.(*models.SearchResponse)
	if !ok {
		t.Fatalf("result type %T", result)
	}
	if resp.Count == 0 || resp.Count > 2 {
		t.Fatalf("count = %d", resp.Count)
	}
}

func TestToolHandlerRejectsEmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t, vector.NewMemoryStore(testDimensions))
	handler := ToolHandler(engine, 5)

	_, err := handler(json.RawMessage(`{}`))
	var rpcErr *protocol.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected invalid-params error for empty query, got %v", err)
	}
	if _, err := handler(json.RawMessage(`{"query":"x","filter":"binary"}`)); err == nil {
		t.Fatal("expected error for invalid filter")
	}
}

func TestToolHandlerPipelineFailureCarriesContext(t *testing.T) {
	store := &failingStore{MemoryStore: vector.NewMemoryStore(testDimensions)}
	engine, _ := newTestEngine(t, store)
	handler := ToolHandler(engine, 5)

	_, err := handler(json.RawMessage(`{"query":"autograd","filter":"text"}`))
	var rpcErr *protocol.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.CodeInternalError {
		t.Fatalf("expected internal error, got %v", err)
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok || data["query"] != "autograd" || data["filter"] != "text" {
		t.Fatalf("error data = %v", rpcErr.Data)
	}
}

func TestToolHandlerMalformedArgs(t *testing.T) {
	engine, _ := newTestEngine(t, vector.NewMemoryStore(testDimensions))
	handler := ToolHandler(engine, 5)

	if _, err := handler(json.RawMessage(`{"query":`)); err == nil {
		t.Fatal("expected error for malformed args")
	}
}

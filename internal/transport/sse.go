package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/torchseek/torchseek/internal/protocol"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// callEndpointPath is the canonical tool-call path advertised in the
// descriptor. The aliases below accept the same body.
const callEndpointPath = "/tools/call"

// SSETransport serves the protocol over HTTP: a long-lived event stream for
// tool discovery plus synchronous call endpoints.
type SSETransport struct {
	dispatcher *protocol.Dispatcher
	host       string
	port       int
	keepAlive  time.Duration
	logger     *zap.Logger
	server     *http.Server
	running    atomic.Bool
	seq        atomic.Int64
}

// NewSSETransport creates an SSE transport listening on host:port.
func NewSSETransport(dispatcher *protocol.Dispatcher, host string, port int, keepAlive time.Duration, logger *zap.Logger) *SSETransport {
	return &SSETransport{
		dispatcher: dispatcher,
		host:       host,
		port:       port,
		keepAlive:  keepAlive,
		logger:     logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (t *SSETransport) Start() error {
	r := chi.NewRouter()
	r.Use(t.correlate)
	r.Use(middleware.Recoverer)

	r.Get("/events", t.handleEvents)
	for _, path := range []string{callEndpointPath, "/call", "/invoke", "/run"} {
		r.Post(path, t.handleCall)
	}
	r.Get("/tools/list", t.handleToolsList)
	r.Get("/health", t.handleHealth)
	r.Post("/search", t.handleSearch)

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	t.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	t.logger.Info("starting sse transport", zap.String("addr", addr))
	t.running.Store(true)
	defer t.running.Store(false)
	if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	t.logger.Info("sse transport stopped")
	return nil
}

// Stop gracefully shuts down the server. In-flight requests get a short
// grace period; open event streams end when their clients disconnect.
func (t *SSETransport) Stop() {
	if t.server == nil {
		return
	}
	t.logger.Info("stopping sse transport")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func (t *SSETransport) IsRunning() bool {
	return t.running.Load()
}

// correlate tags every request with a monotonically increasing id and logs
// entry and exit.
func (t *SSETransport) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := fmt.Sprintf("c%d-%d", time.Now().Unix(), t.seq.Add(1))
		t.logger.Info("request",
			zap.String("cid", cid),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		t.logger.Info("response",
			zap.String("cid", cid),
			zap.Int("status", ww.Status()),
		)
	})
}

// handleEvents emits the tool descriptor, then keep-alive comments until the
// client disconnects.
func (t *SSETransport) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	payload, err := json.Marshal([]*protocol.ToolDescriptor{t.advertisedDescriptor()})
	if err != nil {
		http.Error(w, "descriptor marshal failed", http.StatusInternalServerError)
		return
	}
	for _, tag := range []string{"tool_list", "tools"} {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", tag, payload)
	}
	flusher.Flush()

	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()
	n := 0
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			n++
			fmt.Fprintf(w, ": ka-%d\n\n", n)
			flusher.Flush()
		}
	}
}

type callRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

func (t *SSETransport) handleCall(w http.ResponseWriter, r *http.Request) {
	var body callRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t.dispatchCall(w, "http-call", body.Tool, body.Args)
}

// handleSearch accepts the tool args directly, without the call envelope.
func (t *SSETransport) handleSearch(w http.ResponseWriter, r *http.Request) {
	args, err := decodeRawObject(r)
	if err != nil {
		t.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t.dispatchCall(w, "http-search", t.dispatcher.Descriptor().Name, args)
}

// dispatchCall synthesizes a call_tool message, runs it through the
// dispatcher, and returns the unwrapped tool result.
func (t *SSETransport) dispatchCall(w http.ResponseWriter, id, tool string, args json.RawMessage) {
	if args == nil {
		args = json.RawMessage("{}")
	}
	message, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "call_tool",
		"params": map[string]interface{}{
			"tool": tool,
			"args": args,
		},
	})
	if err != nil {
		t.respondError(w, http.StatusInternalServerError, "request marshal failed")
		return
	}

	raw := t.dispatcher.Process(message)
	var response struct {
		Result *struct {
			Result json.RawMessage `json:"result"`
		} `json:"result"`
		Error *protocol.RPCError `json:"error"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		t.respondError(w, http.StatusInternalServerError, "response decode failed")
		return
	}
	if response.Error != nil {
		t.respondError(w, http.StatusBadRequest, response.Error.Message)
		return
	}
	if response.Result == nil {
		t.respondError(w, http.StatusInternalServerError, "empty dispatcher result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response.Result.Result)
}

func (t *SSETransport) handleToolsList(w http.ResponseWriter, r *http.Request) {
	t.respondJSON(w, http.StatusOK, []*protocol.ToolDescriptor{t.advertisedDescriptor()})
}

func (t *SSETransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (t *SSETransport) advertisedDescriptor() *protocol.ToolDescriptor {
	return t.dispatcher.Descriptor().WithEndpoint(callEndpointPath, http.MethodPost)
}

func (t *SSETransport) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (t *SSETransport) respondError(w http.ResponseWriter, status int, message string) {
	t.respondJSON(w, status, map[string]string{"error": message})
}

func decodeRawObject(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

var _ Transport = (*SSETransport)(nil)

package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/torchseek/torchseek/internal/protocol"
	"go.uber.org/zap"
)

// maxLineBytes bounds a single request line. Large vector payloads do not
// travel this direction, so 1 MiB is generous.
const maxLineBytes = 1 << 20

// StdioTransport reads one request per line and writes one response per line.
// Requests are handled strictly sequentially.
type StdioTransport struct {
	dispatcher *protocol.Dispatcher
	in         io.Reader
	out        io.Writer
	logger     *zap.Logger
	running    atomic.Bool
}

// NewStdioTransport creates a line transport over the given streams.
func NewStdioTransport(dispatcher *protocol.Dispatcher, in io.Reader, out io.Writer, logger *zap.Logger) *StdioTransport {
	return &StdioTransport{
		dispatcher: dispatcher,
		in:         in,
		out:        out,
		logger:     logger,
	}
}

// Start runs the read loop until end of input or Stop. Blank lines are
// skipped; every other line produces exactly one response line, flushed
// immediately.
func (t *StdioTransport) Start() error {
	t.logger.Info("starting stdio transport")
	t.running.Store(true)
	defer t.running.Store(false)

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(t.out)

	for t.running.Load() && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		response := t.dispatcher.Process([]byte(line))
		if _, err := writer.Write(response); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	t.logger.Info("stdio transport stopped")
	return nil
}

// Stop requests the loop to exit after the in-flight request completes.
func (t *StdioTransport) Stop() {
	t.logger.Info("stopping stdio transport")
	t.running.Store(false)
}

func (t *StdioTransport) IsRunning() bool {
	return t.running.Load()
}

var _ Transport = (*StdioTransport)(nil)

// Package transport provides the protocol front-ends: a line-oriented stdio
// loop and an SSE HTTP server. Both feed raw messages to the same dispatcher.
package transport

// Transport is a protocol front-end. Start blocks until the transport stops;
// Stop requests a graceful shutdown from another goroutine.
type Transport interface {
	Start() error
	Stop()
	IsRunning() bool
}

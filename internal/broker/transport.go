// Package broker carries request/reply messages between the gateway and the
// services. A Transport moves raw payloads; Register and Call add the typed
// request structs, validation and the shared reply envelope on top.
package broker

import (
	"context"
	"time"
)

// RawHandler answers one request payload with an encoded Reply.
type RawHandler func(ctx context.Context, payload []byte) []byte

type Transport interface {
	// Request sends payload to pattern and waits for the encoded reply.
	Request(ctx context.Context, pattern string, payload []byte) ([]byte, error)
	// Handle registers h for pattern. Handlers must be registered before Serve.
	Handle(pattern string, h RawHandler)
	// Serve consumes requests until ctx is done.
	Serve(ctx context.Context) error
	Close() error
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

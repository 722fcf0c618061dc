package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"toadvault/internal/apperr"
)

// LocalTransport dispatches requests to handlers in the same process. It backs
// the single-binary mode and the tests.
type LocalTransport struct {
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[string]RawHandler
}

func NewLocal(timeout time.Duration) *LocalTransport {
	return &LocalTransport{
		timeout:  timeout,
		handlers: make(map[string]RawHandler),
	}
}

func (t *LocalTransport) Handle(pattern string, h RawHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[pattern] = h
}

func (t *LocalTransport) Request(ctx context.Context, pattern string, payload []byte) ([]byte, error) {
	t.mu.RLock()
	h, ok := t.handlers[pattern]
	t.mu.RUnlock()
	if !ok {
		return nil, apperr.Infrastructure(fmt.Errorf("no handler registered for %q", pattern))
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	body := append([]byte(nil), payload...)
	done := make(chan []byte, 1)
	go func() { done <- h(ctx, body) }()

	select {
	case reply := <-done:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *LocalTransport) Serve(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (t *LocalTransport) Close() error { return nil }

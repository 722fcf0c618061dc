package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"toadvault/internal/logger"
)

type RedisOptions struct {
	Addr    string
	Prefix  string
	Workers int
	Timeout time.Duration
	// ReplyTTL bounds how long an unread reply stays in redis.
	ReplyTTL time.Duration
}

// RedisTransport queues requests on one list per pattern. Consumers BLPOP the
// list and push the reply onto a per-request key the caller is blocked on.
type RedisTransport struct {
	log  *logger.Logger
	rdb  *goredis.Client
	opts RedisOptions

	mu       sync.RWMutex
	handlers map[string]RawHandler
}

type redisRequest struct {
	ID       string          `json:"id"`
	ReplyTo  string          `json:"reply_to"`
	Deadline time.Time       `json:"deadline"`
	Payload  json.RawMessage `json:"payload"`
}

func NewRedis(log *logger.Logger, opts RedisOptions) (*RedisTransport, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if opts.Prefix == "" {
		opts.Prefix = "toadvault"
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ReplyTTL <= 0 {
		opts.ReplyTTL = 2 * opts.Timeout
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisTransport{
		log:      log.With("service", "RedisTransport"),
		rdb:      rdb,
		opts:     opts,
		handlers: make(map[string]RawHandler),
	}, nil
}

func (t *RedisTransport) queueKey(pattern string) string {
	return fmt.Sprintf("%s:req:%s", t.opts.Prefix, pattern)
}

func (t *RedisTransport) replyKey(id string) string {
	return fmt.Sprintf("%s:reply:%s", t.opts.Prefix, id)
}

func (t *RedisTransport) Handle(pattern string, h RawHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[pattern] = h
}

func (t *RedisTransport) Request(ctx context.Context, pattern string, payload []byte) ([]byte, error) {
	ctx, cancel := withDefaultTimeout(ctx, t.opts.Timeout)
	defer cancel()

	deadline, _ := ctx.Deadline()
	id := uuid.NewString()
	req := redisRequest{
		ID:       id,
		ReplyTo:  t.replyKey(id),
		Deadline: deadline,
		Payload:  payload,
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if err := t.rdb.LPush(ctx, t.queueKey(pattern), raw).Err(); err != nil {
		return nil, fmt.Errorf("redis enqueue %s: %w", pattern, err)
	}

	res, err := t.rdb.BLPop(ctx, time.Until(deadline), req.ReplyTo).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, context.DeadlineExceeded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("redis await %s: %w", pattern, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis await %s: unexpected reply shape", pattern)
	}
	return []byte(res[1]), nil
}

// Serve runs Workers consumers per registered pattern.
func (t *RedisTransport) Serve(ctx context.Context) error {
	t.mu.RLock()
	handlers := make(map[string]RawHandler, len(t.handlers))
	for pattern, h := range t.handlers {
		handlers[pattern] = h
	}
	t.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for pattern, h := range handlers {
		for i := 0; i < t.opts.Workers; i++ {
			g.Go(func() error {
				return t.consume(gctx, pattern, h)
			})
		}
	}
	t.log.Info("broker consumers started", "patterns", len(handlers), "workers", t.opts.Workers)
	return g.Wait()
}

func (t *RedisTransport) consume(ctx context.Context, pattern string, h RawHandler) error {
	key := t.queueKey(pattern)
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := t.rdb.BLPop(ctx, time.Second, key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.log.Warn("redis consume failed", "pattern", pattern, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}
		t.dispatch(ctx, pattern, h, []byte(res[1]))
	}
}

func (t *RedisTransport) dispatch(ctx context.Context, pattern string, h RawHandler, raw []byte) {
	var req redisRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.log.Warn("bad broker request", "pattern", pattern, "error", err)
		return
	}
	if req.Deadline.IsZero() {
		req.Deadline = time.Now().Add(t.opts.Timeout)
	}
	if time.Now().After(req.Deadline) {
		t.log.Warn("dropping expired request", "pattern", pattern, "id", req.ID)
		return
	}

	hctx, cancel := context.WithDeadline(ctx, req.Deadline)
	reply := h(hctx, req.Payload)
	cancel()

	pushCtx, pushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer pushCancel()
	pipe := t.rdb.TxPipeline()
	pipe.LPush(pushCtx, req.ReplyTo, reply)
	pipe.Expire(pushCtx, req.ReplyTo, t.opts.ReplyTTL)
	if _, err := pipe.Exec(pushCtx); err != nil {
		t.log.Error("reply push failed", "pattern", pattern, "id", req.ID, "error", err)
	}
}

func (t *RedisTransport) Close() error {
	if t == nil || t.rdb == nil {
		return nil
	}
	return t.rdb.Close()
}

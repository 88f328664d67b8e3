package state

import (
	"context"
	"sync"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

type counterState struct {
	Count int `json:"count"`
}

// Counter is a persisted integer.
type Counter struct {
	mu    sync.Mutex
	kv    ports.KeyValueStore
	count int
}

// LoadCounter reads the counter from kv.
func LoadCounter(ctx context.Context, kv ports.KeyValueStore) (*Counter, error) {
	st, err := load[counterState](ctx, kv, CounterStorageKey)
	if err != nil {
		return nil, err
	}
	return &Counter{kv: kv, count: st.Count}, nil
}

// Value returns the current count.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Counter) Increment(ctx context.Context) (int, error) {
	return c.set(ctx, func(n int) int { return n + 1 })
}

func (c *Counter) Decrement(ctx context.Context) (int, error) {
	return c.set(ctx, func(n int) int { return n - 1 })
}

func (c *Counter) Reset(ctx context.Context) (int, error) {
	return c.set(ctx, func(int) int { return 0 })
}

func (c *Counter) set(ctx context.Context, f func(int) int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := f(c.count)
	if err := save(ctx, c.kv, CounterStorageKey, counterState{Count: next}); err != nil {
		return c.count, err
	}
	c.count = next
	return next, nil
}

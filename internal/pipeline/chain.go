package pipeline

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// Handle identifies a registered interceptor for later removal.
type Handle uint64

var nextHandle atomic.Uint64

type entry[T any] struct {
	handle Handle
	value  T
}

// chain is an ordered, copy-on-write list of interceptors. Readers take a
// snapshot and iterate it without holding the lock.
type chain[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
}

func (c *chain[T]) add(v T) Handle {
	h := Handle(nextHandle.Add(1))

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]entry[T], len(c.entries), len(c.entries)+1)
	copy(next, c.entries)
	c.entries = append(next, entry[T]{handle: h, value: v})
	return h
}

func (c *chain[T]) remove(h Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.entries, func(e entry[T]) bool { return e.handle == h })
	if i < 0 {
		return false
	}
	c.entries = slices.Delete(slices.Clone(c.entries), i, i+1)
	return true
}

func (c *chain[T]) snapshot() []entry[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}

func (c *chain[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// AddRequestInterceptor appends a request interceptor.
func (p *Pipeline) AddRequestInterceptor(i ports.RequestInterceptor) Handle {
	return p.requestChain.add(i)
}

// AddResponseInterceptor appends a response interceptor.
func (p *Pipeline) AddResponseInterceptor(i ports.ResponseInterceptor) Handle {
	return p.responseChain.add(i)
}

// AddErrorInterceptor appends an error interceptor.
func (p *Pipeline) AddErrorInterceptor(i ports.ErrorInterceptor) Handle {
	return p.errorChain.add(i)
}

// RemoveRequestInterceptor removes a request interceptor by handle.
// It reports whether an interceptor was removed.
func (p *Pipeline) RemoveRequestInterceptor(h Handle) bool {
	return p.requestChain.remove(h)
}

// RemoveResponseInterceptor removes a response interceptor by handle.
func (p *Pipeline) RemoveResponseInterceptor(h Handle) bool {
	return p.responseChain.remove(h)
}

// RemoveErrorInterceptor removes an error interceptor by handle.
func (p *Pipeline) RemoveErrorInterceptor(h Handle) bool {
	return p.errorChain.remove(h)
}

// HasInterceptors returns true if any interceptor is registered.
func (p *Pipeline) HasInterceptors() bool {
	return p.requestChain.size()+p.responseChain.size()+p.errorChain.size() > 0
}

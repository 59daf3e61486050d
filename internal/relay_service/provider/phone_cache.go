package provider

import (
	"context"
	"sync"
)

// OutgoingPhoneCache memoizes the default outgoing phone for the process
// lifetime. Resolution runs under the lock, so concurrent first callers wait
// for a single lookup instead of racing.
type OutgoingPhoneCache struct {
	mu    sync.Mutex
	value string
	set   bool
}

// Get returns the cached value, if any.
func (c *OutgoingPhoneCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// GetOrResolve returns the cached value or calls resolve. The result of
// resolve is stored only when it asks for it (store == true).
func (c *OutgoingPhoneCache) GetOrResolve(ctx context.Context, resolve func(ctx context.Context) (value string, store bool)) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.value
	}
	value, store := resolve(ctx)
	if store {
		c.value = value
		c.set = true
	}
	return value
}

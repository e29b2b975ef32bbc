// Package cache provides an injectable time-to-live cache whose GetOrFetch
// collapses concurrent misses for the same key into one fetch.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Cache is a bounded LRU whose entries expire ttl after they were stored.
// Failed fetches are not cached. The zero value is not usable; use New.
type Cache[V any] struct {
	entries      *expirable.LRU[string, V]
	group        singleflight.Group
	fetchTimeout time.Duration
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	fetchTimeout time.Duration
}

// WithFetchTimeout bounds each shared fetch. Zero leaves the bound to fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// New returns a Cache holding at most size entries (0 means unbounded), each
// living for ttl.
func New[V any](size int, ttl time.Duration, opts ...Option) *Cache[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:      expirable.NewLRU[string, V](size, nil, ttl),
		fetchTimeout: o.fetchTimeout,
	}
}

// Get returns the unexpired value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.entries.Get(key)
}

// Set stores value under key, resetting its expiry.
func (c *Cache[V]) Set(key string, value V) {
	c.entries.Add(key, value)
}

// GetOrFetch returns the cached value for key or calls fetch to load it.
// Callers that miss on the same key while a fetch is in flight wait for and
// share that fetch's result. The shared fetch keeps the first caller's values
// but not its cancellation, so one caller giving up does not fail the others;
// a caller whose ctx ends stops waiting and gets ctx.Err().
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		fetchCtx := context.WithoutCancel(ctx)
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
			defer cancel()
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return v, err
		}
		c.entries.Add(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Invalidate drops key so the next GetOrFetch fetches again.
func (c *Cache[V]) Invalidate(key string) {
	c.entries.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
}

// Len returns the number of stored entries, including ones that have expired
// but not yet been swept.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

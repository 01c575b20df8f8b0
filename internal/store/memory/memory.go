// Package memory is an in-process SeriesCache.
package memory

import (
	"context"
	"sync"

	"github.com/mhatami/trendpulse/internal/model"
)

// Cache holds entries in a map guarded by a RWMutex.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]model.CacheEntry)}
}

func (c *Cache) Get(_ context.Context, key string) (model.CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *Cache) Set(_ context.Context, key string, e model.CacheEntry) error {
	// copy so later appends by the caller don't alias stored bars
	bars := make([]model.PriceBar, len(e.Series.Bars))
	copy(bars, e.Series.Bars)
	e.Series.Bars = bars

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]model.CacheEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Close() error { return nil }

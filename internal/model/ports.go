package model

import "context"

// ── Ports ──
// These interfaces decouple the request pipeline from concrete market-data
// providers and cache backends.

// PriceProvider fetches bars and symbol details from a market-data source.
type PriceProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// FetchPrices returns bars for symbol within w, ordered by timestamp
	// with no duplicates.
	FetchPrices(ctx context.Context, symbol string, w Window) (PriceSeries, error)

	// FetchDetails returns reference and quote data for symbol.
	FetchDetails(ctx context.Context, symbol string) (SymbolDetails, error)
}

// SeriesCache is a naive key-value store for fetched series. Freshness is
// decided by the caller from CacheEntry.FetchedAt.
type SeriesCache interface {
	// Get returns the entry stored under key. ok is false when absent.
	Get(ctx context.Context, key string) (entry CacheEntry, ok bool, err error)

	// Set stores e under key, replacing any previous entry.
	Set(ctx context.Context, key string, e CacheEntry) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

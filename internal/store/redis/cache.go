// Package redis is a SeriesCache backed by Redis strings, guarded by a
// circuit breaker so an unreachable server degrades to cache misses.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/mhatami/trendpulse/internal/model"
)

const (
	// DefaultPrefix namespaces every key this cache writes.
	DefaultPrefix = "trendpulse:cache:"

	defaultRetention   = 24 * time.Hour
	defaultMaxFailures = 5
	defaultResetAfter  = 10 * time.Second
	scanBatch          = 500
)

// Config configures the Redis cache.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string
	// Retention is the Redis expiry on each key. Freshness is decided by
	// the caller; retention only bounds memory.
	Retention time.Duration
}

// Cache stores JSON-encoded CacheEntry values under Prefix+key.
type Cache struct {
	client    *goredis.Client
	prefix    string
	retention time.Duration
	cb        *CircuitBreaker
}

// New creates a Redis cache and pings the server.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg Config) *Cache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	cb := NewCircuitBreaker(defaultMaxFailures, defaultResetAfter)
	cb.OnStateChange = func(from, to State) {
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
	return &Cache{client: client, prefix: prefix, retention: retention, cb: cb}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Get returns the entry under key. An open circuit reads as a miss.
func (c *Cache) Get(ctx context.Context, key string) (model.CacheEntry, bool, error) {
	var raw []byte
	err := c.cb.ExecuteCtx(ctx, func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if raw == nil {
		return model.CacheEntry{}, false, nil
	}

	var e model.CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return e, true, nil
}

// Set stores e under key. Writes are dropped while the circuit is open.
func (c *Cache) Set(ctx context.Context, key string, e model.CacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	err = c.cb.ExecuteCtx(ctx, func() error {
		return c.client.Set(ctx, c.prefix+key, data, c.retention).Err()
	})
	if errors.Is(err, ErrCircuitOpen) {
		slog.Debug("redis set skipped, circuit open", "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix using SCAN so large keyspaces
// don't block the server.
func (c *Cache) Clear(ctx context.Context) error {
	return c.cb.ExecuteCtx(ctx, func() error {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
			if err != nil {
				return fmt.Errorf("redis scan: %w", err)
			}
			if len(keys) > 0 {
				pipe := c.client.Pipeline()
				pipe.Del(ctx, keys...)
				if _, err := pipe.Exec(ctx); err != nil {
					return fmt.Errorf("redis del: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})
}

func (c *Cache) Close() error { return c.client.Close() }

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"

	"github.com/mhatami/trendpulse/config"
	"github.com/mhatami/trendpulse/internal/metrics"
	"github.com/mhatami/trendpulse/internal/model"
	"github.com/mhatami/trendpulse/internal/orchestrator"
	"github.com/mhatami/trendpulse/internal/provider"
	"github.com/mhatami/trendpulse/internal/store/memory"
	"github.com/mhatami/trendpulse/internal/store/redis"
	"github.com/mhatami/trendpulse/internal/store/sqlite"
)

// app holds the wired components shared by the commands.
type app struct {
	orch    *orchestrator.Orchestrator
	cache   model.SeriesCache
	metrics *metrics.Metrics

	// backend handles for health checks and the purge job; at most one
	// is set
	rdb    *goredis.Client
	sqlDB  *sql.DB
	sqlite *sqlite.Cache
}

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	a := &app{metrics: metrics.New(nil)}

	kind, err := provider.ParseKind(c.Provider)
	if err != nil {
		return nil, err
	}
	p, err := provider.New(kind, c.ProviderOptions())
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	if err := a.openCache(ctx, c); err != nil {
		return nil, err
	}

	a.orch = orchestrator.New(orchestrator.Config{
		Provider: p,
		Cache:    a.cache,
		Metrics:  a.metrics,
		TTL:      c.Cache.TTL,
	})
	slog.Info("pipeline ready", "provider", p.Name(), "cache", c.Cache.Backend, "ttl", c.Cache.TTL.String())
	return a, nil
}

func (a *app) openCache(ctx context.Context, c *config.Config) error {
	switch c.Cache.Backend {
	case config.CacheMemory:
		a.cache = memory.New()
	case config.CacheRedis:
		rc, err := redis.New(ctx, redis.Config{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
		cb := rc.Breaker()
		logTransition := cb.OnStateChange
		cb.OnStateChange = func(from, to redis.State) {
			if logTransition != nil {
				logTransition(from, to)
			}
			a.metrics.ObserveBreaker(int(to))
		}
		a.cache, a.rdb = rc, rc.Client()
	case config.CacheSQLite:
		sc, err := sqlite.New(sqlite.Config{DBPath: c.Cache.SQLitePath})
		if err != nil {
			return fmt.Errorf("sqlite cache: %w", err)
		}
		a.cache, a.sqlite, a.sqlDB = sc, sc, sc.DB()
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

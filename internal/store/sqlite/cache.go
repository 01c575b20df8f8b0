// Package sqlite is a disk-backed SeriesCache. One row per key holds the
// JSON-encoded series and its fetch time.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mhatami/trendpulse/internal/model"
)

// Config configures the SQLite cache.
type Config struct {
	DBPath string // e.g. "data/cache.db"
}

// Cache is a single-writer SQLite cache.
type Cache struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (c *Cache) DB() *sql.DB { return c.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg Config) (*Cache, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite cache opened", "path", cfg.DBPath)
	return &Cache{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS series_cache (
			key        TEXT    NOT NULL PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			data       TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_series_cache_fetched_at ON series_cache (fetched_at);
	`)
	return err
}

func (c *Cache) Get(ctx context.Context, key string) (model.CacheEntry, bool, error) {
	var (
		fetchedAt int64
		data      string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at, data FROM series_cache WHERE key = ?`, key,
	).Scan(&fetchedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	var series model.PriceSeries
	if err := json.Unmarshal([]byte(data), &series); err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("sqlite decode %s: %w", key, err)
	}
	return model.CacheEntry{FetchedAt: time.Unix(0, fetchedAt).UTC(), Series: series}, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, e model.CacheEntry) error {
	data, err := json.Marshal(e.Series)
	if err != nil {
		return fmt.Errorf("sqlite encode %s: %w", key, err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO series_cache (key, fetched_at, data)
		VALUES (?, ?, ?)
	`, key, e.FetchedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM series_cache`); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

// Purge deletes entries fetched before cutoff and reports how many went.
func (c *Cache) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM series_cache WHERE fetched_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

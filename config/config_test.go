package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trendpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.Provider)
	assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeFile(t, `
provider: finnhub
http_addr: ":9000"
cache:
  backend: redis
  ttl: 90s
  redis_addr: "cache:6379"
rate_limit:
  requests: 5
finnhub:
  api_key: abc
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "finnhub", cfg.Provider)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window, "unset keys keep defaults")
	assert.Equal(t, "abc", cfg.ProviderOptions().FinnhubAPIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "provider: finnhub\ncache:\n  ttl: 1m\n")
	t.Setenv("TRENDPULSE_PROVIDER", "questrade")
	t.Setenv("TRENDPULSE_CACHE_TTL", "10m")
	t.Setenv("TRENDPULSE_RATE_LIMIT_REQUESTS", "12")
	t.Setenv("QUESTRADE_TOKEN_FILE", "/tmp/qt.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "questrade", cfg.Provider)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 12, cfg.RateLimit.Requests)
	assert.Equal(t, "/tmp/qt.json", cfg.Questrade.TokenFile)
}

func TestLoad_InvalidEnvKeepsValue(t *testing.T) {
	t.Setenv("TRENDPULSE_CACHE_TTL", "soon")
	t.Setenv("TRENDPULSE_RATE_LIMIT_REQUESTS", "many")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "cache: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"unknown provider":    func(c *Config) { c.Provider = "bloomberg" },
		"finnhub without key": func(c *Config) { c.Provider = "finnhub" },
		"questrade no token":  func(c *Config) { c.Provider = "questrade"; c.Questrade.TokenFile = "" },
		"unknown backend":     func(c *Config) { c.Cache.Backend = "memcached" },
		"redis without addr":  func(c *Config) { c.Cache.Backend = CacheRedis; c.Cache.RedisAddr = "" },
		"sqlite without path": func(c *Config) { c.Cache.SQLitePath = "" },
		"bad purge cron":      func(c *Config) { c.Cache.PurgeCron = "every hour" },
		"zero ttl":            func(c *Config) { c.Cache.TTL = 0 },
		"zero rate limit":     func(c *Config) { c.RateLimit.Requests = 0 },
		"zero rate window":    func(c *Config) { c.RateLimit.Window = 0 },
		"zero http timeout":   func(c *Config) { c.HTTPTimeout = 0 },
		"unknown log level":   func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Cache.Backend = CacheMemory
	cfg.Cache.SQLitePath = ""
	cfg.Cache.PurgeCron = "nonsense"
	assert.NoError(t, cfg.Validate(), "sqlite settings are ignored for other backends")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Provider = "nope"
	cfg.Cache.TTL = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
	assert.Contains(t, err.Error(), "cache.ttl")
}

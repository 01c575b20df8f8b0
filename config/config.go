package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/mhatami/trendpulse/internal/logger"
	"github.com/mhatami/trendpulse/internal/provider"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file, then environment variables.
type Config struct {
	Provider    string        `yaml:"provider"`
	HTTPAddr    string        `yaml:"http_addr"`
	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	Cache struct {
		Backend       string        `yaml:"backend"`
		TTL           time.Duration `yaml:"ttl"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		SQLitePath    string        `yaml:"sqlite_path"`
		// PurgeCron schedules removal of expired SQLite rows (seconds field
		// first). Empty disables the job.
		PurgeCron string `yaml:"purge_cron"`
	} `yaml:"cache"`

	RateLimit struct {
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Finnhub struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"finnhub"`

	Questrade struct {
		TokenFile string `yaml:"token_file"`
		LoginURL  string `yaml:"login_url"`
	} `yaml:"questrade"`

	Yahoo struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"yahoo"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	c := &Config{
		Provider:    string(provider.Yahoo),
		HTTPAddr:    ":8000",
		LogLevel:    "info",
		HTTPTimeout: 15 * time.Second,
	}
	c.Cache.Backend = CacheSQLite
	c.Cache.TTL = 10 * time.Minute
	c.Cache.RedisAddr = "localhost:6379"
	c.Cache.SQLitePath = "data/cache.db"
	c.Cache.PurgeCron = "0 0 * * * *"
	c.RateLimit.Requests = 30
	c.RateLimit.Window = 60 * time.Second
	c.Questrade.TokenFile = "questrade_config.json"
	return c
}

// Load reads path (if non-empty and present) over the defaults and then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Provider = getEnv("TRENDPULSE_PROVIDER", cfg.Provider)
	cfg.HTTPAddr = getEnv("TRENDPULSE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnv("TRENDPULSE_LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPTimeout = getEnvDuration("TRENDPULSE_HTTP_TIMEOUT", cfg.HTTPTimeout)

	cfg.Cache.Backend = getEnv("TRENDPULSE_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = getEnvDuration("TRENDPULSE_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.SQLitePath = getEnv("SQLITE_PATH", cfg.Cache.SQLitePath)
	cfg.Cache.PurgeCron = getEnv("TRENDPULSE_PURGE_CRON", cfg.Cache.PurgeCron)

	cfg.RateLimit.Requests = getEnvInt("TRENDPULSE_RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = getEnvDuration("TRENDPULSE_RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Finnhub.APIKey = getEnv("FINNHUB_API_KEY", cfg.Finnhub.APIKey)
	cfg.Questrade.TokenFile = getEnv("QUESTRADE_TOKEN_FILE", cfg.Questrade.TokenFile)
	cfg.Questrade.LoginURL = getEnv("QUESTRADE_LOGIN_URL", cfg.Questrade.LoginURL)
	cfg.Yahoo.BaseURL = getEnv("YAHOO_BASE_URL", cfg.Yahoo.BaseURL)

	return cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	kind, err := provider.ParseKind(c.Provider)
	if err != nil {
		errs = append(errs, err)
	}
	switch kind {
	case provider.Finnhub:
		if c.Finnhub.APIKey == "" {
			errs = append(errs, errors.New("finnhub.api_key is required for the finnhub provider"))
		}
	case provider.Questrade:
		if c.Questrade.TokenFile == "" {
			errs = append(errs, errors.New("questrade.token_file is required for the questrade provider"))
		}
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("cache.sqlite_path is required for the sqlite backend"))
		}
		if c.Cache.PurgeCron != "" {
			if _, err := cron.NewParser(cronFields).Parse(c.Cache.PurgeCron); err != nil {
				errs = append(errs, fmt.Errorf("cache.purge_cron: %w", err))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q (want memory, redis or sqlite)", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate_limit.requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProviderOptions maps the configuration onto provider.Options.
func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		Timeout:            c.HTTPTimeout,
		YahooBaseURL:       c.Yahoo.BaseURL,
		FinnhubAPIKey:      c.Finnhub.APIKey,
		QuestradeTokenFile: c.Questrade.TokenFile,
		QuestradeLoginURL:  c.Questrade.LoginURL,
	}
}

// cronFields matches cron.WithSeconds().
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration env var", "key", key, "value", v)
		return fallback
	}
	return d
}

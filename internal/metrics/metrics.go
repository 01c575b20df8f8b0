package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// Metrics holds the Prometheus collectors for the API server.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: route, code
	HTTPDuration *prometheus.HistogramVec // labels: route
	RateLimited  prometheus.Counter

	CacheLookups *prometheus.CounterVec // labels: result
	CachePurged  prometheus.Counter

	ProviderFetchDur *prometheus.HistogramVec // labels: provider, op
	ProviderErrors   *prometheus.CounterVec   // labels: provider, kind

	IndicatorComputeDur *prometheus.HistogramVec // labels: name

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh registry, which keeps tests independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendpulse_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendpulse_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendpulse_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendpulse_cache_lookups_total",
			Help: "Series cache lookups by result (hit, miss, stale, error)",
		}, []string{"result"}),
		CachePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendpulse_cache_purged_total",
			Help: "Expired cache entries removed by the purge job",
		}),

		ProviderFetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendpulse_provider_fetch_duration_seconds",
			Help:    "Market-data provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "op"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendpulse_provider_errors_total",
			Help: "Market-data provider failures by error kind",
		}, []string{"provider", "kind"}),

		IndicatorComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendpulse_indicator_compute_duration_seconds",
			Help:    "Indicator compute latency per request",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"name"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendpulse_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendpulse_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimited,
		m.CacheLookups,
		m.CachePurged,
		m.ProviderFetchDur,
		m.ProviderErrors,
		m.IndicatorComputeDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveBreaker records a circuit breaker transition. States follow the
// gauge encoding.
func (m *Metrics) ObserveBreaker(to int) {
	m.RedisCircuitBreakerState.Set(float64(to))
	if to == 1 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	Provider     string
	CacheBackend string

	RedisConnected bool
	SQLiteOK       bool

	// Liveness probe results
	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a health status for the given provider and
// cache backend. Backends without a probe report healthy.
func NewHealthStatus(provider, cacheBackend string) *HealthStatus {
	return &HealthStatus{
		Provider:       provider,
		CacheBackend:   cacheBackend,
		RedisConnected: true,
		SQLiteOK:       true,
		StartedAt:      time.Now(),
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic cache backend checks until ctx ends.
// Either handle may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. A broken cache degrades the
// service but never takes it down: the cache is advisory.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
	}

	lastCheck := ""
	if !h.LastCheckAt.IsZero() {
		lastCheck = h.LastCheckAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Provider        string  `json:"provider"`
		CacheBackend    string  `json:"cache_backend"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Provider:        h.Provider,
		CacheBackend:    h.CacheBackend,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     lastCheck,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

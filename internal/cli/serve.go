package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mhatami/trendpulse/internal/metrics"
	"github.com/mhatami/trendpulse/internal/server"
	"github.com/mhatami/trendpulse/internal/store/sqlite"
)

const livenessInterval = 15 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the TrendPulse HTTP API.

Endpoints:
  GET  /             welcome message
  GET  /healthz      service and cache backend health
  GET  /metrics      Prometheus metrics
  GET  /{symbol}     symbol details
  POST /prices       {"symbol": "AAPL", "period": "1y"}
  POST /indicators   {"symbol": "AAPL", "indicators": [{"name": "SMA", "length": 20}]}
  POST /clear_cache  drop every cached series`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	health := metrics.NewHealthStatus(cfg.Provider, cfg.Cache.Backend)
	if a.rdb != nil {
		health.CheckRedis(ctx, a.rdb)
	}
	if a.sqlDB != nil {
		health.CheckSQLite(ctx, a.sqlDB)
	}
	health.StartLivenessChecker(ctx, a.rdb, a.sqlDB, livenessInterval)

	if a.sqlite != nil && cfg.Cache.PurgeCron != "" {
		sched, err := startPurge(ctx, a.sqlite, a.metrics, cfg.Cache.PurgeCron, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer func() { <-sched.Stop().Done() }()
	}

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(server.Config{
		Addr:       addr,
		Service:    a.orch,
		Metrics:    a.metrics,
		Health:     health,
		RateLimit:  cfg.RateLimit.Requests,
		RateWindow: cfg.RateLimit.Window,
	})
	return srv.Run(ctx)
}

// startPurge schedules removal of SQLite rows older than ttl.
func startPurge(ctx context.Context, c *sqlite.Cache, m *metrics.Metrics, spec string, ttl time.Duration) (*cron.Cron, error) {
	sched := cron.New(cron.WithSeconds())
	_, err := sched.AddFunc(spec, func() {
		purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		n, err := c.Purge(purgeCtx, time.Now().Add(-ttl))
		if err != nil {
			slog.Error("cache purge failed", "error", err)
			return
		}
		m.CachePurged.Add(float64(n))
		if n > 0 {
			slog.Info("cache purged", "rows", n)
		}
	})
	if err != nil {
		return nil, err
	}
	sched.Start()
	slog.Info("cache purge scheduled", "cron", spec)
	return sched, nil
}

// Package server exposes the orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhatami/trendpulse/internal/metrics"
	"github.com/mhatami/trendpulse/internal/model"
)

// Service is the request pipeline the handlers call into.
type Service interface {
	Prices(ctx context.Context, symbol, period string) (model.Table, error)
	Indicators(ctx context.Context, symbol string, specs []model.IndicatorSpec) (model.Table, error)
	Details(ctx context.Context, symbol string) (model.SymbolDetails, error)
	ClearCache(ctx context.Context) error
}

// Config wires a Server.
type Config struct {
	Addr       string
	Service    Service
	Metrics    *metrics.Metrics // required
	Health     http.Handler     // optional; defaults to a static ok
	RateLimit  int
	RateWindow time.Duration
}

// Server is the TrendPulse HTTP API.
type Server struct {
	addr    string
	svc     Service
	metrics *metrics.Metrics
	health  http.Handler
	limiter *Limiter
	handler http.Handler
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		addr:    cfg.Addr,
		svc:     cfg.Service,
		metrics: cfg.Metrics,
		health:  cfg.Health,
		limiter: NewLimiter(cfg.RateLimit, cfg.RateWindow),
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.health == nil {
		s.health = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	s.handler = s.withCORS(s.withRateLimit(mux))
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

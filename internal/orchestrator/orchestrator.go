// Package orchestrator runs a request end to end: resolve the period to a
// trading window, serve bars from cache or the provider, compute the
// requested indicators and merge everything into one table.
package orchestrator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/indicator"
	"github.com/mhatami/trendpulse/internal/logger"
	"github.com/mhatami/trendpulse/internal/markethours"
	"github.com/mhatami/trendpulse/internal/metrics"
	"github.com/mhatami/trendpulse/internal/model"
)

const (
	// DefaultTTL is how long a cached series is served without refetching.
	DefaultTTL = 10 * time.Minute

	// IndicatorPeriod is the fixed history indicators are computed over.
	IndicatorPeriod = "1y"

	cacheKind = "price"
)

var symbolRE = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

// Config wires an Orchestrator.
type Config struct {
	Provider model.PriceProvider
	Cache    model.SeriesCache // nil disables caching
	Resolver *markethours.Resolver
	Engine   *indicator.Engine
	Metrics  *metrics.Metrics // optional
	TTL      time.Duration
	Now      func() time.Time
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	provider model.PriceProvider
	cache    model.SeriesCache
	resolver *markethours.Resolver
	engine   *indicator.Engine
	metrics  *metrics.Metrics
	ttl      time.Duration
	now      func() time.Time
}

// New creates an orchestrator, filling unset fields with defaults.
func New(cfg Config) *Orchestrator {
	if cfg.Resolver == nil {
		cfg.Resolver = markethours.NewResolver(nil)
	}
	if cfg.Engine == nil {
		cfg.Engine = indicator.NewEngine()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics != nil && cfg.Engine.Observe == nil {
		m := cfg.Metrics
		cfg.Engine.Observe = func(name string, d time.Duration) {
			m.IndicatorComputeDur.WithLabelValues(name).Observe(d.Seconds())
		}
	}
	return &Orchestrator{
		provider: cfg.Provider,
		cache:    cfg.Cache,
		resolver: cfg.Resolver,
		engine:   cfg.Engine,
		metrics:  cfg.Metrics,
		ttl:      cfg.TTL,
		now:      cfg.Now,
	}
}

// NormalizeSymbol trims and upper-cases s and checks its alphabet.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" || !symbolRE.MatchString(sym) {
		return "", apperr.New(apperr.KindInvalidSymbol, "invalid symbol %q", s)
	}
	return sym, nil
}

// Prices returns the bars for symbol over period.
func (o *Orchestrator) Prices(ctx context.Context, symbol, period string) (model.Table, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return model.Table{}, err
	}
	if !markethours.IsPublicPeriod(period) {
		return model.Table{}, apperr.New(apperr.KindUnsupportedPeriod,
			"unsupported period %q (want one of %s)", period, strings.Join(markethours.Periods(), ", "))
	}

	series, err := o.series(ctx, sym, period)
	if err != nil {
		return model.Table{}, err
	}
	return model.NewTable(sym, series.Bars, nil)
}

// Indicators computes specs over the last year of daily bars. Every spec
// is validated before any data is fetched; one bad spec fails the request.
func (o *Orchestrator) Indicators(ctx context.Context, symbol string, specs []model.IndicatorSpec) (model.Table, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return model.Table{}, err
	}
	for _, s := range specs {
		if _, err := indicator.Normalize(s); err != nil {
			return model.Table{}, err
		}
	}

	series, err := o.series(ctx, sym, IndicatorPeriod)
	if err != nil {
		return model.Table{}, err
	}

	results, err := o.engine.Compute(ctx, series.Bars, specs)
	if err != nil {
		slog.Error("indicator computation failed", append(logger.LogWithTrace(ctx), "symbol", sym, "error", err)...)
		return model.Table{}, err
	}
	cols := indicator.Merge(series.Bars, results...)
	table, err := model.NewTable(sym, series.Bars, cols)
	if err != nil {
		return model.Table{}, apperr.Wrap(apperr.KindIndicatorComputation, err, "merge %s", sym)
	}
	return table, nil
}

// Details returns reference and quote data for symbol. Details are not
// cached.
func (o *Orchestrator) Details(ctx context.Context, symbol string) (model.SymbolDetails, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return model.SymbolDetails{}, err
	}

	start := o.now()
	d, err := o.provider.FetchDetails(ctx, sym)
	if err != nil {
		err = classify(err, "details for %s", sym)
	}
	o.observeFetch("details", start, err)
	if err != nil {
		return model.SymbolDetails{}, err
	}
	if d.Symbol == "" {
		d.Symbol = sym
	}
	return d, nil
}

// ClearCache drops every cached series. Cache failures surface as
// CacheUnavailable.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	if o.cache == nil {
		return nil
	}
	if err := o.cache.Clear(ctx); err != nil {
		return apperr.Wrap(apperr.KindCacheUnavailable, err, "clear cache")
	}
	slog.Info("cache cleared", logger.LogWithTrace(ctx)...)
	return nil
}

// Window resolves period for symbol as of now. Internal periods such as
// 2y are accepted.
func (o *Orchestrator) Window(symbol, period string) (model.Window, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return model.Window{}, err
	}
	return o.resolver.ResolvePeriod(markethours.MarketOf(sym), period, o.now())
}

// series resolves period and serves the bars from cache when fresh,
// otherwise from the provider.
func (o *Orchestrator) series(ctx context.Context, sym, period string) (model.PriceSeries, error) {
	w, err := o.Window(sym, period)
	if err != nil {
		return model.PriceSeries{}, err
	}
	key := model.CacheKey(sym, w.Period, w.Interval, cacheKind)
	attrs := append(logger.LogWithTrace(ctx), "key", key)

	if o.cache != nil {
		entry, ok, err := o.cache.Get(ctx, key)
		switch {
		case err != nil:
			o.countLookup(metrics.CacheError)
			slog.Warn("cache read failed, treating as miss", append(attrs, "error", err)...)
		case !ok:
			o.countLookup(metrics.CacheMiss)
		case entry.Fresh(o.now(), o.ttl):
			o.countLookup(metrics.CacheHit)
			slog.Debug("cache hit", attrs...)
			return entry.Series, nil
		default:
			o.countLookup(metrics.CacheStale)
		}
	}

	start := o.now()
	series, err := o.provider.FetchPrices(ctx, sym, w)
	if err != nil {
		err = classify(err, "prices for %s (%s)", sym, period)
	}
	o.observeFetch("prices", start, err)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if len(series.Bars) == 0 {
		return model.PriceSeries{}, apperr.New(apperr.KindNoData, "no price data for %s (%s)", sym, period)
	}
	series.Symbol, series.Period, series.Interval = sym, w.Period, w.Interval

	if o.cache != nil {
		entry := model.CacheEntry{FetchedAt: o.now(), Series: series}
		if err := o.cache.Set(ctx, key, entry); err != nil {
			slog.Warn("cache write failed", append(attrs, "error", err)...)
		}
	}
	slog.Info("fetched prices", append(attrs, "provider", o.provider.Name(), "bars", len(series.Bars), "took", o.now().Sub(start))...)
	return series, nil
}

// classify keeps a provider's own classification and marks anything
// unclassified as an upstream failure.
func classify(err error, format string, args ...any) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.KindUpstreamProvider, err, format, args...)
}

func (o *Orchestrator) countLookup(result string) {
	if o.metrics != nil {
		o.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) observeFetch(op string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	name := o.provider.Name()
	o.metrics.ProviderFetchDur.WithLabelValues(name, op).Observe(o.now().Sub(start).Seconds())
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues(name, apperr.KindOf(err)).Inc()
	}
}

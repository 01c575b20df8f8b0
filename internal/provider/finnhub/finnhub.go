// Package finnhub fetches bars and company data from Finnhub.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/antihax/optional"
	"github.com/cenkalti/backoff/v4"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/markethours"
	"github.com/mhatami/trendpulse/internal/model"
)

// ErrTooManyRequests marks a 429 from Finnhub; only these are retried.
var ErrTooManyRequests = errors.New("finnhub: too many requests")

var resolutions = map[model.Interval]string{
	model.Interval1m:  "1",
	model.Interval1h:  "60",
	model.Interval1d:  "D",
	model.Interval1wk: "W",
	model.Interval1mo: "M",
}

// Config configures the Finnhub provider.
type Config struct {
	APIKey  string
	BaseURL string        // default: the library's production endpoint
	Timeout time.Duration // default: 30s
	// Retries on 429 start at InitialBackoff (default 1s) and stop after
	// MaxElapsed (default 1m).
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// Provider implements model.PriceProvider.
type Provider struct {
	client         *finnhub.DefaultApiService
	apiKey         string
	initialBackoff time.Duration
	maxElapsed     time.Duration
}

// New creates a Finnhub provider.
func New(cfg Config) *Provider {
	fc := finnhub.NewConfiguration()
	if cfg.BaseURL != "" {
		fc.BasePath = cfg.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	fc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = time.Minute
	}
	return &Provider{
		client:         finnhub.NewAPIClient(fc).DefaultApi,
		apiKey:         cfg.APIKey,
		initialBackoff: cfg.InitialBackoff,
		maxElapsed:     cfg.MaxElapsed,
	}
}

func (p *Provider) Name() string { return "finnhub" }

func (p *Provider) auth(ctx context.Context) context.Context {
	return context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: p.apiKey})
}

// retry runs op with exponential backoff, retrying only rate-limit errors.
func (p *Provider) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialBackoff
	bo.MaxElapsedTime = p.maxElapsed
	notify := func(err error, d time.Duration) {
		slog.Warn("finnhub retry", "error", err, "backoff", d)
	}
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !errors.Is(err, ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx), notify)
}

func (p *Provider) FetchPrices(ctx context.Context, symbol string, w model.Window) (model.PriceSeries, error) {
	series := model.PriceSeries{Symbol: symbol, Period: w.Period, Interval: w.Interval}
	res, ok := resolutions[w.Interval]
	if !ok {
		return series, apperr.New(apperr.KindUpstreamProvider, "finnhub: no resolution for interval %s", w.Interval)
	}
	market := markethours.MarketOf(symbol)

	var candles finnhub.StockCandles
	err := p.retry(ctx, func() error {
		c, resp, err := p.client.StockCandles(p.auth(ctx), symbol, res, market.FetchStart(w).Unix(), w.End.Unix(), nil)
		if err != nil {
			return handleErr(fmt.Sprintf("candles for %q", symbol), resp, err)
		}
		candles = c
		return nil
	})
	if err != nil {
		return series, apperr.Wrap(apperr.KindUpstreamProvider, err, "finnhub")
	}
	if candles.S == "no_data" || len(candles.T) == 0 {
		return series, apperr.New(apperr.KindNoData, "no price data for %s (%s)", symbol, w.Period)
	}

	n := len(candles.T)
	if len(candles.O) != n || len(candles.H) != n || len(candles.L) != n || len(candles.C) != n || len(candles.V) != n {
		return series, apperr.New(apperr.KindUpstreamProvider, "finnhub: misaligned candle arrays for %s", symbol)
	}

	bars := make([]model.PriceBar, n)
	for i, ts := range candles.T {
		bars[i] = model.PriceBar{
			Timestamp: market.AlignBar(time.Unix(ts, 0), w.Interval),
			Open:      f64(candles.O[i]),
			High:      f64(candles.H[i]),
			Low:       f64(candles.L[i]),
			Close:     f64(candles.C[i]),
			Volume:    int64(candles.V[i]),
		}
	}
	series.Bars = model.SortBars(bars)
	return series, nil
}

func (p *Provider) FetchDetails(ctx context.Context, symbol string) (model.SymbolDetails, error) {
	var profile finnhub.CompanyProfile2
	err := p.retry(ctx, func() error {
		c, resp, err := p.client.CompanyProfile2(p.auth(ctx), &finnhub.CompanyProfile2Opts{Symbol: optional.NewString(symbol)})
		if err != nil {
			return handleErr(fmt.Sprintf("company profile %q", symbol), resp, err)
		}
		profile = c
		return nil
	})
	if err != nil {
		return model.SymbolDetails{}, apperr.Wrap(apperr.KindUpstreamProvider, err, "finnhub")
	}

	var quote finnhub.Quote
	err = p.retry(ctx, func() error {
		q, resp, err := p.client.Quote(p.auth(ctx), symbol)
		if err != nil {
			return handleErr(fmt.Sprintf("quote %q", symbol), resp, err)
		}
		quote = q
		return nil
	})
	if err != nil {
		return model.SymbolDetails{}, apperr.Wrap(apperr.KindUpstreamProvider, err, "finnhub")
	}

	if profile.Ticker == "" && quote.C == 0 {
		return model.SymbolDetails{}, apperr.New(apperr.KindNoData, "no details for %s", symbol)
	}

	d := model.SymbolDetails{
		Symbol:          symbol,
		Name:            model.OptString(profile.Name),
		Sector:          model.OptString(profile.FinnhubIndustry),
		ListingExchange: model.OptString(profile.Exchange),
		Currency:        model.OptString(profile.Currency),
		Open:            model.OptFloat(f64(quote.O)),
		High:            model.OptFloat(f64(quote.H)),
		Low:             model.OptFloat(f64(quote.L)),
		LastTradePrice:  model.OptFloat(f64(quote.C)),
	}
	if profile.Ticker != "" {
		d.SecurityType = null.StringFrom("Stock")
	}
	// profile figures are in millions
	if profile.MarketCapitalization > 0 {
		d.MarketCap = null.FloatFrom(millions(profile.MarketCapitalization).InexactFloat64())
	}
	if profile.ShareOutstanding > 0 {
		d.OutstandingShares = null.IntFrom(millions(profile.ShareOutstanding).Round(0).IntPart())
	}
	return d, nil
}

// f64 widens a wire float32 through its shortest decimal form, so 170.33
// stays 170.33 rather than 170.3300018.
func f64(f float32) float64 {
	return decimal.NewFromFloat32(f).InexactFloat64()
}

func millions(f float32) decimal.Decimal {
	return decimal.NewFromFloat32(f).Shift(6)
}

func handleErr(msg string, resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", msg, ErrTooManyRequests)
	}
	defer resp.Body.Close()
	body, err2 := io.ReadAll(resp.Body)
	if err2 != nil || len(body) == 0 {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w (%s)", msg, err, string(body))
}

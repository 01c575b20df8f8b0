// Package yahoo fetches bars and symbol details from the Yahoo Finance
// chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/markethours"
	"github.com/mhatami/trendpulse/internal/model"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Config configures the Yahoo provider.
type Config struct {
	BaseURL string
	Timeout time.Duration // default: 30s
	Client  *http.Client
}

// Provider implements model.PriceProvider.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a Yahoo provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{baseURL: cfg.BaseURL, client: client}
}

func (p *Provider) Name() string { return "yahoo" }

// chartResponse is the subset of the chart API response we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta       chartMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []decimal.NullDecimal `json:"open"`
					High   []decimal.NullDecimal `json:"high"`
					Low    []decimal.NullDecimal `json:"low"`
					Close  []decimal.NullDecimal `json:"close"`
					Volume []null.Int            `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol               string     `json:"symbol"`
	Currency             string     `json:"currency"`
	ExchangeName         string     `json:"exchangeName"`
	FullExchangeName     string     `json:"fullExchangeName"`
	InstrumentType       string     `json:"instrumentType"`
	LongName             string     `json:"longName"`
	ShortName            string     `json:"shortName"`
	RegularMarketPrice   null.Float `json:"regularMarketPrice"`
	RegularMarketDayHigh null.Float `json:"regularMarketDayHigh"`
	RegularMarketDayLow  null.Float `json:"regularMarketDayLow"`
	RegularMarketVolume  null.Int   `json:"regularMarketVolume"`
	FiftyTwoWeekHigh     null.Float `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      null.Float `json:"fiftyTwoWeekLow"`
}

// FetchPrices queries the chart API for w and drops rows with any null
// price field.
func (p *Provider) FetchPrices(ctx context.Context, symbol string, w model.Window) (model.PriceSeries, error) {
	market := markethours.MarketOf(symbol)
	q := url.Values{
		"period1":        {strconv.FormatInt(market.FetchStart(w).Unix(), 10)},
		"period2":        {strconv.FormatInt(w.End.Unix(), 10)},
		"interval":       {string(w.Interval)},
		"includePrePost": {"false"},
		"events":         {"div,splits"},
	}
	chart, err := p.fetchChart(ctx, symbol, q)
	if err != nil {
		return model.PriceSeries{}, err
	}

	series := model.PriceSeries{Symbol: symbol, Period: w.Period, Interval: w.Interval}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return series, apperr.New(apperr.KindNoData, "no price data for %s (%s)", symbol, w.Period)
	}
	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n {
		return series, apperr.New(apperr.KindUpstreamProvider, "yahoo: misaligned quote arrays for %s", symbol)
	}

	bars := make([]model.PriceBar, 0, n)
	for i, ts := range result.Timestamp {
		o, h, l, c := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i]
		if !o.Valid || !h.Valid || !l.Valid || !c.Valid {
			continue
		}
		var vol int64
		if i < len(quote.Volume) {
			vol = quote.Volume[i].Int64
		}
		bars = append(bars, model.PriceBar{
			Timestamp: market.AlignBar(time.Unix(ts, 0), w.Interval),
			Open:      o.Decimal.InexactFloat64(),
			High:      h.Decimal.InexactFloat64(),
			Low:       l.Decimal.InexactFloat64(),
			Close:     c.Decimal.InexactFloat64(),
			Volume:    vol,
		})
	}
	series.Bars = model.SortBars(bars)
	if len(series.Bars) == 0 {
		return series, apperr.New(apperr.KindNoData, "no price data for %s (%s)", symbol, w.Period)
	}
	return series, nil
}

// FetchDetails reads the chart metadata of a one-day daily query. The
// chart API carries no fundamentals, so those fields stay null.
func (p *Provider) FetchDetails(ctx context.Context, symbol string) (model.SymbolDetails, error) {
	q := url.Values{"range": {"1d"}, "interval": {"1d"}}
	chart, err := p.fetchChart(ctx, symbol, q)
	if err != nil {
		return model.SymbolDetails{}, err
	}
	if len(chart.Chart.Result) == 0 {
		return model.SymbolDetails{}, apperr.New(apperr.KindNoData, "no details for %s", symbol)
	}
	result := chart.Chart.Result[0]
	meta := result.Meta

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}
	d := model.SymbolDetails{
		Symbol:          symbol,
		Name:            model.OptString(name),
		ListingExchange: model.OptString(exchange),
		SecurityType:    model.OptString(meta.InstrumentType),
		Currency:        model.OptString(meta.Currency),
		High:            meta.RegularMarketDayHigh,
		Low:             meta.RegularMarketDayLow,
		LastTradePrice:  meta.RegularMarketPrice,
		Volume:          meta.RegularMarketVolume,
		High52w:         meta.FiftyTwoWeekHigh,
		Low52w:          meta.FiftyTwoWeekLow,
	}
	if meta.Symbol != "" {
		d.Symbol = meta.Symbol
	}
	if qs := result.Indicators.Quote; len(qs) > 0 && len(qs[0].Open) > 0 && qs[0].Open[0].Valid {
		d.Open = null.FloatFrom(qs[0].Open[0].Decimal.InexactFloat64())
	}
	return d, nil
}

func (p *Provider) fetchChart(ctx context.Context, symbol string, q url.Values) (chartResponse, error) {
	var chart chartResponse
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return chart, apperr.Wrap(apperr.KindUpstreamProvider, err, "yahoo request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return chart, apperr.Wrap(apperr.KindUpstreamProvider, err, "yahoo fetch %s", symbol)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chart, apperr.Wrap(apperr.KindUpstreamProvider, err, "yahoo read body")
	}

	// a 404 still carries a chart.error body naming the problem
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return chart, apperr.New(apperr.KindUpstreamProvider, "yahoo: status %d", resp.StatusCode)
		}
		return chart, apperr.Wrap(apperr.KindUpstreamProvider, err, "yahoo decode")
	}
	if e := chart.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return chart, apperr.New(apperr.KindNoData, "yahoo: %s", e.Description)
		}
		return chart, apperr.New(apperr.KindUpstreamProvider, "yahoo api error: %s", e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return chart, apperr.New(apperr.KindUpstreamProvider, "yahoo: status %d", resp.StatusCode)
	}
	return chart, nil
}

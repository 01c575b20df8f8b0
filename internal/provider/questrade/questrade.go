// Package questrade adapts the Questrade REST client to the price
// provider interface.
package questrade

import (
	"context"
	"errors"
	"net/http"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/markethours"
	"github.com/mhatami/trendpulse/internal/model"
	qt "github.com/mhatami/trendpulse/pkg/questrade"
)

var intervals = map[model.Interval]qt.Interval{
	model.Interval1m:  qt.OneMinute,
	model.Interval1h:  qt.OneHour,
	model.Interval1d:  qt.OneDay,
	model.Interval1wk: qt.OneWeek,
	model.Interval1mo: qt.OneMonth,
}

// Provider implements model.PriceProvider.
type Provider struct {
	client *qt.Client
}

// New wraps a Questrade client.
func New(client *qt.Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Name() string { return "questrade" }

func (p *Provider) FetchPrices(ctx context.Context, symbol string, w model.Window) (model.PriceSeries, error) {
	series := model.PriceSeries{Symbol: symbol, Period: w.Period, Interval: w.Interval}
	iv, ok := intervals[w.Interval]
	if !ok {
		return series, apperr.New(apperr.KindUpstreamProvider, "questrade: no interval for %s", w.Interval)
	}

	id, err := p.client.SymbolID(ctx, symbol)
	if err != nil {
		return series, classify(err, symbol)
	}
	market := markethours.MarketOf(symbol)
	candles, err := p.client.Candles(ctx, id, market.FetchStart(w), w.End, iv)
	if err != nil {
		return series, classify(err, symbol)
	}
	if len(candles) == 0 {
		return series, apperr.New(apperr.KindNoData, "no price data for %s between %s and %s", symbol, w.Start.Format(model.DateTimeLayout), w.End.Format(model.DateTimeLayout))
	}

	bars := make([]model.PriceBar, len(candles))
	for i, c := range candles {
		bars[i] = model.PriceBar{
			Timestamp: market.AlignBar(c.Start, w.Interval),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
	}
	series.Bars = model.SortBars(bars)
	return series, nil
}

func (p *Provider) FetchDetails(ctx context.Context, symbol string) (model.SymbolDetails, error) {
	id, err := p.client.SymbolID(ctx, symbol)
	if err != nil {
		return model.SymbolDetails{}, classify(err, symbol)
	}
	sym, err := p.client.Symbol(ctx, id)
	if err != nil {
		return model.SymbolDetails{}, classify(err, symbol)
	}
	quote, err := p.client.Quote(ctx, id)
	if err != nil {
		return model.SymbolDetails{}, classify(err, symbol)
	}

	return model.SymbolDetails{
		Symbol:            sym.Symbol,
		Name:              sym.Description,
		Sector:            sym.IndustrySector,
		ListingExchange:   sym.ListingExchange,
		SecurityType:      sym.SecurityType,
		Currency:          sym.Currency,
		Dividend:          sym.Dividend,
		DividendYield:     sym.Yield,
		PERatio:           sym.PE,
		EPS:               sym.EPS,
		MarketCap:         sym.MarketCap,
		OutstandingShares: sym.OutstandingShares,
		ExDividendDate:    sym.ExDate,
		Open:              quote.OpenPrice,
		High:              quote.HighPrice,
		Low:               quote.LowPrice,
		LastTradePrice:    quote.LastTradePrice,
		Volume:            quote.Volume,
		High52w:           sym.HighPrice52,
		Low52w:            sym.LowPrice52,
	}, nil
}

// classify maps client errors onto the request error kinds. An unknown
// symbol is NoData; everything else is an upstream failure.
func classify(err error, symbol string) error {
	if errors.Is(err, qt.ErrSymbolNotFound) {
		return apperr.Wrap(apperr.KindNoData, err, "questrade: %s", symbol)
	}
	var apiErr *qt.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return apperr.Wrap(apperr.KindNoData, err, "questrade: %s", symbol)
	}
	return apperr.Wrap(apperr.KindUpstreamProvider, err, "questrade: %s", symbol)
}

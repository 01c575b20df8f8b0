// Package indicator provides technical indicator calculations over an
// ordered price series.
//
// Each indicator is a small state machine fed one bar at a time. Run drives
// an indicator across a whole series and returns one output row per input
// bar, so every result is aligned 1:1 with the bars it was computed from.
package indicator

import (
	"math"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "MACD").
	Name() string

	// Params renders the parameters for column disambiguation ("20", "12_26_9").
	Params() string

	// Columns lists the output column names in order.
	Columns() []string

	// Update feeds the next bar.
	Update(bar model.PriceBar)

	// Values returns the current output for each column. An invalid
	// null.Float means the indicator has no value for this bar.
	Values() []null.Float
}

// Run feeds every bar through ind and collects its outputs.
// Non-finite values are emitted as null.
func Run(ind Indicator, bars []model.PriceBar) model.IndicatorSeries {
	names := ind.Columns()
	out := model.IndicatorSeries{
		Name:       ind.Name(),
		Params:     ind.Params(),
		Timestamps: make([]time.Time, len(bars)),
		Columns:    make([]model.Column, len(names)),
	}
	for c, n := range names {
		out.Columns[c] = model.Column{Name: n, Values: make([]null.Float, len(bars))}
	}
	for i, b := range bars {
		ind.Update(b)
		out.Timestamps[i] = b.Timestamp
		for c, v := range ind.Values() {
			out.Columns[c].Values[i] = finite(v)
		}
	}
	return out
}

// finite normalizes NaN and ±Inf to null.
func finite(v null.Float) null.Float {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return null.Float{}
	}
	return v
}

// value wraps f, mapping non-finite results to null.
func value(f float64) null.Float {
	return finite(null.FloatFrom(f))
}

func itoa(n int) string { return strconv.Itoa(n) }

package model

import (
	"sort"
	"time"
)

// Interval is the bar granularity requested from a provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

// Intraday reports whether bars of this interval carry a time of day.
func (i Interval) Intraday() bool {
	return i == Interval1m || i == Interval1h
}

// PriceBar is one OHLCV bar. Timestamp is always UTC. Daily and coarser
// bars sit at midnight UTC of their market-local trading date.
type PriceBar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Midnight reports whether the bar timestamp is exactly 00:00:00 UTC.
func (b PriceBar) Midnight() bool {
	t := b.Timestamp.UTC()
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// Window is a resolved request range handed to a provider.
type Window struct {
	Period   string    `json:"period"`
	Interval Interval  `json:"interval"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// PriceSeries is an ordered run of bars for one (symbol, period, interval).
type PriceSeries struct {
	Symbol   string     `json:"symbol"`
	Period   string     `json:"period"`
	Interval Interval   `json:"interval"`
	Bars     []PriceBar `json:"bars"`
}

// Closes returns the close prices in bar order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// SortBars orders bars by timestamp and drops duplicates, keeping the last
// bar seen for a timestamp. The input slice is reordered in place.
func SortBars(bars []PriceBar) []PriceBar {
	if len(bars) < 2 {
		return bars
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	out := bars[:1]
	for _, b := range bars[1:] {
		last := &out[len(out)-1]
		if b.Timestamp.Equal(last.Timestamp) {
			*last = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// CacheKey builds the cache identity "<SYMBOL>-<period>-<interval>-<kind>".
func CacheKey(symbol, period string, interval Interval, kind string) string {
	return symbol + "-" + period + "-" + string(interval) + "-" + kind
}

// CacheEntry is what a SeriesCache stores under a key.
type CacheEntry struct {
	FetchedAt time.Time   `json:"fetched_at"`
	Series    PriceSeries `json:"series"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// IndicatorSpec names one indicator and its parameters. Zero means the
// parameter was not supplied and the indicator default applies.
type IndicatorSpec struct {
	Name   string `json:"name"`
	Length int    `json:"length,omitempty"`
	Fast   int    `json:"fast,omitempty"`
	Slow   int    `json:"slow,omitempty"`
	Signal int    `json:"signal,omitempty"`
}

// String renders the spec as "SMA(20)" or "MACD(12,26,9)".
func (s IndicatorSpec) String() string {
	name := strings.ToUpper(s.Name)
	if name == "MACD" {
		return fmt.Sprintf("%s(%d,%d,%d)", name, s.Fast, s.Slow, s.Signal)
	}
	return fmt.Sprintf("%s(%d)", name, s.Length)
}

// Column is one named output column; Values are aligned to the series
// timestamps and an invalid null.Float means "no value".
type Column struct {
	Name   string       `json:"name"`
	Values []null.Float `json:"values"`
}

// IndicatorSeries is the output of one indicator over a price series.
type IndicatorSeries struct {
	Name       string      `json:"name"`
	Params     string      `json:"params"` // "20", "12_26_9"
	Timestamps []time.Time `json:"timestamps"`
	Columns    []Column    `json:"columns"`
}

// Len returns the number of rows in the series.
func (s IndicatorSeries) Len() int { return len(s.Timestamps) }

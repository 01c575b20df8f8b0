package indicator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"golang.org/x/sync/errgroup"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/model"
)

// Default parameters applied when a spec leaves them zero.
const (
	DefaultSMA    = 20
	DefaultEMA    = 20
	DefaultRSI    = 14
	DefaultBB     = 20
	DefaultATR    = 14
	DefaultFast   = 12
	DefaultSlow   = 26
	DefaultSignal = 9
)

// MaxLength bounds every window parameter. Each indicator allocates its
// window up front, so an unbounded length is an unbounded allocation.
const MaxLength = 1000

var defaultLengths = map[string]int{
	"SMA": DefaultSMA,
	"EMA": DefaultEMA,
	"RSI": DefaultRSI,
	"BB":  DefaultBB,
	"ATR": DefaultATR,
}

// Names lists the supported indicator names.
func Names() []string {
	return []string{"SMA", "EMA", "RSI", "BB", "MACD", "ATR"}
}

// Normalize upper-cases the name and fills default parameters. Unknown
// names, negative parameters and parameters above MaxLength are rejected
// as caller errors.
func Normalize(spec model.IndicatorSpec) (model.IndicatorSpec, error) {
	spec.Name = strings.ToUpper(strings.TrimSpace(spec.Name))
	if spec.Name == "MACD" {
		if spec.Fast < 0 || spec.Slow < 0 || spec.Signal < 0 {
			return spec, apperr.BadParameter("MACD parameters must be positive, got fast=%d slow=%d signal=%d", spec.Fast, spec.Slow, spec.Signal)
		}
		if spec.Fast == 0 {
			spec.Fast = DefaultFast
		}
		if spec.Slow == 0 {
			spec.Slow = DefaultSlow
		}
		if spec.Signal == 0 {
			spec.Signal = DefaultSignal
		}
		if spec.Fast > MaxLength || spec.Slow > MaxLength || spec.Signal > MaxLength {
			return spec, apperr.BadParameter("MACD parameters must not exceed %d, got fast=%d slow=%d signal=%d", MaxLength, spec.Fast, spec.Slow, spec.Signal)
		}
		return spec, nil
	}

	def, ok := defaultLengths[spec.Name]
	if !ok {
		return spec, apperr.BadParameter("unsupported indicator %q", spec.Name)
	}
	if spec.Length < 0 {
		return spec, apperr.BadParameter("%s length must be positive, got %d", spec.Name, spec.Length)
	}
	if spec.Length > MaxLength {
		return spec, apperr.BadParameter("%s length must not exceed %d, got %d", spec.Name, MaxLength, spec.Length)
	}
	if spec.Length == 0 {
		spec.Length = def
	}
	return spec, nil
}

// New builds the indicator for a spec, applying defaults.
func New(spec model.IndicatorSpec) (Indicator, error) {
	spec, err := Normalize(spec)
	if err != nil {
		return nil, err
	}
	switch spec.Name {
	case "SMA":
		return NewSMA(spec.Length), nil
	case "EMA":
		return NewEMA(spec.Length), nil
	case "RSI":
		return NewRSI(spec.Length), nil
	case "BB":
		return NewBollinger(spec.Length), nil
	case "ATR":
		return NewATR(spec.Length), nil
	case "MACD":
		return NewMACD(spec.Fast, spec.Slow, spec.Signal), nil
	}
	return nil, apperr.BadParameter("unsupported indicator %q", spec.Name)
}

// Engine computes a request's indicators over one price series.
// Indicators run concurrently; each reads the shared bars and owns its
// own state, so no locking is needed.
type Engine struct {
	// Observe, when set, receives each indicator's compute time.
	Observe func(name string, d time.Duration)

	build func(model.IndicatorSpec) (Indicator, error)
}

// NewEngine creates an indicator engine.
func NewEngine() *Engine { return &Engine{build: New} }

// Compute validates every spec before computing any, then returns one
// series per spec in request order. Any failure fails the whole call.
func (e *Engine) Compute(ctx context.Context, bars []model.PriceBar, specs []model.IndicatorSpec) ([]model.IndicatorSeries, error) {
	inds := make([]Indicator, len(specs))
	for i, s := range specs {
		build := e.build
		if build == nil {
			build = New
		}
		ind, err := build(s)
		if err != nil {
			return nil, err
		}
		inds[i] = ind
	}

	results := make([]model.IndicatorSeries, len(inds))
	g, ctx := errgroup.WithContext(ctx)
	for i, ind := range inds {
		i, ind := i, ind
		g.Go(func() (err error) {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = apperr.New(apperr.KindIndicatorComputation, "%s(%s): %v", ind.Name(), ind.Params(), r)
				}
			}()
			start := time.Now()
			s := Run(ind, bars)
			if s.Len() != len(bars) {
				return apperr.New(apperr.KindIndicatorComputation, "%s(%s) produced %d rows for %d bars", ind.Name(), ind.Params(), s.Len(), len(bars))
			}
			if e.Observe != nil {
				e.Observe(ind.Name(), time.Since(start))
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Merge left-joins each series onto bars by exact timestamp and returns
// the indicator columns aligned to bars. Rows without a match keep null
// values. A column whose name is already taken gets the series parameters
// appended ("SMA_50").
func Merge(bars []model.PriceBar, series ...model.IndicatorSeries) []model.Column {
	var out []model.Column
	taken := make(map[string]bool)
	for _, s := range series {
		rowOf := make(map[int64]int, s.Len())
		for i, ts := range s.Timestamps {
			rowOf[ts.UnixNano()] = i
		}
		for _, c := range s.Columns {
			col := model.Column{Name: uniqueName(c.Name, s.Params, taken), Values: make([]null.Float, len(bars))}
			for i, b := range bars {
				if j, ok := rowOf[b.Timestamp.UnixNano()]; ok && j < len(c.Values) {
					col.Values[i] = c.Values[j]
				}
			}
			out = append(out, col)
		}
	}
	return out
}

func uniqueName(name, params string, taken map[string]bool) string {
	candidate := name
	if taken[candidate] {
		candidate = name + "_" + params
	}
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%s_%d", name, params, n)
	}
	taken[candidate] = true
	return candidate
}

package indicator

import (
	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// ema is the recursive exponential average seeded with the first input:
// e[0] = x[0], e[i] = k*x[i] + (1-k)*e[i-1], k = 2/(period+1).
type ema struct {
	multiplier float64
	current    float64
	seeded     bool
}

func newEMA(period int) ema {
	return ema{multiplier: 2.0 / float64(period+1)}
}

func (e *ema) next(x float64) float64 {
	if !e.seeded {
		e.current = x
		e.seeded = true
		return e.current
	}
	e.current = x*e.multiplier + e.current*(1-e.multiplier)
	return e.current
}

// EMA calculates the Exponential Moving Average of close. It has a value
// from the first bar onward.
type EMA struct {
	period int
	e      ema
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{period: period, e: newEMA(period)}
}

func (e *EMA) Name() string      { return "EMA" }
func (e *EMA) Params() string    { return itoa(e.period) }
func (e *EMA) Columns() []string { return []string{"EMA"} }

func (e *EMA) Update(bar model.PriceBar) {
	e.e.next(bar.Close)
}

func (e *EMA) Values() []null.Float {
	if !e.e.seeded {
		return []null.Float{{}}
	}
	return []null.Float{value(e.e.current)}
}

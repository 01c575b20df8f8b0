package indicator

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// ATR is the trailing arithmetic mean of true range. The first bar has no
// previous close, so its true range is high-low alone; the first period
// bars have no value.
type ATR struct {
	period    int
	count     int
	prevClose float64
	tr        *window
}

// NewATR creates an ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period, tr: newWindow(period)}
}

func (a *ATR) Name() string      { return "ATR" }
func (a *ATR) Params() string    { return itoa(a.period) }
func (a *ATR) Columns() []string { return []string{"ATR"} }

func (a *ATR) Update(bar model.PriceBar) {
	tr := bar.High - bar.Low
	if a.count > 0 {
		tr = math.Max(tr, math.Max(math.Abs(bar.High-a.prevClose), math.Abs(bar.Low-a.prevClose)))
	}
	a.prevClose = bar.Close
	a.tr.push(tr)
	a.count++
}

func (a *ATR) Values() []null.Float {
	// the window holding the first bar's partial range is not reported
	if a.count <= a.period {
		return []null.Float{{}}
	}
	return []null.Float{value(a.tr.mean())}
}

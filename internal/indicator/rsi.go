package indicator

import (
	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// RSI calculates the Relative Strength Index from trailing arithmetic
// means of gains and losses (not Wilder smoothing). The first period bars
// have no value: one is lost to differencing.
//
// When the average loss is zero the value is 100, unless the average gain
// is zero too, in which case there is no value.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *window
	losses    *window
	current   null.Float
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period, gains: newWindow(period), losses: newWindow(period)}
}

func (r *RSI) Name() string      { return "RSI" }
func (r *RSI) Params() string    { return itoa(r.period) }
func (r *RSI) Columns() []string { return []string{"RSI"} }

func (r *RSI) Update(bar model.PriceBar) {
	price := bar.Close
	r.count++

	if r.count == 1 {
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.push(gain)
	r.losses.push(loss)

	if !r.gains.full() {
		return
	}
	r.current = rsiFrom(r.gains.mean(), r.losses.mean())
}

func rsiFrom(avgGain, avgLoss float64) null.Float {
	if avgLoss == 0 {
		if avgGain == 0 {
			return null.Float{}
		}
		return null.FloatFrom(100)
	}
	rs := avgGain / avgLoss
	return value(100.0 - 100.0/(1.0+rs))
}

func (r *RSI) Values() []null.Float { return []null.Float{r.current} }

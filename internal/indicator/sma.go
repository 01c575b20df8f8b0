package indicator

import (
	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// SMA is the arithmetic mean of close over a trailing window. The first
// period-1 bars have no value.
type SMA struct {
	period int
	w      *window
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, w: newWindow(period)}
}

func (s *SMA) Name() string      { return "SMA" }
func (s *SMA) Params() string    { return itoa(s.period) }
func (s *SMA) Columns() []string { return []string{"SMA"} }

func (s *SMA) Update(bar model.PriceBar) {
	s.w.push(bar.Close)
}

func (s *SMA) Values() []null.Float {
	if !s.w.full() {
		return []null.Float{{}}
	}
	return []null.Float{value(s.w.mean())}
}

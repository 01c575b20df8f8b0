package indicator

import (
	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// BandWidth is the number of standard deviations between the middle and
// outer bands.
const BandWidth = 2.0

// Bollinger computes Bollinger Bands: an SMA middle band with upper and
// lower bands BandWidth sample standard deviations away.
type Bollinger struct {
	period int
	w      *window
}

// NewBollinger creates Bollinger Bands over the given period.
func NewBollinger(period int) *Bollinger {
	return &Bollinger{period: period, w: newWindow(period)}
}

func (b *Bollinger) Name() string   { return "BB" }
func (b *Bollinger) Params() string { return itoa(b.period) }
func (b *Bollinger) Columns() []string {
	return []string{"BB_UBand", "BB_MBand", "BB_LBand"}
}

func (b *Bollinger) Update(bar model.PriceBar) {
	b.w.push(bar.Close)
}

func (b *Bollinger) Values() []null.Float {
	if !b.w.full() {
		return []null.Float{{}, {}, {}}
	}
	mid := b.w.mean()
	std := b.w.sampleStd(mid)
	upper, lower := value(mid+BandWidth*std), value(mid-BandWidth*std)
	if !upper.Valid || !lower.Valid {
		// a one-bar window has no sample deviation
		return []null.Float{{}, {}, {}}
	}
	return []null.Float{upper, value(mid), lower}
}

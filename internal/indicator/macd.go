package indicator

import (
	"github.com/guregu/null/v6"

	"github.com/mhatami/trendpulse/internal/model"
)

// MACD computes the MACD line (EMA(fast) - EMA(slow)), its signal line
// (EMA(signal) of the MACD line) and the histogram (MACD - signal).
//
// All three outputs are suppressed for bar indices 0 through slow+signal-1
// even though the recursive averages have values there.
type MACD struct {
	fast, slow, signal int
	fastEMA, slowEMA   ema
	signalEMA          ema
	count              int
	line, sig          float64
}

// NewMACD creates a MACD indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast: fast, slow: slow, signal: signal,
		fastEMA:   newEMA(fast),
		slowEMA:   newEMA(slow),
		signalEMA: newEMA(signal),
	}
}

func (m *MACD) Name() string   { return "MACD" }
func (m *MACD) Params() string { return itoa(m.fast) + "_" + itoa(m.slow) + "_" + itoa(m.signal) }
func (m *MACD) Columns() []string {
	return []string{"MACD", "MACD_Signal", "MACD_Histogram"}
}

func (m *MACD) Update(bar model.PriceBar) {
	m.line = m.fastEMA.next(bar.Close) - m.slowEMA.next(bar.Close)
	m.sig = m.signalEMA.next(m.line)
	m.count++
}

// warmup is the number of leading bars without output.
func (m *MACD) warmup() int { return m.slow + m.signal }

func (m *MACD) Values() []null.Float {
	// count is the 1-based index of the latest bar
	if m.count <= m.warmup() {
		return []null.Float{{}, {}, {}}
	}
	return []null.Float{value(m.line), value(m.sig), value(m.line - m.sig)}
}

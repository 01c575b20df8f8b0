// Package markethours resolves symbols to exchanges, derives each
// exchange's trading sessions, and turns period keywords into concrete
// UTC windows bounded by real trading days.
package markethours

import (
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/mhatami/trendpulse/internal/model"
)

// Market is an exchange identifier.
type Market string

const (
	NYSE   Market = "NYSE"
	NASDAQ Market = "NASDAQ"
	TSX    Market = "TSX"
	TSXV   Market = "TSXV"
	CSE    Market = "CSE"
)

// Regular session hours, exchange-local.
const (
	OpenHour        = 9
	OpenMinute      = 30
	CloseHour       = 16
	CloseMinute     = 0
	EarlyCloseHour  = 13
	LatestCloseScan = 10 // calendar days searched for the latest close
)

var (
	newYork = mustLoad("America/New_York")
	toronto = mustLoad("America/Toronto")
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("markethours: load %s: %v", name, err))
	}
	return loc
}

// suffix → market, longest suffix first.
var suffixes = func() []struct {
	suffix string
	market Market
} {
	s := []struct {
		suffix string
		market Market
	}{
		{".TO", TSX},
		{".V", TSXV},
		{".CN", CSE},
		{".N", NYSE},
		{".O", NASDAQ},
	}
	sort.SliceStable(s, func(i, j int) bool { return len(s[i].suffix) > len(s[j].suffix) })
	return s
}()

// MarketOf returns the exchange a symbol trades on, judged by its suffix.
// Symbols without a known suffix default to NYSE.
func MarketOf(symbol string) Market {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range suffixes {
		if strings.HasSuffix(sym, s.suffix) {
			return s.market
		}
	}
	return NYSE
}

// Location returns the exchange's time zone.
func (m Market) Location() *time.Location {
	switch m {
	case TSX, TSXV, CSE:
		return toronto
	default:
		return newYork
	}
}

func (m Market) country() country {
	switch m {
	case TSX, TSXV, CSE:
		return canada
	default:
		return unitedStates
	}
}

// Session is one trading day. Date is the exchange-local calendar date
// expressed as midnight UTC; Open and Close are UTC instants.
type Session struct {
	Date  time.Time
	Open  time.Time
	Close time.Time
}

// EarlyClose reports whether the session closes before the regular time.
func (s Session) EarlyClose(m Market) bool {
	c := s.Close.In(m.Location())
	return c.Hour() < CloseHour
}

// Date builds a calendar date (midnight UTC).
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// LocalDate returns the exchange-local calendar date of t.
func (m Market) LocalDate(t time.Time) time.Time {
	l := t.In(m.Location())
	return Date(l.Year(), l.Month(), l.Day())
}

// AlignBar returns the canonical timestamp for a bar starting at t:
// intraday bars keep their UTC instant, coarser bars sit at midnight UTC
// of the exchange-local trading date.
func (m Market) AlignBar(t time.Time, interval model.Interval) time.Time {
	if interval.Intraday() {
		return t.UTC()
	}
	return m.LocalDate(t)
}

// FetchStart is where a provider query for w should begin. Daily and
// coarser requests start at local midnight so the first bar is included
// whatever instant the provider stamps it with.
func (m Market) FetchStart(w model.Window) time.Time {
	if w.Interval.Intraday() {
		return w.Start
	}
	l := w.Start.In(m.Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, m.Location()).UTC()
}

// at returns the UTC instant of hour:minute exchange-local on date.
func (m Market) at(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, m.Location()).UTC()
}

// StatusString returns a human-readable market status at t.
func StatusString(m Market, src ScheduleSource, t time.Time) string {
	today := m.LocalDate(t)
	sessions, err := src.Schedule(m, today, today.AddDate(0, 0, LatestCloseScan))
	if err != nil || len(sessions) == 0 {
		return fmt.Sprintf("%s: schedule unavailable", m)
	}
	first := sessions[0]
	if first.Date.Equal(today) && !t.Before(first.Open) && t.Before(first.Close) {
		return fmt.Sprintf("%s open, closes in %s", m, fmtDur(first.Close.Sub(t)))
	}
	for _, s := range sessions {
		if s.Open.After(t) {
			local := s.Open.In(m.Location())
			return fmt.Sprintf("%s closed, opens %s %s (%s)",
				m, local.Weekday().String()[:3], local.Format("15:04"), fmtDur(s.Open.Sub(t)))
		}
	}
	return fmt.Sprintf("%s closed", m)
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

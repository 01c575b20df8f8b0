package markethours

import (
	"fmt"
	"sort"
	"time"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/model"
)

// periodRule describes how a period keyword maps onto a lookback and an
// interval. lookbackDays is ignored for the ytd, max and 1d keywords.
type periodRule struct {
	lookbackDays int
	interval     model.Interval
	public       bool
}

var periodRules = map[string]periodRule{
	"1d":  {0, model.Interval1m, true},
	"5d":  {7, model.Interval1h, true},
	"1mo": {30, model.Interval1d, true},
	"3mo": {90, model.Interval1d, true},
	"6mo": {182, model.Interval1d, true},
	"1y":  {365, model.Interval1d, true},
	"ytd": {0, model.Interval1d, true},
	"2y":  {730, model.Interval1d, false},
	"5y":  {5 * 365, model.Interval1wk, true},
	"max": {0, model.Interval1mo, true},
}

// MaxEpoch is the start date used for the "max" period.
var MaxEpoch = Date(2000, time.January, 1)

// Periods returns the externally accepted period keywords, sorted.
func Periods() []string {
	out := make([]string, 0, len(periodRules))
	for p, r := range periodRules {
		if r.public {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// IsPublicPeriod reports whether p may be requested by callers. The
// internal "2y" lookback resolves but is not offered externally.
func IsPublicPeriod(p string) bool {
	r, ok := periodRules[p]
	return ok && r.public
}

// IntervalFor returns the interval a period resolves to.
func IntervalFor(period string) (model.Interval, error) {
	r, ok := periodRules[period]
	if !ok {
		return "", apperr.New(apperr.KindUnsupportedPeriod, "unsupported period %q", period)
	}
	return r.interval, nil
}

// Resolver answers calendar questions against a ScheduleSource. It holds
// no per-request state and is safe for concurrent use.
type Resolver struct {
	src ScheduleSource
}

// NewResolver returns a Resolver over src. A nil src uses RuleCalendar.
func NewResolver(src ScheduleSource) *Resolver {
	if src == nil {
		src = RuleCalendar{}
	}
	return &Resolver{src: src}
}

// Source returns the underlying schedule source.
func (r *Resolver) Source() ScheduleSource { return r.src }

// LatestCloseDate returns the most recent trading date, within the last
// LatestCloseScan calendar days, whose session close is at or before now.
func (r *Resolver) LatestCloseDate(m Market, now time.Time) (time.Time, error) {
	today := m.LocalDate(now)
	sessions, err := r.src.Schedule(m, today.AddDate(0, 0, -LatestCloseScan), today)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule %s: %w", m, err)
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if !sessions[i].Close.After(now) {
			return sessions[i].Date, nil
		}
	}
	return time.Time{}, apperr.New(apperr.KindNoRecentTradingDay,
		"no %s session closed in the %d days before %s", m, LatestCloseScan, today.Format(model.DateLayout))
}

// SessionHours returns the UTC open and close of m on date.
func (r *Resolver) SessionHours(m Market, date time.Time) (Session, error) {
	d := Date(date.Year(), date.Month(), date.Day())
	sessions, err := r.src.Schedule(m, d, d)
	if err != nil {
		return Session{}, fmt.Errorf("schedule %s: %w", m, err)
	}
	if len(sessions) == 0 {
		return Session{}, apperr.New(apperr.KindNotATradingDay, "%s is not a %s trading day", d.Format(model.DateLayout), m)
	}
	return sessions[0], nil
}

// ResolvePeriod maps a period keyword onto a UTC window for m as of now.
// The start is snapped forward to the first session on or after the
// approximate lookback date; the end is the latest close.
func (r *Resolver) ResolvePeriod(m Market, period string, now time.Time) (model.Window, error) {
	rule, ok := periodRules[period]
	if !ok {
		return model.Window{}, apperr.New(apperr.KindUnsupportedPeriod, "unsupported period %q", period)
	}

	latest, err := r.LatestCloseDate(m, now)
	if err != nil {
		return model.Window{}, err
	}
	last, err := r.SessionHours(m, latest)
	if err != nil {
		return model.Window{}, err
	}

	if period == "1d" {
		return model.Window{Period: period, Interval: rule.interval, Start: last.Open, End: last.Close}, nil
	}

	var approx time.Time
	switch period {
	case "ytd":
		approx = Date(latest.Year(), time.January, 1)
	case "max":
		approx = MaxEpoch
	default:
		approx = latest.AddDate(0, 0, -rule.lookbackDays)
	}

	sessions, err := r.src.Schedule(m, approx, latest)
	if err != nil {
		return model.Window{}, fmt.Errorf("schedule %s: %w", m, err)
	}
	if len(sessions) == 0 {
		return model.Window{}, apperr.New(apperr.KindEmptySchedule,
			"no %s sessions between %s and %s", m, approx.Format(model.DateLayout), latest.Format(model.DateLayout))
	}
	return model.Window{
		Period:   period,
		Interval: rule.interval,
		Start:    sessions[0].Open,
		End:      last.Close,
	}, nil
}

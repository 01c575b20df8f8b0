package markethours

import (
	"errors"
	"testing"
	"time"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/model"
)

func TestMarketOf(t *testing.T) {
	cases := map[string]Market{
		"TD.TO":   TSX,
		"shop.to": TSX,
		"XYZ.V":   TSXV,
		"ABC.CN":  CSE,
		"IBM.N":   NYSE,
		"MSFT.O":  NASDAQ,
		"AAPL":    NYSE,
		"BRK.B":   NYSE,
		" ry.to ": TSX,
	}
	for sym, want := range cases {
		if got := MarketOf(sym); got != want {
			t.Errorf("MarketOf(%q) = %s, want %s", sym, got, want)
		}
	}
}

func TestMarketLocation(t *testing.T) {
	if NYSE.Location().String() != "America/New_York" {
		t.Errorf("NYSE location = %s", NYSE.Location())
	}
	if CSE.Location().String() != "America/Toronto" {
		t.Errorf("CSE location = %s", CSE.Location())
	}
}

func TestEaster(t *testing.T) {
	cases := []struct {
		year int
		want time.Time
	}{
		{2000, Date(2000, time.April, 23)},
		{2019, Date(2019, time.April, 21)},
		{2024, Date(2024, time.March, 31)},
		{2025, Date(2025, time.April, 20)},
	}
	for _, tc := range cases {
		if got := easter(tc.year); !got.Equal(tc.want) {
			t.Errorf("easter(%d) = %s, want %s", tc.year, got.Format(model.DateLayout), tc.want.Format(model.DateLayout))
		}
	}
}

func TestUSHolidays2024(t *testing.T) {
	closed := []time.Time{
		Date(2024, time.January, 1),
		Date(2024, time.January, 15),
		Date(2024, time.February, 19),
		Date(2024, time.March, 29),
		Date(2024, time.May, 27),
		Date(2024, time.June, 19),
		Date(2024, time.July, 4),
		Date(2024, time.September, 2),
		Date(2024, time.November, 28),
		Date(2024, time.December, 25),
	}
	for _, d := range closed {
		if !IsHoliday(NYSE, d) {
			t.Errorf("%s should be an NYSE holiday", d.Format(model.DateLayout))
		}
	}
	if IsHoliday(NYSE, Date(2024, time.July, 5)) {
		t.Error("2024-07-05 should be open")
	}
}

func TestUSObservance(t *testing.T) {
	// July 4 2021 was a Sunday.
	if !IsHoliday(NASDAQ, Date(2021, time.July, 5)) {
		t.Error("2021-07-05 should be observed Independence Day")
	}
	// Christmas 2021 was a Saturday.
	if !IsHoliday(NYSE, Date(2021, time.December, 24)) {
		t.Error("2021-12-24 should be observed Christmas")
	}
	// New Year's Day 2022 was a Saturday and is not observed.
	if IsHoliday(NYSE, Date(2021, time.December, 31)) {
		t.Error("2021-12-31 should be a trading day")
	}
	// Juneteenth starts in 2022.
	if IsHoliday(NYSE, Date(2021, time.June, 18)) {
		t.Error("Juneteenth should not apply before 2022")
	}
}

func TestCanadianHolidays(t *testing.T) {
	closed := []time.Time{
		Date(2024, time.February, 19), // Family Day
		Date(2024, time.May, 20),      // Victoria Day
		Date(2024, time.August, 5),    // Civic Holiday
		Date(2024, time.October, 14),  // Thanksgiving
		Date(2024, time.December, 26), // Boxing Day
		Date(2022, time.December, 26), // Christmas on Sunday
		Date(2022, time.December, 27), // Boxing Day pushed past Christmas
		Date(2017, time.July, 3),      // Canada Day on Saturday
	}
	for _, d := range closed {
		if !IsHoliday(TSX, d) {
			t.Errorf("%s should be a TSX holiday", d.Format(model.DateLayout))
		}
	}
	if IsHoliday(TSX, Date(2024, time.June, 19)) {
		t.Error("Juneteenth is not a TSX holiday")
	}
}

func TestRuleCalendar_EarlyClose(t *testing.T) {
	sessions, err := RuleCalendar{}.Schedule(NYSE, Date(2024, time.July, 1), Date(2024, time.July, 5))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(sessions) != 4 {
		t.Fatalf("expected 4 sessions (July 4 closed), got %d", len(sessions))
	}
	july3 := sessions[2]
	if !july3.Date.Equal(Date(2024, time.July, 3)) {
		t.Fatalf("unexpected third session %s", july3.Date)
	}
	if want := time.Date(2024, time.July, 3, 17, 0, 0, 0, time.UTC); !july3.Close.Equal(want) {
		t.Errorf("July 3 close = %s, want %s", july3.Close, want)
	}
	if !july3.EarlyClose(NYSE) {
		t.Error("July 3 should be an early close")
	}
}

func TestLatestCloseDate(t *testing.T) {
	r := NewResolver(nil)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before close skips today and the holiday", time.Date(2024, 7, 5, 19, 0, 0, 0, time.UTC), Date(2024, time.July, 3)},
		{"at close counts today", time.Date(2024, 7, 5, 20, 0, 0, 0, time.UTC), Date(2024, time.July, 5)},
		{"monday morning returns friday", time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC), Date(2024, time.March, 1)},
	}
	for _, tc := range cases {
		got, err := r.LatestCloseDate(NYSE, tc.now)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s: got %s, want %s", tc.name, got.Format(model.DateLayout), tc.want.Format(model.DateLayout))
		}
	}
}

type emptySource struct{}

func (emptySource) Schedule(Market, time.Time, time.Time) ([]Session, error) { return nil, nil }

func TestLatestCloseDate_NoRecentTradingDay(t *testing.T) {
	r := NewResolver(emptySource{})
	_, err := r.LatestCloseDate(NYSE, time.Now())
	if !errors.Is(err, apperr.ErrNoRecentTradingDay) {
		t.Fatalf("expected NoRecentTradingDay, got %v", err)
	}
}

func TestSessionHours_NotATradingDay(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.SessionHours(NYSE, Date(2024, time.March, 2))
	if !errors.Is(err, apperr.ErrNotATradingDay) {
		t.Fatalf("expected NotATradingDay for a Saturday, got %v", err)
	}
	s, err := r.SessionHours(NYSE, Date(2024, time.March, 6))
	if err != nil {
		t.Fatalf("SessionHours: %v", err)
	}
	if want := time.Date(2024, 3, 6, 14, 30, 0, 0, time.UTC); !s.Open.Equal(want) {
		t.Errorf("open = %s, want %s", s.Open, want)
	}
}

func TestResolvePeriod(t *testing.T) {
	r := NewResolver(nil)
	now := time.Date(2024, 3, 6, 21, 0, 0, 0, time.UTC) // Wed, at NYSE close
	end := time.Date(2024, 3, 6, 21, 0, 0, 0, time.UTC)

	cases := []struct {
		period   string
		start    time.Time
		interval model.Interval
	}{
		{"1d", time.Date(2024, 3, 6, 14, 30, 0, 0, time.UTC), model.Interval1m},
		{"5d", time.Date(2024, 2, 28, 14, 30, 0, 0, time.UTC), model.Interval1h},
		{"1mo", time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC), model.Interval1d},
		{"1y", time.Date(2023, 3, 7, 14, 30, 0, 0, time.UTC), model.Interval1d},
		{"ytd", time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), model.Interval1d},
		{"max", time.Date(2000, 1, 3, 14, 30, 0, 0, time.UTC), model.Interval1mo},
	}
	for _, tc := range cases {
		w, err := r.ResolvePeriod(NYSE, tc.period, now)
		if err != nil {
			t.Fatalf("%s: %v", tc.period, err)
		}
		if !w.Start.Equal(tc.start) {
			t.Errorf("%s: start = %s, want %s", tc.period, w.Start, tc.start)
		}
		if !w.End.Equal(end) {
			t.Errorf("%s: end = %s, want %s", tc.period, w.End, end)
		}
		if w.Interval != tc.interval {
			t.Errorf("%s: interval = %s, want %s", tc.period, w.Interval, tc.interval)
		}
	}

	w, err := r.ResolvePeriod(NYSE, "5y", now)
	if err != nil || w.Interval != model.Interval1wk {
		t.Errorf("5y: interval=%s err=%v", w.Interval, err)
	}
}

func TestResolvePeriod_TSXSkipsVictoriaDay(t *testing.T) {
	r := NewResolver(nil)
	now := time.Date(2024, 5, 21, 21, 0, 0, 0, time.UTC) // Tue 17:00 Toronto
	w, err := r.ResolvePeriod(MarketOf("TD.TO"), "5d", now)
	if err != nil {
		t.Fatalf("ResolvePeriod: %v", err)
	}
	if want := time.Date(2024, 5, 14, 13, 30, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("start = %s, want %s", w.Start, want)
	}
	if want := time.Date(2024, 5, 21, 20, 0, 0, 0, time.UTC); !w.End.Equal(want) {
		t.Errorf("end = %s, want %s", w.End, want)
	}
}

func TestResolvePeriod_IdempotentWithinTradingDay(t *testing.T) {
	r := NewResolver(nil)
	a, err := r.ResolvePeriod(NASDAQ, "3mo", time.Date(2024, 3, 6, 22, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.ResolvePeriod(NASDAQ, "3mo", time.Date(2024, 3, 7, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("windows differ: %+v vs %+v", a, b)
	}
}

func TestResolvePeriod_Unsupported(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.ResolvePeriod(NYSE, "10y", time.Now())
	if !errors.Is(err, apperr.ErrUnsupportedPeriod) {
		t.Fatalf("expected UnsupportedPeriod, got %v", err)
	}
}

// closeOnlySource reports sessions only for the latest-close scan and
// single-day lookups, leaving every other range empty.
type closeOnlySource struct{ RuleCalendar }

func (s closeOnlySource) Schedule(m Market, from, to time.Time) ([]Session, error) {
	days := int(to.Sub(from).Hours() / 24)
	if days != LatestCloseScan && days != 0 {
		return nil, nil
	}
	return s.RuleCalendar.Schedule(m, from, to)
}

func TestResolvePeriod_EmptySchedule(t *testing.T) {
	r := NewResolver(closeOnlySource{})
	_, err := r.ResolvePeriod(NYSE, "5d", time.Date(2024, 3, 6, 21, 0, 0, 0, time.UTC))
	if !errors.Is(err, apperr.ErrEmptySchedule) {
		t.Fatalf("expected EmptySchedule, got %v", err)
	}
}

func TestPeriods(t *testing.T) {
	for _, p := range Periods() {
		if p == "2y" {
			t.Fatal("2y must stay internal")
		}
	}
	if !IsPublicPeriod("ytd") || IsPublicPeriod("2y") {
		t.Error("IsPublicPeriod mismatch")
	}
	if iv, err := IntervalFor("2y"); err != nil || iv != model.Interval1d {
		t.Errorf("IntervalFor(2y) = %s, %v", iv, err)
	}
}

func TestStatusString(t *testing.T) {
	got := StatusString(NYSE, RuleCalendar{}, time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC))
	if got != "NYSE open, closes in 6h0m" {
		t.Errorf("got %q", got)
	}
	got = StatusString(NYSE, RuleCalendar{}, time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC))
	if got != "NYSE closed, opens Mon 09:30 (46h30m)" {
		t.Errorf("got %q", got)
	}
}

func TestAlignBar(t *testing.T) {
	open := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if got := NYSE.AlignBar(open, model.Interval1d); !got.Equal(Date(2024, 3, 5)) {
		t.Errorf("daily: got %v", got)
	}
	// 21:00 Toronto on Mar 5 is 02:00Z Mar 6; the local date wins
	late := time.Date(2024, 3, 6, 2, 0, 0, 0, time.UTC)
	if got := TSX.AlignBar(late, model.Interval1wk); !got.Equal(Date(2024, 3, 5)) {
		t.Errorf("weekly: got %v", got)
	}
	if got := NYSE.AlignBar(open.In(newYork), model.Interval1h); !got.Equal(open) || got.Location() != time.UTC {
		t.Errorf("intraday: got %v", got)
	}
}

func TestFetchStart(t *testing.T) {
	w := model.Window{Interval: model.Interval1d, Start: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)}
	if got := NYSE.FetchStart(w); !got.Equal(time.Date(2024, 3, 5, 5, 0, 0, 0, time.UTC)) {
		t.Errorf("daily: got %v", got)
	}
	w.Interval = model.Interval1h
	if got := NYSE.FetchStart(w); !got.Equal(w.Start) {
		t.Errorf("intraday: got %v", got)
	}
}

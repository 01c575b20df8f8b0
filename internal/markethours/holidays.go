package markethours

import (
	"sync"
	"time"
)

type country int

const (
	unitedStates country = iota
	canada
)

// yearRules is the full-closure and early-close set for one country-year.
type yearRules struct {
	holidays    map[time.Time]string
	earlyCloses map[time.Time]bool
}

var (
	rulesMu    sync.Mutex
	rulesCache = make(map[[2]int]*yearRules)
)

func rulesFor(c country, year int) *yearRules {
	key := [2]int{int(c), year}
	rulesMu.Lock()
	defer rulesMu.Unlock()
	if r, ok := rulesCache[key]; ok {
		return r
	}
	var r *yearRules
	if c == canada {
		r = canadianRules(year)
	} else {
		r = usRules(year)
	}
	rulesCache[key] = r
	return r
}

// IsHoliday reports whether date is a full market closure for m.
func IsHoliday(m Market, date time.Time) bool {
	_, ok := HolidayName(m, date)
	return ok
}

// HolidayName returns the name of the closure on date, if any.
func HolidayName(m Market, date time.Time) (string, bool) {
	d := Date(date.Year(), date.Month(), date.Day())
	name, ok := rulesFor(m.country(), d.Year()).holidays[d]
	return name, ok
}

func isEarlyClose(m Market, date time.Time) bool {
	return rulesFor(m.country(), date.Year()).earlyCloses[date]
}

// usRules follows the NYSE holiday calendar: Saturday holidays move to
// Friday, Sunday holidays to Monday, and a Saturday New Year's Day is not
// observed.
func usRules(year int) *yearRules {
	r := &yearRules{holidays: map[time.Time]string{}, earlyCloses: map[time.Time]bool{}}
	add := func(d time.Time, name string) { r.holidays[d] = name }

	if ny := Date(year, time.January, 1); ny.Weekday() != time.Saturday {
		add(observedUS(ny), "New Year's Day")
	}
	// Jan 1 of next year falling on Saturday is never moved back into December.
	add(nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3), "Washington's Birthday")
	add(goodFriday(year), "Good Friday")
	add(lastWeekday(year, time.May, time.Monday), "Memorial Day")
	if year >= 2022 {
		add(observedUS(Date(year, time.June, 19)), "Juneteenth")
	}
	july4 := Date(year, time.July, 4)
	add(observedUS(july4), "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labor Day")
	thanksgiving := nthWeekday(year, time.November, time.Thursday, 4)
	add(thanksgiving, "Thanksgiving Day")
	add(observedUS(Date(year, time.December, 25)), "Christmas Day")

	if wd := july4.Weekday(); wd >= time.Tuesday && wd <= time.Friday {
		r.earlyCloses[Date(year, time.July, 3)] = true
	}
	r.earlyCloses[thanksgiving.AddDate(0, 0, 1)] = true
	if eve := Date(year, time.December, 24); isWeekday(eve) {
		if _, closed := r.holidays[eve]; !closed {
			r.earlyCloses[eve] = true
		}
	}
	return r
}

// canadianRules follows the TSX calendar: weekend holidays move to the
// next free weekday.
func canadianRules(year int) *yearRules {
	r := &yearRules{holidays: map[time.Time]string{}, earlyCloses: map[time.Time]bool{}}
	add := func(d time.Time, name string) {
		for !isWeekday(d) || r.holidays[d] != "" {
			d = d.AddDate(0, 0, 1)
		}
		r.holidays[d] = name
	}

	add(Date(year, time.January, 1), "New Year's Day")
	if year >= 2008 {
		add(nthWeekday(year, time.February, time.Monday, 3), "Family Day")
	}
	add(goodFriday(year), "Good Friday")
	add(victoriaDay(year), "Victoria Day")
	add(Date(year, time.July, 1), "Canada Day")
	add(nthWeekday(year, time.August, time.Monday, 1), "Civic Holiday")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labour Day")
	add(nthWeekday(year, time.October, time.Monday, 2), "Thanksgiving Day")
	add(Date(year, time.December, 25), "Christmas Day")
	add(Date(year, time.December, 26), "Boxing Day")

	if eve := Date(year, time.December, 24); isWeekday(eve) && r.holidays[eve] == "" {
		r.earlyCloses[eve] = true
	}
	return r
}

func observedUS(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func isWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// nthWeekday returns the n-th wd of month (n starts at 1).
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := Date(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := Date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// victoriaDay is the last Monday on or before May 24.
func victoriaDay(year int) time.Time {
	d := Date(year, time.May, 24)
	offset := (int(d.Weekday()) - int(time.Monday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easter uses the anonymous Gregorian algorithm.
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return Date(year, time.Month(month), day)
}

func goodFriday(year int) time.Time {
	return easter(year).AddDate(0, 0, -2)
}

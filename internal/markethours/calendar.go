package markethours

import (
	"fmt"
	"time"
)

// ScheduleSource lists the trading sessions of a market between two
// calendar dates, inclusive, in date order.
type ScheduleSource interface {
	Schedule(m Market, from, to time.Time) ([]Session, error)
}

// RuleCalendar derives sessions from weekday and holiday rules.
type RuleCalendar struct{}

// maxScheduleDays bounds a single Schedule call (max period from 2000 plus slack).
const maxScheduleDays = 366 * 60

// Schedule implements ScheduleSource.
func (RuleCalendar) Schedule(m Market, from, to time.Time) ([]Session, error) {
	from = Date(from.Year(), from.Month(), from.Day())
	to = Date(to.Year(), to.Month(), to.Day())
	if to.Before(from) {
		return nil, nil
	}
	if days := int(to.Sub(from).Hours() / 24); days > maxScheduleDays {
		return nil, fmt.Errorf("schedule range too large: %d days", days)
	}

	var sessions []Session
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !isWeekday(d) || IsHoliday(m, d) {
			continue
		}
		closeHour, closeMinute := CloseHour, CloseMinute
		if isEarlyClose(m, d) {
			closeHour, closeMinute = EarlyCloseHour, 0
		}
		sessions = append(sessions, Session{
			Date:  d,
			Open:  m.at(d, OpenHour, OpenMinute),
			Close: m.at(d, closeHour, closeMinute),
		})
	}
	return sessions, nil
}

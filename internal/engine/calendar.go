// Package engine implements the loan calculation core: due date
// generation, amortization schedules and overdue penalty (mora)
// computation. Everything in this package is a pure function of its
// inputs; persistence, clocks and business configuration live in the
// calling services.
package engine

import "time"

// dateKey is the format used to match explicit non-working dates.
const dateKey = "2006-01-02"

// WorkdayCalendar answers whether a given date is a working day.
// FrequencyEngine uses it to roll due dates forward, PenaltyEngine to
// walk grace periods and count billable overdue days.
type WorkdayCalendar interface {
	IsWorkingDay(date time.Time) bool
}

// BusinessCalendar is the calendar snapshot taken from the business
// settings: the weekdays the business operates plus explicit holidays.
type BusinessCalendar struct {
	// WorkingWeekdays lists the weekdays the business collects on.
	// An empty list means every weekday qualifies.
	WorkingWeekdays []time.Weekday
	// NonWorkingDates holds explicit holidays keyed by YYYY-MM-DD.
	NonWorkingDates map[string]struct{}
}

// NewBusinessCalendar builds a calendar from working weekdays and
// holiday dates.
func NewBusinessCalendar(weekdays []time.Weekday, holidays []time.Time) *BusinessCalendar {
	cal := &BusinessCalendar{
		WorkingWeekdays: weekdays,
		NonWorkingDates: make(map[string]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		cal.NonWorkingDates[h.Format(dateKey)] = struct{}{}
	}
	return cal
}

// IsWorkingDay reports whether the date falls on a configured working
// weekday and is not listed as a holiday. A nil calendar treats every
// day as a working day.
func (c *BusinessCalendar) IsWorkingDay(date time.Time) bool {
	if c == nil {
		return true
	}
	if len(c.WorkingWeekdays) > 0 {
		active := false
		for _, wd := range c.WorkingWeekdays {
			if wd == date.Weekday() {
				active = true
				break
			}
		}
		if !active {
			return false
		}
	}
	if _, holiday := c.NonWorkingDates[date.Format(dateKey)]; holiday {
		return false
	}
	return true
}

// isWorking treats an absent calendar as "every day works".
func isWorking(cal WorkdayCalendar, date time.Time) bool {
	if cal == nil {
		return true
	}
	return cal.IsWorkingDay(date)
}

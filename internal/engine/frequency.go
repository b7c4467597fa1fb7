package engine

import (
	"fmt"
	"time"
)

// FrequencyType identifies how often installments come due.
type FrequencyType string

// Supported payment frequencies.
const (
	FrequencyDaily    FrequencyType = "daily"
	FrequencyWeekly   FrequencyType = "weekly"
	FrequencyBiweekly FrequencyType = "biweekly"
	FrequencyMonthly  FrequencyType = "monthly"
)

// BiweeklyMode selects how twice-monthly due dates are placed.
type BiweeklyMode string

const (
	// BiweeklyEach15 bills every 15 calendar days.
	BiweeklyEach15 BiweeklyMode = "each15"
	// Biweekly1And16 bills on the 1st and the 16th of each month.
	Biweekly1And16 BiweeklyMode = "1_16"
	// Biweekly15AndEnd bills on the 15th and the last day of each month.
	Biweekly15AndEnd BiweeklyMode = "15_30"
)

// MonthlyMode selects how monthly due dates are placed.
type MonthlyMode string

const (
	// MonthlySameDay keeps the anniversary day, clamped to month length.
	MonthlySameDay MonthlyMode = "same_day"
	// MonthlyEndOfMonth bills on the last day of the following month.
	MonthlyEndOfMonth MonthlyMode = "end_of_month"
	// MonthlyEvery30 bills every 30 calendar days.
	MonthlyEvery30 MonthlyMode = "every30"
)

// FrequencyConfig is a closed set of per-frequency configurations. Each
// frequency type has its own shape so a daily interval can never leak
// into a weekly schedule.
type FrequencyConfig interface {
	FrequencyType() FrequencyType
}

// DailyConfig bills every Interval calendar days (default 1).
type DailyConfig struct {
	Interval int
}

func (DailyConfig) FrequencyType() FrequencyType { return FrequencyDaily }

// WeeklyConfig bills either on a fixed weekday or every Interval weeks
// (default 1) when Weekday is nil.
type WeeklyConfig struct {
	Weekday  *time.Weekday
	Interval int
}

func (WeeklyConfig) FrequencyType() FrequencyType { return FrequencyWeekly }

// BiweeklyConfig bills twice a month according to Mode.
type BiweeklyConfig struct {
	Mode BiweeklyMode
}

func (BiweeklyConfig) FrequencyType() FrequencyType { return FrequencyBiweekly }

// MonthlyConfig bills once a month according to Mode.
type MonthlyConfig struct {
	Mode MonthlyMode
}

func (MonthlyConfig) FrequencyType() FrequencyType { return FrequencyMonthly }

// GenerateDueDates produces an ordered sequence of count due dates. The
// first date is startDate verbatim; every later date is derived from
// the previous one via NextDueDate and, when a calendar is supplied,
// rolled forward one day at a time until it lands on a working day.
func GenerateDueDates(startDate time.Time, config FrequencyConfig, count int, cal WorkdayCalendar) ([]time.Time, error) {
	if config == nil {
		return nil, &UnsupportedFrequencyError{}
	}
	dates := make([]time.Time, 0, count)
	current := startDate
	for i := 0; i < count; i++ {
		if i == 0 {
			dates = append(dates, startDate)
			continue
		}
		next, err := NextDueDate(current, config)
		if err != nil {
			return nil, err
		}
		for !isWorking(cal, next) {
			next = next.AddDate(0, 0, 1)
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// NextDueDate computes the due date that follows date under the given
// frequency configuration, without any working-day adjustment.
func NextDueDate(date time.Time, config FrequencyConfig) (time.Time, error) {
	switch c := config.(type) {
	case DailyConfig:
		interval := c.Interval
		if interval <= 0 {
			interval = 1
		}
		return date.AddDate(0, 0, interval), nil

	case WeeklyConfig:
		if c.Weekday != nil {
			// Same weekday rolls to next week, never the same day.
			offset := int(*c.Weekday) - int(date.Weekday())
			if offset <= 0 {
				offset += 7
			}
			return date.AddDate(0, 0, offset), nil
		}
		interval := c.Interval
		if interval <= 0 {
			interval = 1
		}
		return date.AddDate(0, 0, 7*interval), nil

	case BiweeklyConfig:
		return nextBiweekly(date, c.Mode)

	case MonthlyConfig:
		return nextMonthly(date, c.Mode)
	}
	return time.Time{}, &UnsupportedFrequencyError{Frequency: fmt.Sprintf("%v", config)}
}

func nextBiweekly(date time.Time, mode BiweeklyMode) (time.Time, error) {
	switch mode {
	case BiweeklyEach15:
		return date.AddDate(0, 0, 15), nil

	case Biweekly1And16:
		if date.Day() < 16 {
			return withDay(date, 0, 16), nil
		}
		return withDay(date, 1, 1), nil

	case Biweekly15AndEnd:
		last := lastDayOfMonth(date)
		switch {
		case date.Day() < 15:
			return withDay(date, 0, 15), nil
		case date.Day() < last:
			return withDay(date, 0, last), nil
		default:
			return withDay(date, 1, 15), nil
		}
	}
	return time.Time{}, &UnsupportedFrequencyError{Frequency: string(FrequencyBiweekly) + "/" + string(mode)}
}

func nextMonthly(date time.Time, mode MonthlyMode) (time.Time, error) {
	switch mode {
	case MonthlySameDay:
		// Jan 31 becomes Feb 28 (or 29), not Mar 2/3.
		next := withDay(date, 1, 1)
		day := date.Day()
		if max := lastDayOfMonth(next); day > max {
			day = max
		}
		return withDay(next, 0, day), nil

	case MonthlyEndOfMonth:
		next := withDay(date, 1, 1)
		return withDay(next, 0, lastDayOfMonth(next)), nil

	case MonthlyEvery30:
		return date.AddDate(0, 0, 30), nil
	}
	return time.Time{}, &UnsupportedFrequencyError{Frequency: string(FrequencyMonthly) + "/" + string(mode)}
}

// withDay returns the date moved monthOffset months forward with its
// day-of-month replaced, preserving the clock and location.
func withDay(date time.Time, monthOffset, day int) time.Time {
	return time.Date(date.Year(), date.Month()+time.Month(monthOffset), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func lastDayOfMonth(date time.Time) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
}

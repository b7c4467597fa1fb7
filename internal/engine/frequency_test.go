package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateDueDates_CountAndVerbatimStart(t *testing.T) {
	start := date(2026, time.January, 3) // Saturday on purpose
	cal := NewBusinessCalendar(mondayToFriday(), nil)

	configs := []FrequencyConfig{
		DailyConfig{Interval: 1},
		WeeklyConfig{Interval: 1},
		WeeklyConfig{Weekday: weekdayPtr(time.Wednesday)},
		BiweeklyConfig{Mode: BiweeklyEach15},
		BiweeklyConfig{Mode: Biweekly1And16},
		BiweeklyConfig{Mode: Biweekly15AndEnd},
		MonthlyConfig{Mode: MonthlySameDay},
		MonthlyConfig{Mode: MonthlyEndOfMonth},
		MonthlyConfig{Mode: MonthlyEvery30},
	}

	for _, cfg := range configs {
		dates, err := GenerateDueDates(start, cfg, 6, cal)
		assert.NoError(t, err)
		assert.Len(t, dates, 6)
		// Index 0 is never adjusted, even on a non-working day.
		assert.Equal(t, start, dates[0])
		for i := 1; i < len(dates); i++ {
			assert.False(t, dates[i].Before(dates[i-1]), "due dates must be non-decreasing")
			assert.True(t, cal.IsWorkingDay(dates[i]))
		}
	}
}

func TestGenerateDueDates_NilConfigFails(t *testing.T) {
	_, err := GenerateDueDates(date(2026, time.January, 1), nil, 3, nil)

	var freqErr *UnsupportedFrequencyError
	assert.True(t, errors.As(err, &freqErr))
}

func TestNextDueDate_DailyInterval(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 1), DailyConfig{Interval: 3})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 4), next)

	// Zero interval defaults to 1.
	next, err = NextDueDate(date(2026, time.January, 1), DailyConfig{})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 2), next)
}

func TestNextDueDate_WeeklyFixedDayNeverSameDay(t *testing.T) {
	// 2026-01-07 is a Wednesday; next Wednesday is the 14th.
	next, err := NextDueDate(date(2026, time.January, 7), WeeklyConfig{Weekday: weekdayPtr(time.Wednesday)})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 14), next)

	// From a Monday, the following Wednesday is two days out.
	next, err = NextDueDate(date(2026, time.January, 5), WeeklyConfig{Weekday: weekdayPtr(time.Wednesday)})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 7), next)
}

func TestNextDueDate_WeeklyInterval(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 5), WeeklyConfig{Interval: 2})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 19), next)
}

func TestNextDueDate_BiweeklyEach15(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 20), BiweeklyConfig{Mode: BiweeklyEach15})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 4), next)
}

func TestNextDueDate_Biweekly1And16(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 5), BiweeklyConfig{Mode: Biweekly1And16})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 16), next)

	next, err = NextDueDate(date(2026, time.January, 16), BiweeklyConfig{Mode: Biweekly1And16})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 1), next)

	next, err = NextDueDate(date(2026, time.December, 20), BiweeklyConfig{Mode: Biweekly1And16})
	assert.NoError(t, err)
	assert.Equal(t, date(2027, time.January, 1), next)
}

func TestNextDueDate_Biweekly15AndEnd(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 10), BiweeklyConfig{Mode: Biweekly15AndEnd})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 15), next)

	next, err = NextDueDate(date(2026, time.January, 15), BiweeklyConfig{Mode: Biweekly15AndEnd})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 31), next)

	// Already on the last day rolls to the 15th of the next month.
	next, err = NextDueDate(date(2026, time.January, 31), BiweeklyConfig{Mode: Biweekly15AndEnd})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 15), next)

	// February's short month: the 20th is before the last day.
	next, err = NextDueDate(date(2026, time.February, 20), BiweeklyConfig{Mode: Biweekly15AndEnd})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 28), next)
}

func TestNextDueDate_MonthlySameDayClampsMonthEnd(t *testing.T) {
	// Non-leap year: Jan 31 -> Feb 28.
	next, err := NextDueDate(date(2025, time.January, 31), MonthlyConfig{Mode: MonthlySameDay})
	assert.NoError(t, err)
	assert.Equal(t, date(2025, time.February, 28), next)

	// Leap year: Jan 31 -> Feb 29.
	next, err = NextDueDate(date(2024, time.January, 31), MonthlyConfig{Mode: MonthlySameDay})
	assert.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), next)

	// Regular anniversary day is kept.
	next, err = NextDueDate(date(2026, time.March, 10), MonthlyConfig{Mode: MonthlySameDay})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.April, 10), next)
}

func TestNextDueDate_MonthlyEndOfMonth(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 12), MonthlyConfig{Mode: MonthlyEndOfMonth})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 28), next)

	next, err = NextDueDate(date(2026, time.December, 5), MonthlyConfig{Mode: MonthlyEndOfMonth})
	assert.NoError(t, err)
	assert.Equal(t, date(2027, time.January, 31), next)
}

func TestNextDueDate_MonthlyEvery30(t *testing.T) {
	next, err := NextDueDate(date(2026, time.January, 1), MonthlyConfig{Mode: MonthlyEvery30})
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 31), next)
}

func TestNextDueDate_UnknownModeFails(t *testing.T) {
	_, err := NextDueDate(date(2026, time.January, 1), BiweeklyConfig{Mode: "each_fortnight"})
	var freqErr *UnsupportedFrequencyError
	assert.True(t, errors.As(err, &freqErr))

	_, err = NextDueDate(date(2026, time.January, 1), MonthlyConfig{Mode: "lunar"})
	assert.True(t, errors.As(err, &freqErr))
}

func TestGenerateDueDates_RollsToNextWorkingDay(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)

	// Daily from Friday 2026-01-02: the 3rd is a Saturday, so the next
	// due date rolls to Monday the 5th and the sequence continues from
	// the adjusted date.
	dates, err := GenerateDueDates(date(2026, time.January, 2), DailyConfig{Interval: 1}, 3, cal)
	assert.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2026, time.January, 2),
		date(2026, time.January, 5),
		date(2026, time.January, 6),
	}, dates)
}

func TestGenerateDueDates_RollsPastHoliday(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), []time.Time{date(2026, time.January, 6)})

	dates, err := GenerateDueDates(date(2026, time.January, 5), DailyConfig{Interval: 1}, 2, cal)
	assert.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 7), dates[1])
}

func TestGenerateDueDates_NoCalendarKeepsRawDates(t *testing.T) {
	dates, err := GenerateDueDates(date(2026, time.January, 2), DailyConfig{Interval: 1}, 3, nil)
	assert.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2026, time.January, 2),
		date(2026, time.January, 3),
		date(2026, time.January, 4),
	}, dates)
}

func TestGenerateDueDates_Idempotent(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)
	cfg := MonthlyConfig{Mode: MonthlySameDay}

	first, err := GenerateDueDates(date(2026, time.January, 31), cfg, 12, cal)
	assert.NoError(t, err)
	second, err := GenerateDueDates(date(2026, time.January, 31), cfg, 12, cal)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

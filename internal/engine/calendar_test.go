package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekdayPtr(wd time.Weekday) *time.Weekday {
	return &wd
}

func mondayToFriday() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

func TestIsWorkingDay_EmptyWeekdaySetAllowsEveryDay(t *testing.T) {
	cal := NewBusinessCalendar(nil, nil)

	// 2026-01-03 is a Saturday, 2026-01-04 a Sunday.
	assert.True(t, cal.IsWorkingDay(date(2026, time.January, 3)))
	assert.True(t, cal.IsWorkingDay(date(2026, time.January, 4)))
}

func TestIsWorkingDay_WeekdayMembership(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)

	assert.True(t, cal.IsWorkingDay(date(2026, time.January, 5)))   // Monday
	assert.False(t, cal.IsWorkingDay(date(2026, time.January, 3)))  // Saturday
	assert.False(t, cal.IsWorkingDay(date(2026, time.January, 4)))  // Sunday
}

func TestIsWorkingDay_HolidayExcludesWorkingWeekday(t *testing.T) {
	holiday := date(2026, time.January, 6) // Tuesday
	cal := NewBusinessCalendar(mondayToFriday(), []time.Time{holiday})

	assert.False(t, cal.IsWorkingDay(holiday))
	assert.True(t, cal.IsWorkingDay(date(2026, time.January, 7)))
}

func TestIsWorkingDay_NilCalendarAllowsEveryDay(t *testing.T) {
	var cal *BusinessCalendar
	assert.True(t, cal.IsWorkingDay(date(2026, time.January, 4)))
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func overdueInstallment(number int, dueDate time.Time) Installment {
	return Installment{
		Number:        number,
		DueDate:       dueDate,
		Amount:        1085,
		Capital:       833.33,
		Interest:      251.67,
		Status:        InstallmentPending,
		BalanceBefore: 13020,
		BalanceAfter:  11935,
	}
}

func TestCalculatePenalty_NilConfigYieldsZero(t *testing.T) {
	installments := []Installment{overdueInstallment(1, date(2026, time.January, 5))}
	now := date(2026, time.February, 1)

	result := CalculatePenalty(installments, nil, now, nil)
	assert.Equal(t, 0.0, result.Total)
	assert.Empty(t, result.Breakdown)
}

func TestCalculatePenalty_UnknownKindYieldsZero(t *testing.T) {
	installments := []Installment{overdueInstallment(1, date(2026, time.January, 5))}
	config := &PenaltyConfig{Kind: "compound", Value: 100}

	result := CalculatePenalty(installments, config, date(2026, time.February, 1), nil)
	assert.Equal(t, 0.0, result.Total)
}

func TestCalculatePenalty_NothingOverdue(t *testing.T) {
	// Due today is not overdue yet.
	today := date(2026, time.January, 5)
	installments := []Installment{overdueInstallment(1, today)}
	config := &PenaltyConfig{Kind: PenaltyFixed, Value: 100, PeriodMode: PeriodDaily, PerInstallment: true}

	result := CalculatePenalty(installments, config, today, nil)
	assert.Equal(t, 0.0, result.Total)
	assert.Empty(t, result.Breakdown)
}

func TestCalculatePenalty_FixedPerWorkingDay(t *testing.T) {
	// Due four days ago with every day working: the three full days
	// between the due date and today are billable.
	due := date(2026, time.January, 5)
	now := date(2026, time.January, 9)
	installments := []Installment{overdueInstallment(1, due)}
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          100,
		GraceDays:      0,
		PeriodMode:     PeriodDaily,
		PerInstallment: true,
	}

	result := CalculatePenalty(installments, config, now, nil)
	assert.Equal(t, 300.0, result.Total)
	assert.Len(t, result.Breakdown, 1)
	assert.Equal(t, 3, result.Breakdown[0].Periods)
	assert.Equal(t, 3, result.TotalPeriods)
}

func TestCalculatePenalty_PaidInstallmentsIgnored(t *testing.T) {
	paid := overdueInstallment(1, date(2026, time.January, 5))
	paid.Status = InstallmentPaid
	config := &PenaltyConfig{Kind: PenaltyFixed, Value: 100, PeriodMode: PeriodDaily, PerInstallment: true}

	result := CalculatePenalty([]Installment{paid}, config, date(2026, time.February, 1), nil)
	assert.Equal(t, 0.0, result.Total)
}

func TestCalculatePenalty_GracePeriodSuppressesPenalty(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)
	due := date(2026, time.January, 5) // Monday
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          100,
		GraceDays:      3,
		PeriodMode:     PeriodDaily,
		PerInstallment: true,
	}

	// Grace deadline is Thursday the 8th (three working days). On the
	// deadline itself nothing accrues yet.
	result := CalculatePenalty([]Installment{overdueInstallment(1, due)}, config, date(2026, time.January, 8), cal)
	assert.Equal(t, 0.0, result.Total)

	// The Friday after the deadline is the first countable day, so two
	// working days have elapsed by Tuesday the 13th (weekend skipped).
	result = CalculatePenalty([]Installment{overdueInstallment(1, due)}, config, date(2026, time.January, 13), cal)
	assert.Equal(t, 200.0, result.Total)
}

func TestCalculatePenalty_WeekendsNotBillable(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)
	due := date(2026, time.January, 2) // Friday
	now := date(2026, time.January, 7) // Wednesday
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          50,
		PeriodMode:     PeriodDaily,
		PerInstallment: true,
	}

	// Jan 3-4 fall on a weekend; only Monday the 5th and Tuesday the
	// 6th count.
	result := CalculatePenalty([]Installment{overdueInstallment(1, due)}, config, now, cal)
	assert.Equal(t, 100.0, result.Total)
}

func TestCalculatePenalty_PercentOverBases(t *testing.T) {
	due := date(2026, time.January, 5)
	now := date(2026, time.January, 9) // 3 billable days, daily mode
	inst := overdueInstallment(1, due)

	cases := []struct {
		base     PenaltyBase
		expected float64
	}{
		{BaseQuota, inst.Amount * 0.02 * 3},
		{BaseCapital, inst.Capital * 0.02 * 3},
		{BaseInterest, inst.Interest * 0.02 * 3},
		{BaseBalance, inst.BalanceAfter * 0.02 * 3},
		{"", inst.Amount * 0.02 * 3}, // unset defaults to quota
	}

	for _, tc := range cases {
		config := &PenaltyConfig{
			Kind:           PenaltyPercent,
			Value:          2,
			PeriodMode:     PeriodDaily,
			PerInstallment: true,
			Base:           tc.base,
		}
		result := CalculatePenalty([]Installment{inst}, config, now, nil)
		assert.InDelta(t, tc.expected, result.Total, 0.001, "base %q", tc.base)
	}
}

func TestCalculatePenalty_OldestOnlyAggregation(t *testing.T) {
	installments := []Installment{
		overdueInstallment(2, date(2026, time.January, 12)),
		overdueInstallment(1, date(2026, time.January, 5)),
	}
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          100,
		PeriodMode:     PeriodDaily,
		PerInstallment: false,
	}

	result := CalculatePenalty(installments, config, date(2026, time.January, 16), nil)
	assert.Len(t, result.Breakdown, 1)
	assert.Equal(t, 1, result.Breakdown[0].Number)
	// Ten countable days for the oldest installment only.
	assert.Equal(t, 1000.0, result.Total)
}

func TestCalculatePenalty_PerInstallmentAggregation(t *testing.T) {
	installments := []Installment{
		overdueInstallment(1, date(2026, time.January, 5)),
		overdueInstallment(2, date(2026, time.January, 9)),
	}
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          100,
		PeriodMode:     PeriodDaily,
		PerInstallment: true,
	}

	// Jan 13: installment 1 has 7 countable days, installment 2 has 3.
	result := CalculatePenalty(installments, config, date(2026, time.January, 13), nil)
	assert.Len(t, result.Breakdown, 2)
	assert.Equal(t, 1000.0, result.Total)
	assert.Equal(t, 10, result.TotalPeriods)
}

func TestCalculatePenalty_CapClampsAggregate(t *testing.T) {
	installments := []Installment{
		overdueInstallment(1, date(2026, time.January, 5)),
		overdueInstallment(2, date(2026, time.January, 6)),
	}
	config := &PenaltyConfig{
		Kind:           PenaltyFixed,
		Value:          100,
		PeriodMode:     PeriodDaily,
		PerInstallment: true,
		MaxPenalty:     floatPtr(200),
	}

	result := CalculatePenalty(installments, config, date(2026, time.January, 10), nil)
	assert.Equal(t, 200.0, result.Total)
	// The breakdown keeps the unclamped per-installment figures.
	assert.Greater(t, result.Breakdown[0].Amount+result.Breakdown[1].Amount, 200.0)
}

func TestCalculatePenalty_PeriodModesDividePeriods(t *testing.T) {
	due := date(2026, time.January, 1)
	now := date(2026, time.February, 1) // 30 countable days, no calendar
	installments := []Installment{overdueInstallment(1, due)}

	cases := []struct {
		mode    PeriodMode
		periods int
	}{
		{PeriodDaily, 30},
		{PeriodWeekly, 4},
		{PeriodBiweekly, 2},
		{PeriodMonthly, 1},
	}
	for _, tc := range cases {
		config := &PenaltyConfig{Kind: PenaltyFixed, Value: 10, PeriodMode: tc.mode, PerInstallment: true}
		result := CalculatePenalty(installments, config, now, nil)
		assert.Equal(t, tc.periods, result.TotalPeriods, "mode %q", tc.mode)
	}
}

func TestApplyGracePeriod_LandsOnWorkingDay(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), []time.Time{date(2026, time.January, 8)})

	// From Monday the 5th, three working days skip the Thursday holiday
	// and land on Friday the 9th.
	deadline := applyGracePeriod(date(2026, time.January, 5), 3, cal)
	assert.Equal(t, date(2026, time.January, 9), deadline)

	// Zero grace leaves the due date untouched.
	assert.Equal(t, date(2026, time.January, 5), applyGracePeriod(date(2026, time.January, 5), 0, cal))
}

func TestCalculatePenalty_Idempotent(t *testing.T) {
	cal := NewBusinessCalendar(mondayToFriday(), nil)
	installments := []Installment{
		overdueInstallment(1, date(2026, time.January, 5)),
		overdueInstallment(2, date(2026, time.January, 12)),
	}
	config := &PenaltyConfig{
		Kind:           PenaltyPercent,
		Value:          2,
		GraceDays:      2,
		PeriodMode:     PeriodWeekly,
		PerInstallment: true,
		Base:           BaseBalance,
	}
	now := date(2026, time.March, 2)

	first := CalculatePenalty(installments, config, now, cal)
	second := CalculatePenalty(installments, config, now, cal)
	assert.Equal(t, first, second)
}

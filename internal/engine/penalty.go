package engine

import "time"

// PenaltyKind selects how the mora amount is computed.
type PenaltyKind string

const (
	// PenaltyFixed charges a flat amount per billable overdue period.
	PenaltyFixed PenaltyKind = "fixed"
	// PenaltyPercent charges a percentage of a selected base per period.
	PenaltyPercent PenaltyKind = "percent"
)

// PenaltyBase selects which installment figure a percent penalty is
// computed over.
type PenaltyBase string

const (
	BaseQuota    PenaltyBase = "quota"
	BaseCapital  PenaltyBase = "capital"
	BaseInterest PenaltyBase = "interest"
	BaseBalance  PenaltyBase = "balance"
)

// PeriodMode governs how overdue working days convert into billable
// penalty periods.
type PeriodMode string

const (
	PeriodDaily    PeriodMode = "daily"
	PeriodWeekly   PeriodMode = "weekly"
	PeriodBiweekly PeriodMode = "biweekly"
	PeriodMonthly  PeriodMode = "monthly"
)

// PenaltyConfig is attached to a loan by the servicing layer and read,
// never mutated, here.
type PenaltyConfig struct {
	Kind PenaltyKind `json:"kind"`
	// Value is a currency amount for fixed penalties, a percentage for
	// percent penalties.
	Value float64 `json:"value"`
	// GraceDays is the number of working days after the due date during
	// which no penalty accrues.
	GraceDays  int        `json:"grace_days"`
	PeriodMode PeriodMode `json:"period_mode"`
	// PerInstallment applies the penalty to every overdue installment;
	// when false only the oldest overdue installment is penalized.
	PerInstallment bool `json:"per_installment"`
	// Base is consulted only for percent penalties; unset defaults to
	// the installment amount (quota).
	Base PenaltyBase `json:"base"`
	// MaxPenalty caps the aggregate penalty, not each installment.
	MaxPenalty *float64 `json:"max_penalty"`
}

// PenaltyEntry is the per-installment line of a penalty breakdown.
type PenaltyEntry struct {
	Number  int       `json:"number"`
	DueDate time.Time `json:"due_date"`
	Periods int       `json:"periods"`
	Amount  float64   `json:"amount"`
}

// PenaltyResult is a fresh computation; it is never cached between
// invocations.
type PenaltyResult struct {
	Total        float64        `json:"total"`
	Breakdown    []PenaltyEntry `json:"breakdown"`
	TotalPeriods int            `json:"total_periods"`
}

// CalculatePenalty computes the mora owed on a schedule as of now.
// "Now" is an explicit parameter: the engine never reads the clock, so
// identical inputs always produce identical results. A nil or
// unconfigured penalty config yields a zero result, since "no penalty
// configured" is a valid business state.
func CalculatePenalty(installments []Installment, config *PenaltyConfig, now time.Time, cal WorkdayCalendar) PenaltyResult {
	result := PenaltyResult{Breakdown: []PenaltyEntry{}}
	if config == nil || (config.Kind != PenaltyFixed && config.Kind != PenaltyPercent) {
		return result
	}

	today := startOfDay(now)
	var overdue []Installment
	for _, inst := range installments {
		if inst.Status != InstallmentPaid && inst.DueDate.Before(today) {
			overdue = append(overdue, inst)
		}
	}
	if len(overdue) == 0 {
		return result
	}

	if !config.PerInstallment {
		oldest := overdue[0]
		for _, inst := range overdue[1:] {
			if inst.DueDate.Before(oldest.DueDate) {
				oldest = inst
			}
		}
		overdue = []Installment{oldest}
	}

	for _, inst := range overdue {
		periods := overduePeriods(inst.DueDate, config.PeriodMode, config.GraceDays, today, cal)
		amount := config.Value * float64(periods)
		if config.Kind == PenaltyPercent {
			amount = penaltyBase(inst, config.Base) * config.Value / 100 * float64(periods)
		}
		result.Breakdown = append(result.Breakdown, PenaltyEntry{
			Number:  inst.Number,
			DueDate: inst.DueDate,
			Periods: periods,
			Amount:  amount,
		})
		result.Total += amount
		result.TotalPeriods += periods
	}

	if config.MaxPenalty != nil && result.Total > *config.MaxPenalty {
		result.Total = *config.MaxPenalty
	}
	return result
}

func penaltyBase(inst Installment, base PenaltyBase) float64 {
	switch base {
	case BaseCapital:
		return inst.Capital
	case BaseInterest:
		return inst.Interest
	case BaseBalance:
		return inst.BalanceAfter
	default:
		return inst.Amount
	}
}

// overduePeriods counts the working days between the end of the grace
// window and today (today excluded), then converts them to billable
// periods by flooring against the period mode's length.
func overduePeriods(dueDate time.Time, mode PeriodMode, graceDays int, today time.Time, cal WorkdayCalendar) int {
	deadline := applyGracePeriod(dueDate, graceDays, cal)
	if !today.After(deadline) {
		return 0
	}

	workingDays := 0
	for d := deadline.AddDate(0, 0, 1); d.Before(today); d = d.AddDate(0, 0, 1) {
		if isWorking(cal, d) {
			workingDays++
		}
	}

	divisor := 1
	switch mode {
	case PeriodWeekly:
		divisor = 7
	case PeriodBiweekly:
		divisor = 15
	case PeriodMonthly:
		divisor = 30
	}
	return workingDays / divisor
}

// applyGracePeriod walks forward from the due date until graceDays
// working days have elapsed. If the landing date is itself non-working
// the walk continues to the next working day.
func applyGracePeriod(dueDate time.Time, graceDays int, cal WorkdayCalendar) time.Time {
	if graceDays <= 0 {
		return dueDate
	}
	d := dueDate
	for counted := 0; counted < graceDays; {
		d = d.AddDate(0, 0, 1)
		if isWorking(cal, d) {
			counted++
		}
	}
	for !isWorking(cal, d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

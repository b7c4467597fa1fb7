package engine

import (
	"math"
	"time"
)

// LendingModel identifies the financial formula used to build a
// schedule.
type LendingModel string

const (
	// ModelRedito is interest-only: capital is repaid only on explicit
	// instruction, interest accrues every period on the full principal.
	ModelRedito LendingModel = "redito"
	// ModelFixed is flat interest with equal installments and a constant
	// capital/interest split (cuota fija).
	ModelFixed LendingModel = "fixed"
	// ModelAmortization is the reducing-balance annuity (saldo
	// insoluto): interest on the outstanding balance each period.
	ModelAmortization LendingModel = "amortization"
)

// InstallmentStatus tracks how much of an installment has been paid.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
)

// reditoDefaultDuration is used when open-ended loans come without an
// explicit installment count.
const reditoDefaultDuration = 12

// LoanTerms is the input to schedule generation. It is produced by the
// loan-creation layer and consumed once; the engine never mutates it.
type LoanTerms struct {
	// Principal is the amount lent, in the loan currency.
	Principal float64
	// MonthlyRate is the nominal monthly interest rate in percent.
	MonthlyRate float64
	// Duration is the installment count. Its meaning varies by model;
	// redito defaults it to 12 when zero.
	Duration int
	// Frequency places the due dates.
	Frequency FrequencyConfig
	// Model selects the financial formula.
	Model LendingModel
	// StartDate is when the loan was disbursed.
	StartDate time.Time
	// FirstPaymentDate anchors the due date sequence.
	FirstPaymentDate time.Time
}

// Installment is one row of a generated schedule. Paid* fields start at
// zero and are mutated later by the payment-posting layer, never here.
type Installment struct {
	Number        int               `json:"number"`
	DueDate       time.Time         `json:"due_date"`
	Amount        float64           `json:"amount"`
	Capital       float64           `json:"capital"`
	Interest      float64           `json:"interest"`
	PenaltyAmount float64           `json:"penalty_amount"`
	PaidCapital   float64           `json:"paid_capital"`
	PaidInterest  float64           `json:"paid_interest"`
	PaidPenalty   float64           `json:"paid_penalty"`
	PaidTotal     float64           `json:"paid_total"`
	PaidDate      *time.Time        `json:"paid_date"`
	Status        InstallmentStatus `json:"status"`
	BalanceBefore float64           `json:"balance_before"`
	BalanceAfter  float64           `json:"balance_after"`
}

// ScheduleSummary aggregates a generated schedule.
type ScheduleSummary struct {
	TotalInterest float64 `json:"total_interest"`
	TotalCapital  float64 `json:"total_capital"`
	TotalToPay    float64 `json:"total_to_pay"`
	Installments  int     `json:"installments"`
}

// GenerateSchedule builds the full installment schedule for the given
// loan terms, dispatching on the lending model.
func GenerateSchedule(terms LoanTerms, cal WorkdayCalendar) ([]Installment, ScheduleSummary, error) {
	if terms.Frequency == nil {
		return nil, ScheduleSummary{}, &UnsupportedFrequencyError{}
	}
	switch terms.Model {
	case ModelRedito:
		return reditoSchedule(terms, cal)
	case ModelFixed:
		return fixedSchedule(terms, cal)
	case ModelAmortization:
		return amortizationSchedule(terms, cal)
	}
	return nil, ScheduleSummary{}, &UnsupportedLendingModelError{Model: terms.Model}
}

// periodicRate converts a nominal monthly rate in percent to the
// per-period decimal rate for the given frequency.
func periodicRate(monthlyRatePercent float64, frequency FrequencyType) float64 {
	divisor := 1.0
	switch frequency {
	case FrequencyDaily:
		divisor = 30
	case FrequencyWeekly:
		divisor = 4
	case FrequencyBiweekly:
		divisor = 2
	case FrequencyMonthly:
		divisor = 1
	}
	return monthlyRatePercent / 100 / divisor
}

// roundToNearestFive rounds to the nearest multiple of 5, halves away
// from zero. Applied only to the headline payment (fixed, amortization)
// and headline interest (redito); the derived capital/interest split
// keeps the unrounded remainder.
func roundToNearestFive(x float64) float64 {
	return math.Round(x/5) * 5
}

// reditoSchedule charges constant interest on the full principal every
// period. The principal is never amortized automatically; it only
// decreases through explicit capital payments posted elsewhere.
func reditoSchedule(terms LoanTerms, cal WorkdayCalendar) ([]Installment, ScheduleSummary, error) {
	duration := terms.Duration
	if duration <= 0 {
		duration = reditoDefaultDuration
	}

	interest := roundToNearestFive(terms.Principal * periodicRate(terms.MonthlyRate, terms.Frequency.FrequencyType()))

	dueDates, err := GenerateDueDates(terms.FirstPaymentDate, terms.Frequency, duration, cal)
	if err != nil {
		return nil, ScheduleSummary{}, err
	}

	installments := make([]Installment, 0, duration)
	for i, due := range dueDates {
		installments = append(installments, Installment{
			Number:        i + 1,
			DueDate:       due,
			Amount:        interest,
			Capital:       0,
			Interest:      interest,
			Status:        InstallmentPending,
			BalanceBefore: terms.Principal,
			BalanceAfter:  terms.Principal,
		})
	}

	// TotalToPay is the first-period snapshot (principal plus one
	// period of interest), not a lifetime sum: the loan has no fixed
	// amortization term, so a lifetime total would be meaningless.
	summary := ScheduleSummary{
		TotalInterest: interest,
		TotalCapital:  terms.Principal,
		TotalToPay:    terms.Principal + interest,
		Installments:  len(installments),
	}
	return installments, summary, nil
}

// fixedSchedule spreads flat interest over equal installments. The
// headline payment is rounded to the nearest 5, and the real totals are
// recomputed from that rounded figure so the books match what is
// actually collected.
func fixedSchedule(terms LoanTerms, cal WorkdayCalendar) ([]Installment, ScheduleSummary, error) {
	duration := float64(terms.Duration)
	rate := periodicRate(terms.MonthlyRate, terms.Frequency.FrequencyType())

	interestTheoretical := terms.Principal * rate * duration
	payment := roundToNearestFive((terms.Principal + interestTheoretical) / duration)

	totalReal := payment * duration
	interestReal := totalReal - terms.Principal
	capitalPerInstallment := terms.Principal / duration
	interestPerInstallment := interestReal / duration

	dueDates, err := GenerateDueDates(terms.FirstPaymentDate, terms.Frequency, terms.Duration, cal)
	if err != nil {
		return nil, ScheduleSummary{}, err
	}

	installments := make([]Installment, 0, terms.Duration)
	balance := totalReal
	for i, due := range dueDates {
		before := balance
		balance -= payment
		if balance < 0 {
			balance = 0
		}
		installments = append(installments, Installment{
			Number:        i + 1,
			DueDate:       due,
			Amount:        payment,
			Capital:       capitalPerInstallment,
			Interest:      interestPerInstallment,
			Status:        InstallmentPending,
			BalanceBefore: before,
			BalanceAfter:  balance,
		})
	}

	summary := ScheduleSummary{
		TotalInterest: interestReal,
		TotalCapital:  terms.Principal,
		TotalToPay:    totalReal,
		Installments:  len(installments),
	}
	return installments, summary, nil
}

// amortizationSchedule computes a level annuity payment and walks the
// declining balance. The summary accumulates the realized per-period
// figures, so rounding residue collects in the last installments
// instead of being redistributed; persisted schedules depend on those
// exact numbers.
func amortizationSchedule(terms LoanTerms, cal WorkdayCalendar) ([]Installment, ScheduleSummary, error) {
	r := periodicRate(terms.MonthlyRate, terms.Frequency.FrequencyType())

	var payment float64
	if r == 0 {
		payment = roundToNearestFive(terms.Principal / float64(terms.Duration))
	} else {
		pow := math.Pow(1+r, float64(terms.Duration))
		payment = roundToNearestFive(terms.Principal * r * pow / (pow - 1))
	}

	dueDates, err := GenerateDueDates(terms.FirstPaymentDate, terms.Frequency, terms.Duration, cal)
	if err != nil {
		return nil, ScheduleSummary{}, err
	}

	installments := make([]Installment, 0, terms.Duration)
	balance := terms.Principal
	summary := ScheduleSummary{}
	for i, due := range dueDates {
		interest := balance * r
		capital := payment - interest
		before := balance
		balance -= capital
		if balance < 0 {
			balance = 0
		}
		installments = append(installments, Installment{
			Number:        i + 1,
			DueDate:       due,
			Amount:        payment,
			Capital:       capital,
			Interest:      interest,
			Status:        InstallmentPending,
			BalanceBefore: before,
			BalanceAfter:  balance,
		})
		summary.TotalInterest += interest
		summary.TotalCapital += capital
		summary.TotalToPay += payment
	}
	summary.Installments = len(installments)

	return installments, summary, nil
}

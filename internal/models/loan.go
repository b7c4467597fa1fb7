package models

import (
	"time"

	"github.com/prestadia/prestadia-api/internal/engine"
)

// Loan represents a loan granted by a business to a client. It stores
// the terms the calculation engine consumes plus the penalty (mora)
// configuration attached at creation time.
type Loan struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Reference  string `gorm:"uniqueIndex;not null" json:"reference"`
	BusinessID uint   `gorm:"not null;index" json:"business_id"`
	ClientID   uint   `gorm:"not null;index" json:"client_id"`
	CreatorID  *uint  `gorm:"index" json:"creator_id"`

	// Terms
	Amount           float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate     float64   `gorm:"type:decimal(8,4);not null" json:"interest_rate"`
	Duration         int       `gorm:"not null" json:"duration"`
	LendingModel     string    `gorm:"not null;index" json:"lending_model"`
	FrequencyType    string    `gorm:"not null" json:"frequency_type"`
	FrequencyInterval int      `gorm:"default:1" json:"frequency_interval"`
	FrequencyWeekday *int      `json:"frequency_weekday"`
	FrequencyMode    *string   `json:"frequency_mode"`
	StartDate        time.Time `gorm:"type:date;not null" json:"start_date"`
	FirstPaymentDate time.Time `gorm:"type:date;not null" json:"first_payment_date"`
	Currency         string    `gorm:"default:HNL;not null" json:"currency"`

	// Penalty (mora) configuration; nullable kind means no penalty.
	PenaltyKind           *string  `json:"penalty_kind"`
	PenaltyValue          float64  `gorm:"type:decimal(15,2);default:0" json:"penalty_value"`
	PenaltyGraceDays      int      `gorm:"default:0" json:"penalty_grace_days"`
	PenaltyPeriodMode     string   `gorm:"default:daily" json:"penalty_period_mode"`
	PenaltyPerInstallment bool     `gorm:"default:true" json:"penalty_per_installment"`
	PenaltyBase           string   `gorm:"default:quota" json:"penalty_base"`
	PenaltyMax            *float64 `gorm:"type:decimal(15,2)" json:"penalty_max"`

	Status   string     `gorm:"default:active;index" json:"status"`
	Note     *string    `gorm:"type:text" json:"note"`
	ClosedAt *time.Time `json:"closed_at"`

	// Summary figures captured at schedule generation time.
	TotalInterest float64 `gorm:"type:decimal(15,2)" json:"total_interest"`
	TotalToPay    float64 `gorm:"type:decimal(15,2)" json:"total_to_pay"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TotalPaid is filled by list queries via aggregation, not persisted.
	TotalPaid float64 `gorm:"-" json:"total_paid"`

	// Associations
	Business     Business      `gorm:"foreignKey:BusinessID" json:"-"`
	Client       Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Creator      *User         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Installments []Installment `gorm:"foreignKey:LoanID" json:"installments,omitempty"`
	LedgerEntries []LoanLedgerEntry `gorm:"foreignKey:LoanID" json:"ledger_entries,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusActive    = "active"
	LoanStatusClosed    = "closed"
	LoanStatusDefaulted = "defaulted"
	LoanStatusCancelled = "cancelled"
)

// MayClose returns true if the loan can be closed
func (l *Loan) MayClose() bool {
	return l.Status == LoanStatusActive
}

// MayCancel returns true if the loan can be cancelled
func (l *Loan) MayCancel() bool {
	return l.Status == LoanStatusActive
}

// MayDefault returns true if the loan can be marked defaulted
func (l *Loan) MayDefault() bool {
	return l.Status == LoanStatusActive
}

// MayReopen returns true if the loan can go back to active
func (l *Loan) MayReopen() bool {
	return l.Status == LoanStatusClosed || l.Status == LoanStatusDefaulted
}

// IsOpen returns true if the loan still accrues penalties
func (l *Loan) IsOpen() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusDefaulted
}

// FrequencyConfig maps the stored frequency columns onto the engine's
// typed configuration. An unknown frequency type yields nil, which the
// engine rejects as unsupported.
func (l *Loan) FrequencyConfig() engine.FrequencyConfig {
	switch engine.FrequencyType(l.FrequencyType) {
	case engine.FrequencyDaily:
		return engine.DailyConfig{Interval: l.FrequencyInterval}
	case engine.FrequencyWeekly:
		cfg := engine.WeeklyConfig{Interval: l.FrequencyInterval}
		if l.FrequencyWeekday != nil {
			wd := time.Weekday(*l.FrequencyWeekday)
			cfg.Weekday = &wd
		}
		return cfg
	case engine.FrequencyBiweekly:
		mode := engine.BiweeklyEach15
		if l.FrequencyMode != nil {
			mode = engine.BiweeklyMode(*l.FrequencyMode)
		}
		return engine.BiweeklyConfig{Mode: mode}
	case engine.FrequencyMonthly:
		mode := engine.MonthlySameDay
		if l.FrequencyMode != nil {
			mode = engine.MonthlyMode(*l.FrequencyMode)
		}
		return engine.MonthlyConfig{Mode: mode}
	}
	return nil
}

// EngineTerms builds the engine input for this loan.
func (l *Loan) EngineTerms() engine.LoanTerms {
	return engine.LoanTerms{
		Principal:        l.Amount,
		MonthlyRate:      l.InterestRate,
		Duration:         l.Duration,
		Frequency:        l.FrequencyConfig(),
		Model:            engine.LendingModel(l.LendingModel),
		StartDate:        l.StartDate,
		FirstPaymentDate: l.FirstPaymentDate,
	}
}

// EnginePenaltyConfig builds the engine penalty configuration, or nil
// when no penalty kind is attached.
func (l *Loan) EnginePenaltyConfig() *engine.PenaltyConfig {
	if l.PenaltyKind == nil || *l.PenaltyKind == "" {
		return nil
	}
	return &engine.PenaltyConfig{
		Kind:           engine.PenaltyKind(*l.PenaltyKind),
		Value:          l.PenaltyValue,
		GraceDays:      l.PenaltyGraceDays,
		PeriodMode:     engine.PeriodMode(l.PenaltyPeriodMode),
		PerInstallment: l.PenaltyPerInstallment,
		Base:           engine.PenaltyBase(l.PenaltyBase),
		MaxPenalty:     l.PenaltyMax,
	}
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID               uint       `json:"id"`
	Reference        string     `json:"reference"`
	BusinessID       uint       `json:"business_id"`
	ClientID         uint       `json:"client_id"`
	ClientName       string     `json:"client_name,omitempty"`
	Amount           float64    `json:"amount"`
	InterestRate     float64    `json:"interest_rate"`
	Duration         int        `json:"duration"`
	LendingModel     string     `json:"lending_model"`
	FrequencyType    string     `json:"frequency_type"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	StartDate        time.Time  `json:"start_date"`
	FirstPaymentDate time.Time  `json:"first_payment_date"`
	TotalInterest    float64    `json:"total_interest"`
	TotalToPay       float64    `json:"total_to_pay"`
	TotalPaid        float64    `json:"total_paid"`
	PendingAmount    float64    `json:"pending_amount"`
	ClosedAt         *time.Time `json:"closed_at"`
	CreatedAt        time.Time  `json:"created_at"`

	Schedule []InstallmentResponse `json:"schedule,omitempty"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	resp := LoanResponse{
		ID:               l.ID,
		Reference:        l.Reference,
		BusinessID:       l.BusinessID,
		ClientID:         l.ClientID,
		Amount:           l.Amount,
		InterestRate:     l.InterestRate,
		Duration:         l.Duration,
		LendingModel:     l.LendingModel,
		FrequencyType:    l.FrequencyType,
		Currency:         l.Currency,
		Status:           l.Status,
		StartDate:        l.StartDate,
		FirstPaymentDate: l.FirstPaymentDate,
		TotalInterest:    l.TotalInterest,
		TotalToPay:       l.TotalToPay,
		ClosedAt:         l.ClosedAt,
		CreatedAt:        l.CreatedAt,
	}

	if l.Client.ID != 0 {
		resp.ClientName = l.Client.FullName
	}

	// List queries fill TotalPaid without loading the schedule; with the
	// schedule loaded the per-installment sum below takes over.
	if len(l.Installments) == 0 {
		resp.TotalPaid = l.TotalPaid
	}

	for _, inst := range l.Installments {
		resp.TotalPaid += inst.PaidTotal
		if inst.Status != InstallmentStatusPaid {
			resp.PendingAmount += inst.Amount + inst.PenaltyAmount - inst.PaidTotal
		}
		resp.Schedule = append(resp.Schedule, inst.ToResponse())
	}
	return resp
}

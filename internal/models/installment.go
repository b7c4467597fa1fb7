package models

import (
	"time"

	"github.com/prestadia/prestadia-api/internal/engine"
)

// Installment is one persisted row of a loan's payment schedule. The
// calculation engine produces the immutable creation-time figures;
// the Paid* fields and status are mutated only by payment posting.
type Installment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LoanID        uint       `gorm:"not null;index" json:"loan_id"`
	Number        int        `gorm:"not null" json:"number"`
	DueDate       time.Time  `gorm:"type:date;not null;index" json:"due_date"`
	Amount        float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Capital       float64    `gorm:"type:decimal(15,2);not null" json:"capital"`
	Interest      float64    `gorm:"type:decimal(15,2);not null" json:"interest"`
	PenaltyAmount float64    `gorm:"type:decimal(15,2);default:0" json:"penalty_amount"`
	PaidCapital   float64    `gorm:"type:decimal(15,2);default:0" json:"paid_capital"`
	PaidInterest  float64    `gorm:"type:decimal(15,2);default:0" json:"paid_interest"`
	PaidPenalty   float64    `gorm:"type:decimal(15,2);default:0" json:"paid_penalty"`
	PaidTotal     float64    `gorm:"type:decimal(15,2);default:0" json:"paid_total"`
	PaidDate      *time.Time `gorm:"type:date" json:"paid_date"`
	ReceiptPath   *string    `json:"-"`
	Status        string     `gorm:"default:pending;not null;index" json:"status"`
	BalanceBefore float64    `gorm:"type:decimal(15,2)" json:"balance_before"`
	BalanceAfter  float64    `gorm:"type:decimal(15,2)" json:"balance_after"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Associations
	Loan Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants, aligned with the engine's values.
const (
	InstallmentStatusPending = string(engine.InstallmentPending)
	InstallmentStatusPartial = string(engine.InstallmentPartial)
	InstallmentStatusPaid    = string(engine.InstallmentPaid)
)

// InstallmentFromEngine maps an engine schedule row to its persisted
// form.
func InstallmentFromEngine(loanID uint, inst engine.Installment) Installment {
	return Installment{
		LoanID:        loanID,
		Number:        inst.Number,
		DueDate:       inst.DueDate,
		Amount:        inst.Amount,
		Capital:       inst.Capital,
		Interest:      inst.Interest,
		PenaltyAmount: inst.PenaltyAmount,
		PaidCapital:   inst.PaidCapital,
		PaidInterest:  inst.PaidInterest,
		PaidPenalty:   inst.PaidPenalty,
		PaidTotal:     inst.PaidTotal,
		PaidDate:      inst.PaidDate,
		Status:        string(inst.Status),
		BalanceBefore: inst.BalanceBefore,
		BalanceAfter:  inst.BalanceAfter,
	}
}

// ToEngine maps the persisted row back to the engine's type, as
// consumed by penalty computation.
func (i *Installment) ToEngine() engine.Installment {
	return engine.Installment{
		Number:        i.Number,
		DueDate:       i.DueDate,
		Amount:        i.Amount,
		Capital:       i.Capital,
		Interest:      i.Interest,
		PenaltyAmount: i.PenaltyAmount,
		PaidCapital:   i.PaidCapital,
		PaidInterest:  i.PaidInterest,
		PaidPenalty:   i.PaidPenalty,
		PaidTotal:     i.PaidTotal,
		PaidDate:      i.PaidDate,
		Status:        engine.InstallmentStatus(i.Status),
		BalanceBefore: i.BalanceBefore,
		BalanceAfter:  i.BalanceAfter,
	}
}

// IsPaid returns true when the installment is fully settled
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// IsOverdue returns true if the installment is unpaid past its due date
func (i *Installment) IsOverdue(now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return i.Status != InstallmentStatusPaid && i.DueDate.Before(today)
}

// TotalDue returns the amount still owed including penalties
func (i *Installment) TotalDue() float64 {
	due := i.Amount + i.PenaltyAmount - i.PaidTotal
	if due < 0 {
		return 0
	}
	return due
}

// MayApplyPayment returns true if a payment can be posted
func (i *Installment) MayApplyPayment() bool {
	return i.Status == InstallmentStatusPending || i.Status == InstallmentStatusPartial
}

// MayUndo returns true if the last payment can be reverted
func (i *Installment) MayUndo() bool {
	return i.Status == InstallmentStatusPaid || i.Status == InstallmentStatusPartial
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID            uint       `json:"id"`
	LoanID        uint       `json:"loan_id"`
	Number        int        `json:"number"`
	DueDate       time.Time  `json:"due_date"`
	Amount        float64    `json:"amount"`
	Capital       float64    `json:"capital"`
	Interest      float64    `json:"interest"`
	PenaltyAmount float64    `json:"penalty_amount"`
	PaidTotal     float64    `json:"paid_total"`
	PaidDate      *time.Time `json:"paid_date"`
	Status        string     `json:"status"`
	BalanceBefore float64    `json:"balance_before"`
	BalanceAfter  float64    `json:"balance_after"`
	TotalDue      float64    `json:"total_due"`
	HasReceipt    bool       `json:"has_receipt"`
}

// ToResponse converts Installment to InstallmentResponse
func (i *Installment) ToResponse() InstallmentResponse {
	return InstallmentResponse{
		ID:            i.ID,
		LoanID:        i.LoanID,
		Number:        i.Number,
		DueDate:       i.DueDate,
		Amount:        i.Amount,
		Capital:       i.Capital,
		Interest:      i.Interest,
		PenaltyAmount: i.PenaltyAmount,
		PaidTotal:     i.PaidTotal,
		PaidDate:      i.PaidDate,
		Status:        i.Status,
		BalanceBefore: i.BalanceBefore,
		BalanceAfter:  i.BalanceAfter,
		TotalDue:      i.TotalDue(),
		HasReceipt:    i.ReceiptPath != nil,
	}
}

package models

import (
	"time"
)

// LoanLedgerEntry represents a financial transaction for a loan
type LoanLedgerEntry struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	LoanID        uint      `json:"loan_id" gorm:"not null;index"`
	InstallmentID *uint     `json:"installment_id,omitempty" gorm:"index"`
	Amount        float64   `json:"amount" gorm:"not null"` // Positive for credits (payments), negative for debits (charges)
	Description   string    `json:"description" gorm:"not null"`
	EntryType     string    `json:"entry_type" gorm:"not null;index"`
	EntryDate     time.Time `json:"entry_date" gorm:"not null;default:current_timestamp"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relationships
	Loan        *Loan        `json:"loan,omitempty" gorm:"foreignKey:LoanID"`
	Installment *Installment `json:"installment,omitempty" gorm:"foreignKey:InstallmentID"`
}

// Entry type constants
const (
	EntryTypeDisbursement = "disbursement" // Principal lent out (debit)
	EntryTypePayment      = "payment"      // Payment received (credit)
	EntryTypePenalty      = "penalty"      // Accrued mora (debit)
	EntryTypeCapital      = "capital"      // Explicit capital repayment (credit)
	EntryTypeAdjustment   = "adjustment"   // Manual adjustment or reversal
)

// TableName specifies the table name for GORM
func (LoanLedgerEntry) TableName() string {
	return "loan_ledger_entries"
}

// LoanLedgerEntryResponse is the JSON response format for ledger entries
type LoanLedgerEntryResponse struct {
	ID            uint      `json:"id"`
	LoanID        uint      `json:"loan_id"`
	InstallmentID *uint     `json:"installment_id,omitempty"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	EntryType     string    `json:"entry_type"`
	EntryDate     time.Time `json:"entry_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts LoanLedgerEntry to LoanLedgerEntryResponse
func (e *LoanLedgerEntry) ToResponse() LoanLedgerEntryResponse {
	return LoanLedgerEntryResponse{
		ID:            e.ID,
		LoanID:        e.LoanID,
		InstallmentID: e.InstallmentID,
		Amount:        e.Amount,
		Description:   e.Description,
		EntryType:     e.EntryType,
		EntryDate:     e.EntryDate,
		CreatedAt:     e.CreatedAt,
	}
}

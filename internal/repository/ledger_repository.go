package repository

import (
	"context"

	"github.com/prestadia/prestadia-api/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository defines the interface for loan ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LoanLedgerEntry) error
	FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error)
	FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanLedgerEntry, error)
	CalculateBalance(ctx context.Context, loanID uint) (float64, error)
	FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.LoanLedgerEntry) error
	DeleteByLoanID(ctx context.Context, loanID uint) error
}

// ledgerRepository handles database operations for loan ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.LoanLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByLoanID retrieves all ledger entries for a loan
func (r *ledgerRepository) FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error) {
	var entries []models.LoanLedgerEntry
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

// FindByInstallmentID retrieves all ledger entries for an installment
func (r *ledgerRepository) FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanLedgerEntry, error) {
	var entries []models.LoanLedgerEntry
	err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

// CalculateBalance calculates the current balance for a loan
// Balance = sum of all ledger entries (negative for debits, positive for credits)
func (r *ledgerRepository) CalculateBalance(ctx context.Context, loanID uint) (float64, error) {
	var result struct {
		Balance float64
	}

	err := r.db.WithContext(ctx).
		Model(&models.LoanLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) as balance").
		Where("loan_id = ?", loanID).
		Scan(&result).Error

	return result.Balance, err
}

// FindOrCreateByInstallmentAndType finds or creates a ledger entry for an
// installment and entry type. Used for refreshing penalty entries without
// creating duplicates.
func (r *ledgerRepository) FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.LoanLedgerEntry) error {
	if entry.InstallmentID != nil && entry.EntryType == models.EntryTypePenalty {
		var existing models.LoanLedgerEntry
		err := r.db.WithContext(ctx).
			Where("installment_id = ? AND entry_type = ?", entry.InstallmentID, entry.EntryType).
			First(&existing).Error

		if err == nil {
			existing.Amount = entry.Amount
			existing.Description = entry.Description
			existing.EntryDate = entry.EntryDate
			return r.db.WithContext(ctx).Save(&existing).Error
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
	}

	return r.Create(ctx, entry)
}

// DeleteByLoanID deletes all ledger entries for a loan (used when canceling)
func (r *ledgerRepository) DeleteByLoanID(ctx context.Context, loanID uint) error {
	return r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Delete(&models.LoanLedgerEntry{}).Error
}

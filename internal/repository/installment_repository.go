package repository

import (
	"context"

	"github.com/prestadia/prestadia-api/internal/models"
	"gorm.io/gorm"
)

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error)
	CreateBatch(ctx context.Context, installments []models.Installment) error
	Update(ctx context.Context, installment *models.Installment) error
	DeletePendingByLoan(ctx context.Context, loanID uint) error
	FindOverdue(ctx context.Context, businessID uint) ([]models.Installment, error)
	CountUnpaidByLoan(ctx context.Context, loanID uint) (int64, error)
	BatchUpdatePenalty(ctx context.Context, updates map[uint]float64) error
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Preload("Loan").
		First(&installment, id).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("number ASC").
		Find(&installments).Error
	return installments, err
}

// CreateBatch inserts a whole schedule in one statement.
func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&installments).Error
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}

// DeletePendingByLoan removes a loan's untouched installments. Partial
// and paid installments stay as payment history.
func (r *installmentRepository) DeletePendingByLoan(ctx context.Context, loanID uint) error {
	return r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, models.InstallmentStatusPending).
		Delete(&models.Installment{}).Error
}

// FindOverdue returns unpaid installments past their due date for active
// loans of a business. Preloads Loan for penalty terms and notifications.
func (r *installmentRepository) FindOverdue(ctx context.Context, businessID uint) ([]models.Installment, error) {
	var installments []models.Installment
	db := r.db.WithContext(ctx).
		Joins("JOIN loans ON loans.id = installments.loan_id AND loans.status = ?", models.LoanStatusActive).
		Where("installments.status <> ? AND installments.due_date < CURRENT_DATE", models.InstallmentStatusPaid)
	if businessID > 0 {
		db = db.Where("loans.business_id = ?", businessID)
	}
	err := db.
		Preload("Loan.Client").
		Order("installments.due_date ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) CountUnpaidByLoan(ctx context.Context, loanID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("loan_id = ? AND status <> ?", loanID, models.InstallmentStatusPaid).
		Count(&count).Error
	return count, err
}

// BatchUpdatePenalty writes recalculated penalty amounts keyed by
// installment ID inside a single transaction. Typical batch sizes are in
// the hundreds, so per-row updates inside one transaction are fast enough
// for Postgres.
func (r *installmentRepository) BatchUpdatePenalty(ctx context.Context, updates map[uint]float64) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, amount := range updates {
			if err := tx.Model(&models.Installment{}).Where("id = ?", id).Update("penalty_amount", amount).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

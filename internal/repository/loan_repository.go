package repository

import (
	"context"
	"strings"

	"github.com/prestadia/prestadia-api/internal/models"
	"gorm.io/gorm"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDWithSchedule(ctx context.Context, id uint) (*models.Loan, error)
	FindByReference(ctx context.Context, reference string) (*models.Loan, error)
	FindByClient(ctx context.Context, clientID uint) ([]models.Loan, error)
	FindActiveLoans(ctx context.Context, businessID uint) ([]models.Loan, error)
	Create(ctx context.Context, loan *models.Loan) error
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *LoanQuery) ([]models.Loan, int64, error)
	GetStats(ctx context.Context, businessID uint) (*LoanStats, error)
	HasOpenLoans(ctx context.Context, clientID uint) (bool, error)
}

// LoanQuery extends ListQuery with loan-specific filters
type LoanQuery struct {
	*ListQuery
	BusinessID uint
	ClientID   uint
	Status     string
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithSchedule(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	// Load loan + Client and Creator via Joins; Installments and LedgerEntries
	// are one-to-many so they stay as Preloads.
	err := r.db.WithContext(ctx).
		Joins("Client").
		Joins("Creator").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Preload("LedgerEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entry_date ASC")
		}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByReference(ctx context.Context, reference string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByClient(ctx context.Context, clientID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// FindActiveLoans returns active loans for a business with their schedules
// and business calendars loaded, ready for penalty recalculation. A zero
// businessID returns active loans across all businesses.
func (r *loanRepository) FindActiveLoans(ctx context.Context, businessID uint) ([]models.Loan, error) {
	var loans []models.Loan
	db := r.db.WithContext(ctx).
		Where("loans.status = ?", models.LoanStatusActive)
	if businessID > 0 {
		db = db.Where("loans.business_id = ?", businessID)
	}
	err := db.
		Preload("Business.Holidays").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Order("loans.id ASC").
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Loan{}, id).Error
}

func (r *loanRepository) List(ctx context.Context, query *LoanQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if query.BusinessID > 0 {
		db = db.Where("loans.business_id = ?", query.BusinessID)
	}

	if query.ClientID > 0 {
		db = db.Where("loans.client_id = ?", query.ClientID)
	}

	// Apply status filter (single or multiple via status_in)
	if query.Filters != nil {
		if val, ok := query.Filters["status_in"]; ok && val != "" {
			statuses := strings.Split(val, ",")
			for i, s := range statuses {
				statuses[i] = strings.TrimSpace(s)
			}
			if len(statuses) > 0 {
				db = db.Where("loans.status IN ?", statuses)
			}
		}
	}
	if query.Filters == nil || query.Filters["status_in"] == "" {
		if query.Status != "" {
			db = db.Where("loans.status = ?", query.Status)
		}
	}

	if query.Filters != nil {
		if val, ok := query.Filters["lending_model"]; ok && val != "" {
			db = db.Where("loans.lending_model = ?", val)
		}
		if val, ok := query.Filters["start_date"]; ok && val != "" {
			db = db.Where("loans.created_at >= ?", val)
		}
		if val, ok := query.Filters["end_date"]; ok && val != "" {
			// Ensure we include the full day if only date is provided
			if len(val) == 10 { // YYYY-MM-DD
				val += " 23:59:59"
			}
			db = db.Where("loans.created_at <= ?", val)
		}
		if val, ok := query.Filters["reference"]; ok && val != "" {
			db = db.Where("loans.reference = ?", val)
		}
	}

	// Apply search (JOIN only for filtering; associations loaded via Preload below)
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN clients ON clients.id = loans.client_id").
			Where("clients.full_name ILIKE ? OR clients.identity ILIKE ? OR clients.phone ILIKE ? OR loans.reference ILIKE ?",
				search, search, search, search)
	}

	// Count total using a separate session so the main query is not altered by Count()
	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply sorting
	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("loans.created_at DESC")
	}

	// Apply pagination
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("Client").
		Preload("Creator").
		Find(&loans).Error
	if err != nil {
		return nil, 0, err
	}

	// Calculate TotalPaid for each loan using a single aggregation
	if len(loans) > 0 {
		var loanIDs []uint
		for _, l := range loans {
			loanIDs = append(loanIDs, l.ID)
		}

		type Result struct {
			LoanID uint
			Total  float64
		}
		var results []Result

		if err := r.db.WithContext(ctx).Model(&models.Installment{}).
			Select("loan_id, COALESCE(SUM(paid_total), 0) as total").
			Where("loan_id IN ?", loanIDs).
			Group("loan_id").
			Scan(&results).Error; err == nil {

			resultMap := make(map[uint]float64)
			for _, res := range results {
				resultMap[res.LoanID] = res.Total
			}

			for i := range loans {
				if val, ok := resultMap[loans[i].ID]; ok {
					loans[i].TotalPaid = val
				}
			}
		}
	}

	return loans, total, err
}

// LoanStats holds the count of loans by status for a business
type LoanStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Closed    int64 `json:"closed"`
	Defaulted int64 `json:"defaulted"`
	Cancelled int64 `json:"cancelled"`
}

func (r *loanRepository) GetStats(ctx context.Context, businessID uint) (*LoanStats, error) {
	stats := &LoanStats{}

	db := r.db.WithContext(ctx).Model(&models.Loan{})
	if businessID > 0 {
		db = db.Where("business_id = ?", businessID)
	}

	rows, err := db.
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		total += count
		switch status {
		case models.LoanStatusActive:
			stats.Active = count
		case models.LoanStatusClosed:
			stats.Closed = count
		case models.LoanStatusDefaulted:
			stats.Defaulted = count
		case models.LoanStatusCancelled:
			stats.Cancelled = count
		}
	}
	stats.Total = total

	return stats, nil
}

func (r *loanRepository) HasOpenLoans(ctx context.Context, clientID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("client_id = ? AND status IN ?", clientID,
			[]string{models.LoanStatusActive, models.LoanStatusDefaulted}).
		Count(&count).Error
	return count > 0, err
}

package repository

import (
	"context"

	"github.com/prestadia/prestadia-api/internal/models"
	"gorm.io/gorm"
)

// BusinessRepository defines the interface for business data access
type BusinessRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Business, error)
	FindByOwner(ctx context.Context, ownerUserID uint) (*models.Business, error)
	Create(ctx context.Context, business *models.Business) error
	Update(ctx context.Context, business *models.Business) error
	AddHoliday(ctx context.Context, holiday *models.BusinessHoliday) error
	RemoveHoliday(ctx context.Context, businessID, holidayID uint) error
	FindHolidays(ctx context.Context, businessID uint) ([]models.BusinessHoliday, error)
}

type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) FindByID(ctx context.Context, id uint) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Preload("Holidays", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		First(&business, id).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) FindByOwner(ctx context.Context, ownerUserID uint) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Preload("Holidays").
		Where("owner_user_id = ?", ownerUserID).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) Create(ctx context.Context, business *models.Business) error {
	return r.db.WithContext(ctx).Create(business).Error
}

func (r *businessRepository) Update(ctx context.Context, business *models.Business) error {
	return r.db.WithContext(ctx).Save(business).Error
}

func (r *businessRepository) AddHoliday(ctx context.Context, holiday *models.BusinessHoliday) error {
	return r.db.WithContext(ctx).Create(holiday).Error
}

func (r *businessRepository) RemoveHoliday(ctx context.Context, businessID, holidayID uint) error {
	return r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Delete(&models.BusinessHoliday{}, holidayID).Error
}

func (r *businessRepository) FindHolidays(ctx context.Context, businessID uint) ([]models.BusinessHoliday, error) {
	var holidays []models.BusinessHoliday
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

package repository

import (
	"context"

	"github.com/prestadia/prestadia-api/internal/models"
	"gorm.io/gorm"
)

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Client, error)
	FindByIdentity(ctx context.Context, businessID uint, identity string) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, businessID uint, query *ListQuery) ([]models.Client, int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("discarded_at IS NULL").
		First(&client, id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByIdentity(ctx context.Context, businessID uint, identity string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND identity = ? AND discarded_at IS NULL", businessID, identity).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *clientRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Update("discarded_at", gorm.Expr("NOW()")).Error
}

func (r *clientRepository) List(ctx context.Context, businessID uint, query *ListQuery) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	db := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("business_id = ? AND discarded_at IS NULL", businessID)

	// Apply search
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("full_name ILIKE ? OR identity ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			search, search, search, search)
	}

	if query.Filters["active"] != "" {
		db = db.Where("active = ?", query.Filters["active"] == "true")
	}

	// Count total
	db.Count(&total)

	// Apply sorting
	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("full_name ASC")
	}

	// Apply pagination
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&clients).Error
	return clients, total, err
}

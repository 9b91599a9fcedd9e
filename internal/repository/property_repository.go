package repository

import (
	"context"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
)

// PropertyRepository defines the interface for property data access
type PropertyRepository interface {
	FindByID(ctx context.Context, userID, id uint) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.Property, int64, error)
	CountProjections(ctx context.Context, propertyID uint) (int64, error)
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) FindByID(ctx context.Context, userID, id uint) (*models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequentialID(tx, &models.Property{}, "user_id", property.UserID)
		if err != nil {
			return err
		}
		property.UserSequentialID = seq
		return tx.Omit("User").Create(property).Error
	})
}

func (r *propertyRepository) Update(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Omit("User").Save(property).Error
}

func (r *propertyRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Property{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *propertyRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.Property, int64, error) {
	var properties []models.Property
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Property{}).Where("user_id = ?", userID)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("LOWER(name) LIKE LOWER(?) OR LOWER(city) LIKE LOWER(?) OR LOWER(neighborhood) LIKE LOWER(?)",
			search, search, search)
	}
	if t := query.Filters["type"]; t != "" {
		db = db.Where("type = ?", t)
	}
	if c := query.Filters["city"]; c != "" {
		db = db.Where("LOWER(city) = LOWER(?)", c)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.apply(db, "created_at", propertySortColumns).Find(&properties).Error
	return properties, total, err
}

func (r *propertyRepository) CountProjections(ctx context.Context, propertyID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Projection{}).
		Where("imovel_id = ?", propertyID).
		Count(&n).Error
	return n, err
}

var propertySortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"city":       "city",
	"area":       "area",
}

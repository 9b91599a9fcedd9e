package repository

import (
	"context"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinancialIndexRepository defines the interface for economic index data access
type FinancialIndexRepository interface {
	Upsert(ctx context.Context, indexes []models.FinancialIndex) (int64, error)
	Latest(ctx context.Context, indexType string) (*models.FinancialIndex, error)
	Recent(ctx context.Context, indexType string, months int) ([]models.FinancialIndex, error)
	Range(ctx context.Context, indexType, from, to string) ([]models.FinancialIndex, error)
}

type financialIndexRepository struct {
	db *gorm.DB
}

// NewFinancialIndexRepository creates a new financial index repository
func NewFinancialIndexRepository(db *gorm.DB) FinancialIndexRepository {
	return &financialIndexRepository{db: db}
}

// Upsert inserts readings, overwriting the value of an existing (type, month) pair.
func (r *financialIndexRepository) Upsert(ctx context.Context, indexes []models.FinancialIndex) (int64, error) {
	if len(indexes) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "index_type"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "value_annual_equivalent", "source", "collected_at", "updated_at"}),
		}).
		Create(&indexes)
	return res.RowsAffected, res.Error
}

func (r *financialIndexRepository) Latest(ctx context.Context, indexType string) (*models.FinancialIndex, error) {
	var idx models.FinancialIndex
	err := r.db.WithContext(ctx).
		Where("index_type = ?", indexType).
		Order("month DESC").
		First(&idx).Error
	if err != nil {
		return nil, err
	}
	return &idx, nil
}

// Recent returns up to months readings, newest first.
func (r *financialIndexRepository) Recent(ctx context.Context, indexType string, months int) ([]models.FinancialIndex, error) {
	var out []models.FinancialIndex
	err := r.db.WithContext(ctx).
		Where("index_type = ?", indexType).
		Order("month DESC").
		Limit(months).
		Find(&out).Error
	return out, err
}

// Range returns readings with from <= month <= to ("YYYY-MM"), oldest first.
// An empty bound is open.
func (r *financialIndexRepository) Range(ctx context.Context, indexType, from, to string) ([]models.FinancialIndex, error) {
	var out []models.FinancialIndex
	db := r.db.WithContext(ctx).Where("index_type = ?", indexType)
	if from != "" {
		db = db.Where("month >= ?", from)
	}
	if to != "" {
		db = db.Where("month <= ?", to)
	}
	err := db.Order("month ASC").Find(&out).Error
	return out, err
}

package repository

import (
	"context"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if e := query.Filters["entity"]; e != "" {
		db = db.Where("entity = ?", e)
	}
	if a := query.Filters["action"]; a != "" {
		db = db.Where("action = ?", a)
	}
	if u := query.Filters["user_id"]; u != "" {
		db = db.Where("user_id = ?", u)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.apply(db.Preload("User"), "created_at", auditSortColumns).Find(&logs).Error
	return logs, total, err
}

var auditSortColumns = map[string]string{
	"created_at": "created_at",
	"action":     "action",
}

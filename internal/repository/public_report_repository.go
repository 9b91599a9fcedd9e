package repository

import (
	"context"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
)

// PublicReportRepository defines the interface for share link data access
type PublicReportRepository interface {
	Create(ctx context.Context, link *models.PublicReportLink) error
	FindByPublicID(ctx context.Context, publicID string) (*models.PublicReportLink, error)
	FindActiveByProjection(ctx context.Context, projectionID uint) (*models.PublicReportLink, error)
	DeactivateByProjection(ctx context.Context, projectionID uint) (int64, error)
	RecordView(ctx context.Context, linkID uint, entry *models.PublicReportAccessLog) error
	AccessLogs(ctx context.Context, linkID uint, limit int) ([]models.PublicReportAccessLog, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type publicReportRepository struct {
	db *gorm.DB
}

// NewPublicReportRepository creates a new public report repository
func NewPublicReportRepository(db *gorm.DB) PublicReportRepository {
	return &publicReportRepository{db: db}
}

func (r *publicReportRepository) Create(ctx context.Context, link *models.PublicReportLink) error {
	return r.db.WithContext(ctx).Omit("Projection").Create(link).Error
}

func (r *publicReportRepository) FindByPublicID(ctx context.Context, publicID string) (*models.PublicReportLink, error) {
	var link models.PublicReportLink
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *publicReportRepository) FindActiveByProjection(ctx context.Context, projectionID uint) (*models.PublicReportLink, error) {
	var link models.PublicReportLink
	err := r.db.WithContext(ctx).
		Where("projection_id = ? AND is_active = ?", projectionID, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at DESC").
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *publicReportRepository) DeactivateByProjection(ctx context.Context, projectionID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PublicReportLink{}).
		Where("projection_id = ? AND is_active = ?", projectionID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// RecordView stores the access log and, unless the visitor is the link's creator,
// bumps the view counter in the same transaction.
func (r *publicReportRepository) RecordView(ctx context.Context, linkID uint, entry *models.PublicReportAccessLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.PublicReportLinkID = linkID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if entry.IsCreator {
			return nil
		}
		return tx.Model(&models.PublicReportLink{}).
			Where("id = ?", linkID).
			Updates(map[string]interface{}{
				"view_count":     gorm.Expr("view_count + 1"),
				"last_viewed_at": entry.AccessedAt,
			}).Error
	})
}

func (r *publicReportRepository) AccessLogs(ctx context.Context, linkID uint, limit int) ([]models.PublicReportAccessLog, error) {
	var logs []models.PublicReportAccessLog
	db := r.db.WithContext(ctx).
		Where("public_report_link_id = ?", linkID).
		Order("accessed_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&logs).Error
	return logs, err
}

func (r *publicReportRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PublicReportLink{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

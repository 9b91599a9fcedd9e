package repository

import (
	"context"
	"time"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
)

// DashboardRepository runs the aggregate queries behind the dashboards.
// A nil userID covers every broker.
type DashboardRepository interface {
	CountProjections(ctx context.Context, userID *uint) (int64, error)
	CountClients(ctx context.Context, userID *uint) (int64, error)
	CountProperties(ctx context.Context, userID *uint) (int64, error)
	ProjectionResults(ctx context.Context, userID *uint) ([]models.Projection, error)
	RecentProjections(ctx context.Context, userID *uint, limit int) ([]models.Projection, error)
	ProjectionsByStatus(ctx context.Context) (map[string]int64, error)
	ProjectionCountsByUser(ctx context.Context, userIDs []uint) (map[uint]int64, error)
	CountUsers(ctx context.Context) (UserCounts, error)
	CountUsersActiveSince(ctx context.Context, since time.Time) (int64, error)
	CountActiveReportLinks(ctx context.Context, now time.Time) (int64, error)
}

// UserCounts splits accounts by role and status
type UserCounts struct {
	Total    int64
	Active   int64
	Admins   int64
	Brokers  int64
	NewMonth int64
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func ownedBy(db *gorm.DB, column string, userID *uint) *gorm.DB {
	if userID != nil {
		return db.Where(column+" = ?", *userID)
	}
	return db
}

func (r *dashboardRepository) CountProjections(ctx context.Context, userID *uint) (int64, error) {
	var count int64
	err := ownedBy(r.db.WithContext(ctx).Model(&models.Projection{}), "usuario_id", userID).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountClients(ctx context.Context, userID *uint) (int64, error) {
	var count int64
	err := ownedBy(r.db.WithContext(ctx).Model(&models.Client{}), "user_id", userID).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountProperties(ctx context.Context, userID *uint) (int64, error) {
	var count int64
	err := ownedBy(r.db.WithContext(ctx).Model(&models.Property{}), "user_id", userID).Count(&count).Error
	return count, err
}

// ProjectionResults loads only the strategy and result columns
func (r *dashboardRepository) ProjectionResults(ctx context.Context, userID *uint) ([]models.Projection, error) {
	var projections []models.Projection
	db := r.db.WithContext(ctx).
		Select("id", "usuario_id", "estrategias", "resultados_calculo")
	err := ownedBy(db, "usuario_id", userID).Find(&projections).Error
	return projections, err
}

func (r *dashboardRepository) RecentProjections(ctx context.Context, userID *uint, limit int) ([]models.Projection, error) {
	var projections []models.Projection
	db := r.db.WithContext(ctx).Preload("Client").Preload("Property").
		Order("data_criacao DESC").Limit(limit)
	err := ownedBy(db, "usuario_id", userID).Find(&projections).Error
	return projections, err
}

func (r *dashboardRepository) ProjectionsByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Projection{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := map[string]int64{
		models.ProjectionStatusDraft:     0,
		models.ProjectionStatusPublished: 0,
		models.ProjectionStatusArchived:  0,
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *dashboardRepository) ProjectionCountsByUser(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		UserID uint
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Projection{}).
		Select("usuario_id AS user_id, COUNT(*) AS count").
		Where("usuario_id IN ?", userIDs).
		Group("usuario_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.Count
	}
	return out, nil
}

func (r *dashboardRepository) CountUsers(ctx context.Context) (UserCounts, error) {
	var counts UserCounts
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).Where("discarded_at IS NULL")
	}

	if err := base().Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := base().Where("status = ?", models.StatusActive).Count(&counts.Active).Error; err != nil {
		return counts, err
	}
	if err := base().Where("role = ?", models.RoleAdmin).Count(&counts.Admins).Error; err != nil {
		return counts, err
	}
	if err := base().Where("role = ?", models.RoleBroker).Count(&counts.Brokers).Error; err != nil {
		return counts, err
	}
	monthAgo := time.Now().AddDate(0, -1, 0)
	if err := base().Where("created_at >= ?", monthAgo).Count(&counts.NewMonth).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func (r *dashboardRepository) CountUsersActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("discarded_at IS NULL AND last_active_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountActiveReportLinks(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PublicReportLink{}).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"errors"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"gorm.io/gorm"
)

// ProjectionRepository defines the interface for projection data access.
// Calculation rows are always written together with their projection.
type ProjectionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Projection, error)
	Calculations(ctx context.Context, projectionID uint, scenario projection.Scenario) ([]models.ProjectionCalculation, error)
	Create(ctx context.Context, p *models.Projection, calcs []models.ProjectionCalculation) error
	Replace(ctx context.Context, p *models.Projection, calcs []models.ProjectionCalculation) error
	UpdateStatus(ctx context.Context, p *models.Projection) error
	Delete(ctx context.Context, id uint) error
	DeleteCalculations(ctx context.Context, projectionID uint) (int64, error)
	List(ctx context.Context, query *ProjectionQuery) ([]models.Projection, int64, error)
	FindByCorrectionIndex(ctx context.Context, indexType string) ([]models.Projection, error)
}

// ProjectionQuery extends ListQuery with projection-specific filters
type ProjectionQuery struct {
	*ListQuery
	UserID     uint
	IsAdmin    bool
	Status     string
	ClientID   uint
	PropertyID uint
}

type projectionRepository struct {
	db *gorm.DB
}

// NewProjectionRepository creates a new projection repository
func NewProjectionRepository(db *gorm.DB) ProjectionRepository {
	return &projectionRepository{db: db}
}

// projectionOwnColumns are the columns that never change after creation.
var projectionOwnColumns = []string{"id", "usuario_id", "user_sequential_id", "data_criacao"}

func (r *projectionRepository) FindByID(ctx context.Context, id uint) (*models.Projection, error) {
	var p models.Projection
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Property").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectionRepository) Calculations(ctx context.Context, projectionID uint, scenario projection.Scenario) ([]models.ProjectionCalculation, error) {
	var calcs []models.ProjectionCalculation
	db := r.db.WithContext(ctx).Where("projection_id = ?", projectionID)
	if scenario != "" {
		db = db.Where("scenario = ?", scenario)
	}
	err := db.Order("mes ASC").Find(&calcs).Error
	return calcs, err
}

// Create inserts the projection and its calculation rows in one transaction,
// assigning the next per-user sequential id.
func (r *projectionRepository) Create(ctx context.Context, p *models.Projection, calcs []models.ProjectionCalculation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequentialID(tx, &models.Projection{}, "usuario_id", p.UserID)
		if err != nil {
			return err
		}
		p.UserSequentialID = seq

		if err := tx.Omit("Client", "Property", "Calculations").Create(p).Error; err != nil {
			return err
		}
		return insertCalculations(tx, p.ID, calcs)
	})
}

// Replace overwrites every mutable column of an existing projection and swaps
// its calculation rows. The row keeps its ID; on any failure nothing changes.
func (r *projectionRepository) Replace(ctx context.Context, p *models.Projection, calcs []models.ProjectionCalculation) error {
	if p.ID == 0 {
		return errors.New("replace requires a persisted projection")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		omit := append([]string{"Client", "Property", "Calculations"}, projectionOwnColumns...)
		res := tx.Model(&models.Projection{}).
			Where("id = ?", p.ID).
			Select("*").
			Omit(omit...).
			Updates(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("projection_id = ?", p.ID).Delete(&models.ProjectionCalculation{}).Error; err != nil {
			return err
		}
		return insertCalculations(tx, p.ID, calcs)
	})
}

func insertCalculations(tx *gorm.DB, projectionID uint, calcs []models.ProjectionCalculation) error {
	if len(calcs) == 0 {
		return nil
	}
	for i := range calcs {
		calcs[i].ProjectionID = projectionID
	}
	return tx.CreateInBatches(calcs, 200).Error
}

func (r *projectionRepository) UpdateStatus(ctx context.Context, p *models.Projection) error {
	return r.db.WithContext(ctx).
		Model(&models.Projection{}).
		Where("id = ?", p.ID).
		Select("status", "data_publicacao", "data_arquivamento").
		Updates(map[string]interface{}{
			"status":            p.Status,
			"data_publicacao":   p.PublishedAt,
			"data_arquivamento": p.ArchivedAt,
		}).Error
}

// Delete removes the projection with its calculation rows, share links and their access logs.
func (r *projectionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := tx.Model(&models.PublicReportLink{}).Select("id").Where("projection_id = ?", id)
		if err := tx.Where("public_report_link_id IN (?)", links).Delete(&models.PublicReportAccessLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("projection_id = ?", id).Delete(&models.PublicReportLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("projection_id = ?", id).Delete(&models.ProjectionCalculation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Projection{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *projectionRepository) DeleteCalculations(ctx context.Context, projectionID uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("projection_id = ?", projectionID).Delete(&models.ProjectionCalculation{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Model(&models.Projection{}).
			Where("id = ?", projectionID).
			Updates(map[string]interface{}{"resultados_calculo": nil, "data_calculo": nil}).Error
	})
	return deleted, err
}

func (r *projectionRepository) List(ctx context.Context, query *ProjectionQuery) ([]models.Projection, int64, error) {
	var projections []models.Projection
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Projection{})

	if !query.IsAdmin && query.UserID > 0 {
		db = db.Where("projections.usuario_id = ?", query.UserID)
	}
	if query.Status != "" {
		db = db.Where("projections.status = ?", query.Status)
	}
	if query.ClientID > 0 {
		db = db.Where("projections.cliente_id = ?", query.ClientID)
	}
	if query.PropertyID > 0 {
		db = db.Where("projections.imovel_id = ?", query.PropertyID)
	}

	// JOINs only for filtering; associations are preloaded below
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN clients ON clients.id = projections.cliente_id").
			Joins("LEFT JOIN properties ON properties.id = projections.imovel_id").
			Where("LOWER(projections.titulo) LIKE LOWER(?) OR LOWER(clients.name) LIKE LOWER(?) OR LOWER(properties.name) LIKE LOWER(?)",
				search, search, search)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.apply(db.Preload("Client").Preload("Property"), "projections.data_criacao", projectionSortColumns).
		Find(&projections).Error
	return projections, total, err
}

var projectionSortColumns = map[string]string{
	"created_at":  "projections.data_criacao",
	"updated_at":  "projections.data_atualizacao",
	"title":       "projections.titulo",
	"list_price":  "projections.valor_tabela",
	"status":      "projections.status",
	"calculated":  "projections.data_calculo",
	"sequence_id": "projections.user_sequential_id",
}

// FindByCorrectionIndex returns the non-archived projections whose correction follows indexType.
func (r *projectionRepository) FindByCorrectionIndex(ctx context.Context, indexType string) ([]models.Projection, error) {
	var projections []models.Projection
	err := r.db.WithContext(ctx).
		Where("(indice_correcao = ? OR indice_correcao_apos_chaves = ?) AND status <> ?",
			indexType, indexType, models.ProjectionStatusArchived).
		Find(&projections).Error
	return projections, err
}

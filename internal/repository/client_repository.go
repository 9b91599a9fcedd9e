package repository

import (
	"context"

	"github.com/sjperalta/roimob-api/internal/models"
	"gorm.io/gorm"
)

// ClientRepository defines the interface for client data access.
// Every lookup is scoped to the owning broker.
type ClientRepository interface {
	FindByID(ctx context.Context, userID, id uint) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint, query *ListQuery) ([]models.Client, int64, error)
	CountProjections(ctx context.Context, clientID uint) (int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, userID, id uint) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// Create assigns the next per-user sequential id and inserts the client in one transaction.
func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequentialID(tx, &models.Client{}, "user_id", client.UserID)
		if err != nil {
			return err
		}
		client.UserSequentialID = seq
		return tx.Omit("User").Create(client).Error
	})
}

func (r *clientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Omit("User").Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *clientRepository) List(ctx context.Context, userID uint, query *ListQuery) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR phone LIKE ?",
			search, search, search)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.apply(db, "created_at", clientSortColumns).Find(&clients).Error
	return clients, total, err
}

func (r *clientRepository) CountProjections(ctx context.Context, clientID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Projection{}).
		Where("cliente_id = ?", clientID).
		Count(&n).Error
	return n, err
}

var clientSortColumns = map[string]string{
	"created_at":         "created_at",
	"name":               "name",
	"user_sequential_id": "user_sequential_id",
}

// nextSequentialID returns MAX(user_sequential_id)+1 for the owner, read inside tx.
func nextSequentialID(tx *gorm.DB, model interface{}, ownerColumn string, ownerID uint) (uint, error) {
	var max uint
	err := tx.Model(model).
		Where(ownerColumn+" = ?", ownerID).
		Select("COALESCE(MAX(user_sequential_id), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

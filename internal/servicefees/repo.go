package servicefees

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
)

// Repository persists platform commission rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, fee *models.ServiceFee) error
	Update(ctx context.Context, fee *models.ServiceFee) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceFee, error)
	List(ctx context.Context) ([]models.ServiceFee, error)
	FindActive(ctx context.Context) (*models.ServiceFee, error)
	DeactivateAll(ctx context.Context) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, fee *models.ServiceFee) error {
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(fee).Error
}

func (r *repository) Update(ctx context.Context, fee *models.ServiceFee) error {
	return r.db.WithContext(ctx).Save(fee).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ServiceFee{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceFee, error) {
	var fee models.ServiceFee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fee).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *repository) List(ctx context.Context) ([]models.ServiceFee, error) {
	var rows []models.ServiceFee
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindActive(ctx context.Context) (*models.ServiceFee, error) {
	var fee models.ServiceFee
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&fee).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *repository) DeactivateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceFee{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

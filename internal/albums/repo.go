package albums

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

// Repository persists albums and their photos.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)

	Create(ctx context.Context, album *models.Album) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Album, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Album, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Album, error)
	FindByShareToken(ctx context.Context, token string) (*models.Album, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPhotographer(ctx context.Context, photographerID uuid.UUID, params pagination.Params) ([]models.Album, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Album, error)

	AddPhotos(ctx context.Context, photos []models.AlbumPhoto) error
	ListPhotos(ctx context.Context, albumID uuid.UUID) ([]models.AlbumPhoto, error)
	CountRawPhotos(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) (int64, error)
	ClearSelection(ctx context.Context, albumID uuid.UUID) error
	SelectPhoto(ctx context.Context, albumID, photoID uuid.UUID, note *string) error
	DeletePhoto(ctx context.Context, albumID, photoID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the album repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, album *models.Album) error {
	if album.ID == uuid.Nil {
		album.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(album).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	var album models.Album
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&album).Error
	if err != nil {
		return nil, err
	}
	return &album, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

func (r *repository) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Album, error) {
	var album models.Album
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&album).Error
	if err != nil {
		return nil, err
	}
	return &album, nil
}

func (r *repository) FindByShareToken(ctx context.Context, token string) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Album{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the album; photos go with it through the foreign key.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Album{}).Error
}

func (r *repository) ListByPhotographer(ctx context.Context, photographerID uuid.UUID, params pagination.Params) ([]models.Album, error) {
	return r.list(ctx, "photographer_id = ?", photographerID, params)
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Album, error) {
	return r.list(ctx, "customer_id = ?", customerID, params)
}

func (r *repository) list(ctx context.Context, where string, owner uuid.UUID, params pagination.Params) ([]models.Album, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&models.Album{}).Where(where, owner)
	var rows []models.Album
	err = pagination.Keyset(query, cursor, params.Limit).
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Find(&rows).Error
	return rows, err
}

func (r *repository) AddPhotos(ctx context.Context, photos []models.AlbumPhoto) error {
	if len(photos) == 0 {
		return nil
	}
	for i := range photos {
		if photos[i].ID == uuid.Nil {
			photos[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&photos).Error
}

func (r *repository) ListPhotos(ctx context.Context, albumID uuid.UUID) ([]models.AlbumPhoto, error) {
	var rows []models.AlbumPhoto
	err := r.db.WithContext(ctx).
		Where("album_id = ?", albumID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountRawPhotos(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AlbumPhoto{}).
		Where("album_id = ? AND kind = ? AND id IN ?", albumID, enums.PhotoKindRaw, ids).
		Count(&count).Error
	return count, err
}

func (r *repository) ClearSelection(ctx context.Context, albumID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.AlbumPhoto{}).
		Where("album_id = ? AND is_selected = ?", albumID, true).
		Updates(map[string]any{"is_selected": false, "customer_note": nil}).Error
}

func (r *repository) SelectPhoto(ctx context.Context, albumID, photoID uuid.UUID, note *string) error {
	return r.db.WithContext(ctx).
		Model(&models.AlbumPhoto{}).
		Where("album_id = ? AND id = ?", albumID, photoID).
		Updates(map[string]any{"is_selected": true, "customer_note": note}).Error
}

func (r *repository) DeletePhoto(ctx context.Context, albumID, photoID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("album_id = ? AND id = ?", albumID, photoID).
		Delete(&models.AlbumPhoto{})
	return result.RowsAffected > 0, result.Error
}

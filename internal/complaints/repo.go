package complaints

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

var openStatuses = enums.OpenComplaintStatuses

// Filter narrows complaint listings.
type Filter struct {
	Status     *enums.ComplaintStatus
	CustomerID *uuid.UUID
}

// Repository persists complaints.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	HasOpen(ctx context.Context, orderID uuid.UUID) (bool, error)
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	UpdateIf(ctx context.Context, id uuid.UUID, expected []enums.ComplaintStatus, updates map[string]any) (bool, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Complaint, error)
	AlbumInfo(ctx context.Context, orderID uuid.UUID) (*AlbumInfo, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the complaint repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HasOpen(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("order_id = ? AND status IN ?", orderID, openStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&complaint).Error
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// UpdateIf applies updates while the complaint is in one of expected.
func (r *repository) UpdateIf(ctx context.Context, id uuid.UUID, expected []enums.ComplaintStatus, updates map[string]any) (bool, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Complaint, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&models.Complaint{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	var rows []models.Complaint
	err = pagination.Keyset(query, cursor, params.Limit).Find(&rows).Error
	return rows, err
}

// AlbumInfo summarizes the delivered album of an order, or nil when none exists.
func (r *repository) AlbumInfo(ctx context.Context, orderID uuid.UUID) (*AlbumInfo, error) {
	var album models.Album
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Limit(1).Find(&album).Error
	if err != nil {
		return nil, err
	}
	if album.ID == uuid.Nil {
		return nil, nil
	}
	var counts struct {
		RawCount    int64 `gorm:"column:raw_count"`
		EditedCount int64 `gorm:"column:edited_count"`
	}
	err = r.db.WithContext(ctx).
		Model(&models.AlbumPhoto{}).
		Select("COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS raw_count, "+
			"COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS edited_count",
			enums.PhotoKindRaw, enums.PhotoKindEdited).
		Where("album_id = ?", album.ID).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &AlbumInfo{
		AlbumID:     album.ID,
		Status:      album.Status,
		ShareToken:  album.ShareToken,
		FinalizedAt: album.FinalizedAt,
		RawCount:    int(counts.RawCount),
		EditedCount: int(counts.EditedCount),
	}, nil
}

package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

// busyStatuses hold the photographer's calendar slot.
var busyStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusConfirmed,
	enums.OrderStatusInProgress,
	enums.OrderStatusWaitingFinalPayment,
	enums.OrderStatusFinalPaymentPending,
	enums.OrderStatusProcessing,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("order_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf applies updates only while the order is still in expected.
// It reports false when another writer moved the order first.
func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AppendHistory(ctx context.Context, row *models.OrderStatusHistory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PhotographerID != nil {
		query = query.Where("photographer_id = ?", *filter.PhotographerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Settlement != nil {
		query = query.Where("settlement_status = ?", *filter.Settlement)
	}

	var rows []models.Order
	err = pagination.Keyset(query, cursor, params.Limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListForStats(ctx context.Context, photographerID *uuid.UUID, since *time.Time) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status <> ?", enums.OrderStatusCancelled)
	if photographerID != nil {
		query = query.Where("photographer_id = ?", *photographerID)
	}
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	var rows []models.Order
	err := query.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) HasSlotConflict(ctx context.Context, photographerID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("photographer_id = ?", photographerID).
		Where("status IN ?", busyStatuses).
		Where("booking_start < ? AND booking_end > ?", end.UTC(), start.UTC()).
		Count(&count).Error
	return count > 0, err
}

// FindAutoCompletable returns delivered orders older than the cutoff that have
// no pending or negotiating complaint.
func (r *repository) FindAutoCompletable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("delivered_at IS NOT NULL AND delivered_at <= ?", deliveredBefore.UTC()).
		Scopes(db.WithoutOpenComplaint).
		Order("delivered_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// HasOpenComplaint reports whether a pending or negotiating complaint holds the order.
func (r *repository) HasOpenComplaint(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("order_id = ? AND status IN ?", orderID, enums.OpenComplaintStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at <= ?", enums.OrderStatusPendingPayment, createdBefore.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindPackage(ctx context.Context, id uuid.UUID) (*models.ServicePackage, error) {
	var pkg models.ServicePackage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) AdjustBookedCount(ctx context.Context, packageID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	query := r.db.WithContext(ctx).Model(&models.ServicePackage{}).Where("id = ?", packageID)
	if delta < 0 {
		query = query.Where("booked_count >= ?", -delta)
	}
	return query.UpdateColumn("booked_count", gorm.Expr("booked_count + ?", delta)).Error
}

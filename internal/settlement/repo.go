package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

// earningExpr is the photographer payout of a completed order.
const earningExpr = "COALESCE(photographer_earning, final_amount - platform_fee_amount)"

// Filter narrows settlement listings.
type Filter struct {
	Settlement     enums.SettlementFilter
	PhotographerID *uuid.UUID
}

// Repository reads and settles completed orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkSettled(ctx context.Context, id uuid.UUID, settledBy *uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Order, error)
	Totals(ctx context.Context, photographerID *uuid.UUID) ([]StatusTotal, error)
}

// StatusTotal aggregates completed orders sharing a settlement status.
type StatusTotal struct {
	SettlementStatus enums.SettlementStatus `gorm:"column:settlement_status"`
	Count            int64                  `gorm:"column:count"`
	Amount           int64                  `gorm:"column:amount"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the settlement repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkSettled flips an unsettled completed order to paid. It reports false
// when the order is missing, not completed, already settled or disputed.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, settledBy *uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND settlement_status <> ?", id, enums.OrderStatusCompleted, enums.SettlementStatusPaid).
		Scopes(db.WithoutOpenComplaint).
		Updates(map[string]any{
			"settlement_status": enums.SettlementStatusPaid,
			"settled_at":        at,
			"settled_by":        settledBy,
			"updated_at":        at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusCompleted)
	switch filter.Settlement {
	case enums.SettlementFilterSettled:
		query = query.Where("settlement_status = ?", enums.SettlementStatusPaid)
	case enums.SettlementFilterUnsettled:
		query = query.Where("settlement_status <> ?", enums.SettlementStatusPaid)
	}
	if filter.PhotographerID != nil {
		query = query.Where("photographer_id = ?", *filter.PhotographerID)
	}

	var rows []models.Order
	err = pagination.Keyset(query, cursor, params.Limit).Find(&rows).Error
	return rows, err
}

func (r *repository) Totals(ctx context.Context, photographerID *uuid.UUID) ([]StatusTotal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("settlement_status, COUNT(*) AS count, COALESCE(SUM(" + earningExpr + "), 0) AS amount").
		Where("status = ?", enums.OrderStatusCompleted)
	if photographerID != nil {
		query = query.Where("photographer_id = ?", *photographerID)
	}
	var rows []StatusTotal
	err := query.Group("settlement_status").Scan(&rows).Error
	return rows, err
}

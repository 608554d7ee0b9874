package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/repo"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// Repository persists ledger rows. Rows are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	SumByType(ctx context.Context, orderID uuid.UUID) (map[enums.LedgerEventType]int64, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.DB(ctx).Create(event).Error
}

// ListByOrderID returns rows oldest first.
func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	events := []models.LedgerEvent{}
	err := r.DB(ctx).
		Where(&models.LedgerEvent{OrderID: orderID}).
		Order("created_at, id").
		Find(&events).Error
	return events, err
}

type typeTotal struct {
	Type  enums.LedgerEventType
	Total int64
}

// SumByType totals the order's rows per movement type. Types with no rows
// are absent from the map.
func (r *repository) SumByType(ctx context.Context, orderID uuid.UUID) (map[enums.LedgerEventType]int64, error) {
	var rows []typeTotal
	if err := r.DB(ctx).
		Model(&models.LedgerEvent{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("order_id = ?", orderID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.LedgerEventType]int64, len(rows))
	for _, row := range rows {
		out[row.Type] = row.Total
	}
	return out, nil
}

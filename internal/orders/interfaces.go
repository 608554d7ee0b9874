package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
	AppendHistory(ctx context.Context, row *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, error)
	ListForStats(ctx context.Context, photographerID *uuid.UUID, since *time.Time) ([]models.Order, error)
	HasSlotConflict(ctx context.Context, photographerID uuid.UUID, start, end time.Time) (bool, error)
	FindAutoCompletable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error)
	HasOpenComplaint(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
	FindPackage(ctx context.Context, id uuid.UUID) (*models.ServicePackage, error)
	AdjustBookedCount(ctx context.Context, packageID uuid.UUID, delta int) error
}

// ListFilter narrows order lists. Nil fields are ignored.
type ListFilter struct {
	CustomerID     *uuid.UUID
	PhotographerID *uuid.UUID
	Status         *enums.OrderStatus
	Settlement     *enums.SettlementStatus
}

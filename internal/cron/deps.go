package cron

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/complaints"
	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
)

// defaultBatchSize caps how many orders one job run touches.
const defaultBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderTransitioner interface {
	TransitionTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input orders.TransitionInput) (*models.Order, error)
}

// ComplaintChecker adapts the complaints repository to the auto-complete job.
type ComplaintChecker struct {
	Repo complaints.Repository
}

// HasOpenTx reports whether the order has a pending or negotiating complaint.
func (c ComplaintChecker) HasOpenTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return c.Repo.WithTx(tx).HasOpen(ctx, orderID)
}

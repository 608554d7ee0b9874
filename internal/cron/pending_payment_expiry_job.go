package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
)

const defaultPendingPaymentTTL = 48 * time.Hour

// PendingPaymentExpiryJobParams configure the unpaid booking expiry job.
type PendingPaymentExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Reader    pendingPaymentReader
	Orders    orderTransitioner
	Metrics   *metrics.CronJobMetrics
	TTL       time.Duration
	BatchSize int
}

type pendingPaymentReader interface {
	FindExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}

// NewPendingPaymentExpiryJob builds the job that cancels bookings whose deposit never arrived.
func NewPendingPaymentExpiryJob(params PendingPaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingPaymentTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &pendingPaymentExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		reader:  params.Reader,
		orders:  params.Orders,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type pendingPaymentExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	reader  pendingPaymentReader
	orders  orderTransitioner
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *pendingPaymentExpiryJob) Name() string { return "pending-payment-expiry" }

func (j *pendingPaymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.reader.FindExpiredPendingPayment(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query expired pending-payment orders: %w", err)
	}

	var errs error
	cancelled := 0
	for _, order := range expired {
		if err := j.cancel(ctx, order.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderCode, err))
			continue
		}
		cancelled++
	}
	if j.metrics != nil {
		j.metrics.AddAffected(j.Name(), cancelled)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"expired":   len(expired),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "pending payment expiry loop complete")
	return errs
}

func (j *pendingPaymentExpiryJob) cancel(ctx context.Context, orderID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := j.orders.TransitionTx(ctx, tx, auth.SystemActor(), orders.TransitionInput{
			OrderID:         orderID,
			RequestedStatus: enums.OrderStatusCancelled,
			Note:            fmt.Sprintf("deposit not received within %s", j.ttl),
		})
		return err
	})
}

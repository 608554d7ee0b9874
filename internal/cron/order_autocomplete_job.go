package cron

import (
	"context"
	"errors"
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

const defaultAutoCompleteAfter = 72 * time.Hour

var errComplaintOpened = errors.New("complaint opened")

// OrderAutoCompleteJobParams configure the delivered-order completion job.
type OrderAutoCompleteJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Reader     autoCompleteReader
	Complaints openComplaintChecker
	Orders     orderTransitioner
	Metrics    *metrics.CronJobMetrics
	After      time.Duration
	BatchSize  int
}

type autoCompleteReader interface {
	FindAutoCompletable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error)
}

// openComplaintChecker is evaluated inside the transition transaction, after
// the order row is locked, so a complaint filed between the scan and the
// update keeps the order in delivered.
type openComplaintChecker interface {
	HasOpenTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

// NewOrderAutoCompleteJob builds the job that completes delivered orders the
// customer never confirmed.
func NewOrderAutoCompleteJob(params OrderAutoCompleteJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Complaints == nil {
		return nil, fmt.Errorf("complaint checker required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	after := params.After
	if after <= 0 {
		after = defaultAutoCompleteAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &orderAutoCompleteJob{
		logg:       params.Logger,
		db:         params.DB,
		reader:     params.Reader,
		complaints: params.Complaints,
		orders:     params.Orders,
		metrics:    params.Metrics,
		after:      after,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type orderAutoCompleteJob struct {
	logg       *logger.Logger
	db         txRunner
	reader     autoCompleteReader
	complaints openComplaintChecker
	orders     orderTransitioner
	metrics    *metrics.CronJobMetrics
	after      time.Duration
	batch      int
	now        func() time.Time
}

func (j *orderAutoCompleteJob) Name() string { return "order-autocomplete" }

func (j *orderAutoCompleteJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	candidates, err := j.reader.FindAutoCompletable(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query auto-completable orders: %w", err)
	}

	var errs error
	completed, skipped := 0, 0
	for _, order := range candidates {
		err := j.complete(ctx, order.ID)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, errComplaintOpened), errors.Is(err, orders.ErrOrderDisputed):
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderCode, err))
		}
	}
	if j.metrics != nil {
		j.metrics.AddAffected(j.Name(), completed)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(candidates),
		"completed":  completed,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "order auto-complete loop complete")
	return errs
}

func (j *orderAutoCompleteJob) complete(ctx context.Context, orderID uuid.UUID) error {
	note := fmt.Sprintf("auto-completed %s after delivery", j.after)
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := j.orders.TransitionTx(ctx, tx, auth.SystemActor(), orders.TransitionInput{
			OrderID:         orderID,
			RequestedStatus: enums.OrderStatusCompleted,
			Note:            note,
		}); err != nil {
			return err
		}
		open, err := j.complaints.HasOpenTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if open {
			return errComplaintOpened
		}
		return nil
	})
}

package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 90
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Metrics    *metrics.CronJobMetrics
	Retention  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob purges published outbox rows older than the window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newPurgeJob("outbox-retention", params.Logger, params.DB, params.Metrics, params.Retention, outboxRetentionDays,
		func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return params.Repository.DeletePublishedBefore(tx, cutoff)
		})
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Metrics    *metrics.CronJobMetrics
	Retention  int
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob purges read notifications older than the window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newPurgeJob("notification-cleanup", params.Logger, params.DB, params.Metrics, params.Retention, notificationRetentionDays,
		params.Repository.DeleteOlderThan)
}

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// purgeJob deletes rows older than a day-based retention window in one transaction.
type purgeJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	metrics   *metrics.CronJobMetrics
	retention int
	purge     purgeFunc
	now       func() time.Time
}

func newPurgeJob(name string, logg *logger.Logger, db txRunner, m *metrics.CronJobMetrics, retention, fallback int, purge purgeFunc) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &purgeJob{
		name:      name,
		logg:      logg,
		db:        db,
		metrics:   m,
		retention: retention,
		purge:     purge,
		now:       time.Now,
	}, nil
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.retention)
}

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.metrics.AddAffected(j.name, int(deleted))

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "retention purge complete")
	return nil
}

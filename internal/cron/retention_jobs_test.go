package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/notifications"
	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

type fakeOutboxRetentionRepo struct {
	cutoff time.Time
	err    error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 7, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRetentionJobUsesWindow(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     quietLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  14,
	})
	require.NoError(t, err)
	job.(*purgeJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.Equal(t, time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestOutboxRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     quietLogger(),
		DB:         passthroughTx{},
		Repository: &fakeOutboxRetentionRepo{err: errors.New("disk full")},
	})
	require.NoError(t, err)
	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox-retention")
}

func TestNotificationCleanupJobDeletesOnlyOldReadRows(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -120)

	seed := func(createdAt time.Time, read bool) uuid.UUID {
		eventID := uuid.New()
		row := models.Notification{
			ID:        uuid.New(),
			UserID:    user.ID,
			EventID:   &eventID,
			Type:      enums.NotificationTypeOrder,
			Title:     "Order update",
			Message:   "Your booking changed",
			CreatedAt: createdAt,
		}
		if read {
			row.ReadAt = &now
		}
		require.NoError(t, db.Create(&row).Error)
		return row.ID
	}
	oldRead := seed(old, true)
	oldUnread := seed(old, false)
	freshRead := seed(now, true)

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     quietLogger(),
		DB:         sqliteTx{db: db},
		Repository: notifications.NewRepository(db),
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining []uuid.UUID
	require.NoError(t, db.Model(&models.Notification{}).Order("created_at").Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{oldUnread, freshRead}, remaining)
	assert.NotContains(t, remaining, oldRead)
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), DB: passthroughTx{}})
	assert.Error(t, err)
	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{DB: passthroughTx{}, Repository: notifications.NewRepository(nil)})
	assert.Error(t, err)
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
)

type memoryTracker struct {
	seen     map[string]bool
	checkErr error
	deleted  int
}

func newMemoryTracker() *memoryTracker {
	return &memoryTracker{seen: map[string]bool{}}
}

func (m *memoryTracker) MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	key := consumer + ":" + eventID.String()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memoryTracker) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	m.deleted++
	delete(m.seen, consumer+":"+eventID.String())
	return nil
}

type failingRepo struct {
	Repository
}

func (failingRepo) CreateBatch(ctx context.Context, rows []models.Notification) error {
	return errors.New("db down")
}

func newTestConsumer(repo Repository, tracker processedTracker) *Consumer {
	return &Consumer{
		repo:        repo,
		idempotency: tracker,
		logg:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func message(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func TestConsumer_StatusChangeNotifiesBothParties(t *testing.T) {
	db := dbtest.Open(t)
	customer := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	photographer := dbtest.MustCreateUser(t, db, enums.RolePhotographer)
	consumer := newTestConsumer(NewRepository(db), newMemoryTracker())

	eventID := uuid.New()
	msg := message(t, enums.EventOrderStatusChanged, eventID, payloads.OrderStatusChangedEvent{
		OrderID:        uuid.New(),
		OrderCode:      "LB-ABC123",
		CustomerID:     customer.ID,
		PhotographerID: &photographer.ID,
		From:           enums.OrderStatusProcessing,
		To:             enums.OrderStatusDelivered,
		ActorRole:      enums.RoleSystem,
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)

	for _, userID := range []uuid.UUID{customer.ID, photographer.ID} {
		rows := notificationsFor(t, db, userID)
		require.Len(t, rows, 1)
		assert.Equal(t, "Photos delivered", rows[0].Title)
		assert.Equal(t, enums.NotificationTypeOrder, rows[0].Type)
		require.NotNil(t, rows[0].EventID)
		assert.Equal(t, eventID, *rows[0].EventID)
		assert.Contains(t, rows[0].Message, "LB-ABC123")
	}
}

func TestConsumer_DuplicateDeliveryIsSkipped(t *testing.T) {
	db := dbtest.Open(t)
	customer := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	consumer := newTestConsumer(NewRepository(db), newMemoryTracker())

	eventID := uuid.New()
	payload := payloads.AlbumDeliveredEvent{
		AlbumID:        uuid.New(),
		CustomerID:     &customer.ID,
		PhotographerID: uuid.New(),
		EditedCount:    12,
	}
	assert.True(t, consumer.process(context.Background(), message(t, enums.EventAlbumDelivered, eventID, payload)).ack)
	assert.True(t, consumer.process(context.Background(), message(t, enums.EventAlbumDelivered, eventID, payload)).ack)

	rows := notificationsFor(t, db, customer.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.NotificationTypeAlbum, rows[0].Type)
}

func TestConsumer_ComplaintCreatedReachesAdmins(t *testing.T) {
	db := dbtest.Open(t)
	customer := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	photographer := dbtest.MustCreateUser(t, db, enums.RolePhotographer)
	adminA := dbtest.MustCreateUser(t, db, enums.RoleAdmin)
	adminB := dbtest.MustCreateUser(t, db, enums.RoleAdmin)
	consumer := newTestConsumer(NewRepository(db), newMemoryTracker())

	complaintID := uuid.New()
	msg := message(t, enums.EventComplaintCreated, uuid.New(), payloads.ComplaintCreatedEvent{
		ComplaintID:    complaintID,
		OrderID:        uuid.New(),
		CustomerID:     customer.ID,
		PhotographerID: &photographer.ID,
		Reason:         "blurry photos",
	})
	assert.True(t, consumer.process(context.Background(), msg).ack)

	for _, admin := range []uuid.UUID{adminA.ID, adminB.ID} {
		rows := notificationsFor(t, db, admin)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].Link)
		assert.Equal(t, "/complaints/"+complaintID.String(), *rows[0].Link)
	}
	assert.Len(t, notificationsFor(t, db, photographer.ID), 1)
	assert.Empty(t, notificationsFor(t, db, customer.ID))
}

func TestConsumer_UnknownEventAcked(t *testing.T) {
	tracker := newMemoryTracker()
	consumer := newTestConsumer(NewRepository(dbtest.Open(t)), tracker)

	msg := &pubsub.Message{ID: "m1", Data: []byte("{}"), Attributes: map[string]string{"event_type": "payment.ignored"}}
	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, tracker.seen)
}

func TestConsumer_StoreFailureNacksAndForgetsEvent(t *testing.T) {
	tracker := newMemoryTracker()
	consumer := newTestConsumer(failingRepo{}, tracker)

	customer := uuid.New()
	msg := message(t, enums.EventAlbumPhotosUploaded, uuid.New(), payloads.AlbumPhotosUploadedEvent{
		AlbumID:        uuid.New(),
		CustomerID:     &customer,
		PhotographerID: uuid.New(),
		Count:          40,
	})
	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)
	assert.Equal(t, 1, tracker.deleted)
	assert.Empty(t, tracker.seen)
}

func TestConsumer_IdempotencyFailureNacks(t *testing.T) {
	tracker := newMemoryTracker()
	tracker.checkErr = errors.New("redis down")
	consumer := newTestConsumer(NewRepository(dbtest.Open(t)), tracker)

	msg := message(t, enums.EventOrderSettled, uuid.New(), payloads.OrderSettledEvent{OrderID: uuid.New()})
	assert.True(t, consumer.process(context.Background(), msg).nack)
}

func TestComplaintDecidedMessages(t *testing.T) {
	photographer := uuid.New()
	raw, err := json.Marshal(payloads.ComplaintDecidedEvent{
		ComplaintID:        uuid.New(),
		OrderID:            uuid.New(),
		CustomerID:         uuid.New(),
		PhotographerID:     &photographer,
		Status:             enums.ComplaintStatusResolved,
		RefundAmount:       700000,
		PhotographerAmount: 1000000,
		AdminResponse:      "Partial refund approved.",
	})
	require.NoError(t, err)

	drafts, err := complaintDecided(raw)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Complaint resolved", drafts[0].title)
	assert.Contains(t, drafts[0].message, "700000")
	assert.Contains(t, drafts[0].message, "Partial refund approved.")
	assert.Contains(t, drafts[1].message, "1000000")
}

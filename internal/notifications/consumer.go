package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/idempotency"
)

const notificationConsumer = "user-notifications"

type processedTracker interface {
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches domain events and fans them out into per-user notifications.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	builder, ok := builders[eventType]
	if !ok {
		c.logg.Info(logCtx, "skipping event without notifications")
		return processResult{ack: true}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "undecodable envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.MarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	drafts, err := builder(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	rows, err := c.materialize(ctx, eventID, drafts)
	if err == nil {
		err = c.repo.CreateBatch(ctx, rows)
	}
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if forgetErr := c.idempotency.Forget(ctx, notificationConsumer, eventID); forgetErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", forgetErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(rows)), "notifications created")
	return processResult{ack: true}
}

// materialize resolves recipients and drops duplicates so one user gets one row per event.
func (c *Consumer) materialize(ctx context.Context, eventID uuid.UUID, drafts []draft) ([]models.Notification, error) {
	seen := map[uuid.UUID]struct{}{}
	rows := make([]models.Notification, 0, len(drafts))
	add := func(userID uuid.UUID, d draft) {
		if userID == uuid.Nil {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		id := eventID
		rows = append(rows, models.Notification{
			UserID:  userID,
			EventID: &id,
			Type:    d.kind,
			Title:   d.title,
			Message: d.message,
			Link:    stringPtr(d.link),
		})
	}

	for _, d := range drafts {
		if d.admins {
			ids, err := c.repo.AdminIDs(ctx)
			if err != nil {
				return nil, fmt.Errorf("list admins: %w", err)
			}
			for _, id := range ids {
				add(id, d)
			}
			continue
		}
		if d.userID != nil {
			add(*d.userID, d)
		}
	}
	return rows, nil
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

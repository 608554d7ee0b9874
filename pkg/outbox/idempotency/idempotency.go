// Package idempotency records which domain events each consumer has already
// handled so at-least-once pub/sub delivery does not produce duplicate side
// effects.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/instance"
)

// DefaultTTL outlives the pub/sub retention window.
const DefaultTTL = 7 * 24 * time.Hour

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager stores one marker per (consumer, event) pair under
// lb:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store markerStore
	ttl   time.Duration
}

// NewManager returns a Manager whose markers expire after ttl. Zero selects
// DefaultTTL.
func NewManager(store markerStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, fmt.Errorf("idempotency ttl %s is negative", ttl)
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// MarkProcessed claims eventID for consumer. It reports true only for the
// first caller; redeliveries get false and should be acked without work.
func (m *Manager) MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	marker := instance.GetID() + "@" + time.Now().UTC().Format(time.RFC3339)
	first, err := m.store.SetNX(ctx, key, marker, m.ttl)
	if err != nil {
		return false, fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	return first, nil
}

// Forget drops the marker so a redelivery of a failed event is handled again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return fmt.Errorf("forget event %s: %w", eventID, err)
	}
	return nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}

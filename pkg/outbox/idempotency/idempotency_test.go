package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type markerMap struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMarkerMap() *markerMap {
	return &markerMap{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *markerMap) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *markerMap) Del(_ context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *markerMap) IdempotencyKey(scope, id string) string {
	return "lb:idempotency:" + scope + ":" + id
}

func TestMarkProcessedIsFirstWinsPerConsumer(t *testing.T) {
	ctx := context.Background()
	store := newMarkerMap()
	manager, err := NewManager(store, 48*time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	first, err := manager.MarkProcessed(ctx, "user-notifications", eventID)
	require.NoError(t, err)
	assert.True(t, first)

	key := "lb:idempotency:evt:user-notifications:" + eventID.String()
	require.Contains(t, store.values, key)
	assert.Equal(t, 48*time.Hour, store.ttls[key])
	assert.True(t, strings.Contains(store.values[key], "@"))

	first, err = manager.MarkProcessed(ctx, "user-notifications", eventID)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = manager.MarkProcessed(ctx, "audit", eventID)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestForgetReopensEvent(t *testing.T) {
	ctx := context.Background()
	manager, err := NewManager(newMarkerMap(), 0)
	require.NoError(t, err)
	eventID := uuid.New()

	_, err = manager.MarkProcessed(ctx, "user-notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Forget(ctx, "user-notifications", eventID))

	first, err := manager.MarkProcessed(ctx, "user-notifications", eventID)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestManagerErrors(t *testing.T) {
	ctx := context.Background()
	store := newMarkerMap()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.MarkProcessed(ctx, "", uuid.New())
	assert.Error(t, err)
	assert.Error(t, manager.Forget(ctx, "user-notifications", uuid.Nil))

	down := errors.New("redis down")
	store.err = down
	_, err = manager.MarkProcessed(ctx, "user-notifications", uuid.New())
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, manager.Forget(ctx, "user-notifications", uuid.New()), down)
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMarkerMap(), -time.Second)
	assert.Error(t, err)

	manager, err := NewManager(newMarkerMap(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, manager.ttl)
}

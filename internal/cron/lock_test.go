package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	delete(m.ttls, key)
	return true, nil
}

func (m *memoryLockStore) ExpireIfValue(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] != value {
		return false, nil
	}
	m.ttls[key] = ttl
	return true, nil
}

// steal simulates the key expiring and another replica taking it.
func (m *memoryLockStore) steal(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = "other-replica"
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "lb:cron-worker:lock:test", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "lb:cron-worker:lock:test", time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "lb:cron-worker:lock:test", "non-holder must not delete the lock")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockRefreshDetectsLoss(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "lb:lock", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "refresh without acquire")

	_, err = lock.Acquire(ctx)
	require.NoError(t, err)
	ok, err = lock.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	store.steal("lb:lock")
	ok, err = lock.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-replica", store.values["lb:lock"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(newMemoryLockStore(), "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.TTL())
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := m.Get(ctx, key)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-123", userID)
	require.NoError(t, err)
	stored := store.data["sess:access-123"]
	assert.True(t, strings.HasPrefix(stored, userID.String()+"."))
	assert.NotContains(t, stored, token, "only the digest is persisted")

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", userID, token)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)
	_, exists := store.data["sess:access-123"]
	assert.False(t, exists, "old session must be removed")

	ok, err := manager.HasSession(ctx, newAccessID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = manager.Rotate(ctx, "access-123", userID, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token is single use")
}

func TestManagerRotateRejectsMismatchAndBurnsSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	for name, attempt := range map[string]func(token string) (uuid.UUID, string){
		"wrong token": func(string) (uuid.UUID, string) { return userID, "wrong" },
		"wrong user":  func(token string) (uuid.UUID, string) { return uuid.New(), token },
	} {
		t.Run(name, func(t *testing.T) {
			store := newMockStore()
			manager := newTestManager(store)
			token, err := manager.Generate(ctx, "access-9", userID)
			require.NoError(t, err)

			user, presented := attempt(token)
			_, _, err = manager.Rotate(ctx, "access-9", user, presented)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)

			_, _, err = manager.Rotate(ctx, "access-9", userID, token)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a failed redemption consumes the session")
		})
	}
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.HasSession(ctx, " ")
	assert.Error(t, err)
}

func TestManagerPropagatesStoreErrors(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("redis down")
	manager := newTestManager(store)

	_, err := manager.HasSession(context.Background(), "access-1")
	assert.EqualError(t, err, "redis down")

	_, _, err = manager.Rotate(context.Background(), "access-1", uuid.New(), "token")
	assert.EqualError(t, err, "redis down")
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", m.failGet
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) onlyTTL(t *testing.T) time.Duration {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.ttls, 1)
	for _, ttl := range m.ttls {
		return ttl
	}
	return 0
}

type countingHandler struct {
	mu     sync.Mutex
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte(`{"order_code":"LB-0001"}`))
}

func postWithKey(target, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestReplayTTLByRoute(t *testing.T) {
	cases := []struct {
		method string
		target string
		ttl    time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/orders", moneyMovingReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/", moneyMovingReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/8f0c/approve-payment", moneyMovingReplayTTL, true},
		{http.MethodPost, "/api/v1/settlements/8f0c/settle", moneyMovingReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/8f0c/deposit-proof", standardReplayTTL, true},
		{http.MethodPost, "/api/v1/albums/a1/photos", standardReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/8f0c/extra/cancel", 0, false},
		{http.MethodPost, "/api/v1/auth/login", 0, false},
		{http.MethodGet, "/api/v1/orders", 0, false},
	}
	for _, tc := range cases {
		ttl, ok := replayTTL(httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.target)
		assert.Equal(t, tc.ttl, ttl, "%s %s", tc.method, tc.target)
	}
}

func TestIdempotencyRejectsMissingKey(t *testing.T) {
	next := &countingHandler{status: http.StatusCreated}
	rec := httptest.NewRecorder()
	Idempotency(newMemoryIdempotencyStore(), nil)(next).ServeHTTP(rec, postWithKey("/api/v1/complaints", "", `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	assert.Zero(t, next.calls)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusCreated}
	handler := Idempotency(store, nil)(next)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/orders", "book-1", `{"package":"p1"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey("/api/v1/orders", "book-1", `{"package":"p1"}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"order_code":"LB-0001"}`, second.Body.String())

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, moneyMovingReplayTTL, store.onlyTTL(t))
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	next := &countingHandler{status: http.StatusCreated}
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/complaints", "c-1", `{"reason":"late"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/complaints", "c-1", `{"reason":"blurry"}`))

	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
	assert.Equal(t, 1, next.calls)
}

func TestIdempotencyReportsInFlightDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := Idempotency(store, nil)(slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/orders/o1/cancel", "cancel-1", `{}`))
	}()
	<-entered

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/orders/o1/cancel", "cancel-1", `{}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))

	close(release)
	<-done
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusInternalServerError}
	handler := Idempotency(store, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/albums/a1/deliver", "d-1", `{}`))
	next.status = http.StatusOK
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/albums/a1/deliver", "d-1", `{}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, next.calls)
}

func TestIdempotencySurfacesStoreFailure(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(&countingHandler{status: http.StatusOK})
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/albums", "a-1", `{}`))

	store.failGet = errors.New("connection reset")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/albums", "a-1", `{}`))
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
}

func TestIdempotencyIgnoresOtherRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusOK}
	handler := Idempotency(store, nil)(next)

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/orders/travel-quote", "", `{}`))
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, store.values)
}

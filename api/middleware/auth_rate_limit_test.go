package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret123"}`))
	req.RemoteAddr = remote
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestAuthRateLimitReplaysBodyToHandler(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 5, 5)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"khach@lensbook.vn"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("khach@lensbook.vn", "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailWindowIgnoresCaseAndIP(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	emails := []string{"Guest@LensBook.vn", " guest@lensbook.vn", "guest@lensbook.vn"}
	remotes := []string{"10.0.0.1:5000", "10.0.0.2:5000", "10.0.0.3:5000"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, remotes[i]))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))
	}

	for scope := range store.counts {
		assert.NotContains(t, scope, "guest@", "raw email must not be used as a key")
	}
}

func TestAuthRateLimitIPWindowSetsRetryAfter(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", 90*time.Second, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@lensbook.vn", "10.0.0.9:1"))
	assert.Equal(t, http.StatusOK, first.Code)

	second := loginRequest("b@lensbook.vn", "10.0.0.10:1")
	second.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@lensbook.vn", "10.0.0.1:1"))
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("", 0, 1, 1), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@lensbook.vn", "10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.counts)
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lensbook/lensbook-backend/api/responses"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	pkgredis "github.com/lensbook/lensbook-backend/pkg/redis"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKey    = 128
	maxIdempotentBody    = 1 << 20
	inflightClaimTTL     = 2 * time.Minute
	standardReplayTTL    = 24 * time.Hour
	moneyMovingReplayTTL = 7 * 24 * time.Hour
)

// IdempotencyStore is the redis surface the idempotency middleware needs.
type IdempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// idempotentRoutes maps POST route globs to how long a response is replayable.
// Globs use path.Match, so "*" stands for exactly one path segment.
var idempotentRoutes = []struct {
	glob string
	ttl  time.Duration
}{
	{"/api/v1/auth/register", standardReplayTTL},
	{"/api/v1/orders/*/deposit-proof", standardReplayTTL},
	{"/api/v1/orders/*/final-payment-proof", standardReplayTTL},
	{"/api/v1/orders/*/photos", standardReplayTTL},
	{"/api/v1/albums", standardReplayTTL},
	{"/api/v1/albums/*/photos", standardReplayTTL},
	{"/api/v1/complaints", standardReplayTTL},
	{"/api/v1/notifications/*/read", standardReplayTTL},
	{"/api/v1/notifications/read-all", standardReplayTTL},

	{"/api/v1/orders", moneyMovingReplayTTL},
	{"/api/v1/orders/*/approve-payment", moneyMovingReplayTTL},
	{"/api/v1/orders/*/cancel", moneyMovingReplayTTL},
	{"/api/v1/orders/*/confirm-completion", moneyMovingReplayTTL},
	{"/api/v1/settlements/*/settle", moneyMovingReplayTTL},
	{"/api/v1/complaints/*/resolve", moneyMovingReplayTTL},
	{"/api/v1/albums/*/deliver", moneyMovingReplayTTL},
}

// storedResponse is the redis value for a key. While the first request is
// still executing only Fingerprint and Pending are set.
type storedResponse struct {
	Fingerprint string `json:"fp"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the listed POST routes safe to retry. The first request
// with a key claims it, runs, and stores its response; later requests with the
// same key and body get that response replayed. 5xx responses release the
// claim so the client can retry.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, ok := replayTTL(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKey:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(r, body)
			key := store.IdempotencyKey(callerScope(r), clientKey)

			claim, _ := json.Marshal(storedResponse{Fingerprint: fingerprint, Pending: true})
			claimed, err := store.SetNX(ctx, key, string(claim), inflightClaimTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayStored(ctx, logg, w, store, key, fingerprint)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			saveCtx := context.WithoutCancel(ctx)
			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(saveCtx, key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			payload, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(saveCtx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store IdempotencyStore, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	if raw == "" {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if stored.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request"))
		return
	}
	if stored.Pending {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// replayTTL reports whether the request targets an idempotent route.
func replayTTL(r *http.Request) (time.Duration, bool) {
	if r.Method != http.MethodPost {
		return 0, false
	}
	target := requestRoute(r)
	for _, route := range idempotentRoutes {
		if matched, _ := path.Match(route.glob, target); matched {
			return route.ttl, true
		}
	}
	return 0, false
}

// requestRoute prefers chi's matched pattern. Mid-chain that pattern is still
// the mount point ("/api/v1/*"), so fall back to the raw path.
func requestRoute(r *http.Request) string {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			route = pattern
		}
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}

func callerScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), RoleFromContext(ctx), r.URL.Path}, "|")
}

func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lensbook/lensbook-backend/pkg/config"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

const (
	defaultBaseURL              = "https://router.project-osrm.org"
	defaultTimeout              = 3 * time.Second
	earthRadiusKm               = 6371.0
	requestBodyReadLimit  int64 = 1024
)

var errBaseURLRequired = errors.New("osrm base url is required")

// Client queries an OSRM server for driving distances. Outbound calls are
// throttled by a token bucket and bounded by the client timeout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter overrides the outbound rate limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewClient builds the OSRM client from routing config.
func NewClient(cfg config.RoutingConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.OSRMBaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps)))),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// DrivingDistanceKm returns the road distance between two points in kilometres.
func (c *Client) DrivingDistanceKm(ctx context.Context, from, to types.Coordinates) (float64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}
	if !from.Valid() || !to.Valid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "valid coordinates are required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "routing rate limit wait")
	}

	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build route request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute route request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "route request failed")
	}

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode route response")
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeDependency, "no route found (code %q)", body.Code)
	}
	return body.Routes[0].Distance / 1000, nil
}

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(from, to types.Coordinates) float64 {
	lat1 := from.Lat * math.Pi / 180
	lat2 := to.Lat * math.Pi / 180
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLng := (to.Lng - from.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

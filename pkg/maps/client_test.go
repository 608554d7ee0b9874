package maps

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/pkg/config"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

var (
	benThanh = types.Coordinates{Lat: 10.7725, Lng: 106.6980}
	thuDuc   = types.Coordinates{Lat: 10.8494, Lng: 106.7537}
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.RoutingConfig{OSRMBaseURL: "http://osrm.test/", RequestsPerSecond: 100},
		WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func TestDrivingDistanceKm(t *testing.T) {
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"code":"Ok","routes":[{"distance":12345.0,"duration":900}]}`)),
			Header:     http.Header{},
		}, nil
	})

	km, err := client.DrivingDistanceKm(context.Background(), benThanh, thuDuc)
	require.NoError(t, err)
	assert.InDelta(t, 12.345, km, 0.0001)
	assert.True(t, strings.HasPrefix(capturedURL, "http://osrm.test/route/v1/driving/106.698000,10.772500;"))
	assert.Contains(t, capturedURL, "overview=false")
}

func TestDrivingDistanceKmUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("bad gateway")),
			Header:     http.Header{},
		}, nil
	})

	_, err := client.DrivingDistanceKm(context.Background(), benThanh, thuDuc)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestDrivingDistanceKmNoRoute(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"code":"NoRoute","routes":[]}`)),
			Header:     http.Header{},
		}, nil
	})

	_, err := client.DrivingDistanceKm(context.Background(), benThanh, thuDuc)
	assert.Error(t, err)
}

func TestDrivingDistanceKmRejectsInvalidCoordinates(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.DrivingDistanceKm(context.Background(), types.Coordinates{}, thuDuc)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.RoutingConfig{})
	assert.ErrorIs(t, err, errBaseURLRequired)
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(benThanh, benThanh), 1e-9)
	assert.InDelta(t, 10.3, HaversineKm(benThanh, thuDuc), 0.5)
}

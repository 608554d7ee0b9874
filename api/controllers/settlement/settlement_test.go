package settlement

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/api/middleware"
	internalsettlement "github.com/lensbook/lensbook-backend/internal/settlement"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

type stubSettlement struct {
	settled map[uuid.UUID]bool
	filter  enums.SettlementFilter
}

func (s *stubSettlement) Settle(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*internalsettlement.View, error) {
	if s.settled[orderID] {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySettled, "order already settled")
	}
	s.settled[orderID] = true
	return &internalsettlement.View{OrderID: orderID, SettlementStatus: enums.SettlementStatusPaid}, nil
}

func (s *stubSettlement) List(ctx context.Context, actor auth.Actor, filter enums.SettlementFilter, params pagination.Params) (pagination.Page[internalsettlement.View], error) {
	s.filter = filter
	return pagination.Page[internalsettlement.View]{}, nil
}

func (s *stubSettlement) Summary(ctx context.Context, actor auth.Actor) (*internalsettlement.Summary, error) {
	return &internalsettlement.Summary{PendingCount: 2, PendingAmount: 3_400_000}, nil
}

func adminRequest(method, target string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, enums.RoleAdmin)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, routeCtx))
}

func TestSettleTwiceReportsAlreadySettled(t *testing.T) {
	svc := &stubSettlement{settled: map[uuid.UUID]bool{}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	orderID := uuid.New()

	resp := httptest.NewRecorder()
	Settle(svc, logg)(resp, adminRequest(http.MethodPost, "/api/v1/settlements/x/settle", map[string]string{"orderId": orderID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "order settled")

	resp = httptest.NewRecorder()
	Settle(svc, logg)(resp, adminRequest(http.MethodPost, "/api/v1/settlements/x/settle", map[string]string{"orderId": orderID.String()}))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), string(pkgerrors.CodeAlreadySettled))
}

func TestListDefaultsToUnsettled(t *testing.T) {
	svc := &stubSettlement{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	resp := httptest.NewRecorder()
	List(svc, logg)(resp, adminRequest(http.MethodGet, "/api/v1/settlements", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.SettlementFilterUnsettled, svc.filter)

	resp = httptest.NewRecorder()
	List(svc, logg)(resp, adminRequest(http.MethodGet, "/api/v1/settlements?filter=settled", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.SettlementFilterSettled, svc.filter)

	resp = httptest.NewRecorder()
	List(svc, logg)(resp, adminRequest(http.MethodGet, "/api/v1/settlements?filter=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSummary(t *testing.T) {
	resp := httptest.NewRecorder()
	Summary(&stubSettlement{}, nil)(resp, adminRequest(http.MethodGet, "/api/v1/settlements/summary", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"pending_amount":3400000`)
}

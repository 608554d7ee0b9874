package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/paymentmethods"
	"github.com/lensbook/lensbook-backend/internal/servicefees"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type stubFeeService struct {
	servicefees.Service
	created   servicefees.Input
	activated uuid.UUID
	err       error
}

func (s *stubFeeService) Create(ctx context.Context, input servicefees.Input) (*models.ServiceFee, error) {
	s.created = input
	return &models.ServiceFee{ID: uuid.New(), Name: input.Name, Percentage: input.Percentage}, s.err
}

func (s *stubFeeService) Activate(ctx context.Context, id uuid.UUID) (*models.ServiceFee, error) {
	s.activated = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.ServiceFee{ID: id, IsActive: true}, nil
}

func (s *stubFeeService) ActivePercentage(ctx context.Context, tx *gorm.DB) (decimal.NullDecimal, error) {
	return decimal.NullDecimal{}, nil
}

type stubAccountService struct {
	paymentmethods.Service
	public []paymentmethods.PublicView
}

func (s *stubAccountService) ListPublic(ctx context.Context) ([]paymentmethods.PublicView, error) {
	return s.public, nil
}

func TestServiceFeeCreateDecodesPercentage(t *testing.T) {
	svc := &stubFeeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/service-fees", jsonBody(t, map[string]any{
		"name":       "Standard",
		"percentage": "12.5",
	}))
	resp := httptest.NewRecorder()
	ServiceFeeCreate(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, svc.created.Percentage.Equal(decimal.RequireFromString("12.5")))
}

func TestServiceFeeActivate(t *testing.T) {
	id := uuid.New()
	svc := &stubFeeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/service-fees/"+id.String()+"/activate", nil)
	req = addRouteParam(req, "feeId", id.String())
	resp := httptest.NewRecorder()
	ServiceFeeActivate(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, svc.activated)
}

func TestServiceFeeActivateMissing(t *testing.T) {
	svc := &stubFeeService{err: pkgerrors.New(pkgerrors.CodeNotFound, "service fee not found")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/service-fees/x/activate", nil)
	req = addRouteParam(req, "feeId", uuid.NewString())
	resp := httptest.NewRecorder()
	ServiceFeeActivate(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPaymentMethodsPublicReturnsMaskedAccounts(t *testing.T) {
	svc := &stubAccountService{public: []paymentmethods.PublicView{{ID: uuid.New(), FullName: "LENSBOOK JSC", AccountNumber: "******6789", Bank: "Vietcombank", BankBIN: "970436"}}}
	resp := httptest.NewRecorder()
	PaymentMethodsPublic(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "******6789")
}

func TestPaymentMethodCreateValidatesBin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/payment-methods", jsonBody(t, map[string]any{
		"full_name":      "LENSBOOK JSC",
		"account_number": "0123456789",
		"bank":           "Vietcombank",
		"bank_bin":       "97",
	}))
	resp := httptest.NewRecorder()
	PaymentMethodCreate(&stubAccountService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/internal/auth"
	"github.com/lensbook/lensbook-backend/internal/users"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type stubRegisterService struct {
	got *auth.RegisterRequest
	err error
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.got = &req
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Email: req.Email, Role: req.Role}, nil
}

type stubAuthService struct {
	login      *auth.LoginResponse
	refresh    *auth.TokenPair
	err        error
	gotRefresh auth.RefreshRequest
	loggedOut  string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	s.gotRefresh = req
	return s.refresh, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return s.err
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestAuthRegisterSignsIn(t *testing.T) {
	reg := &stubRegisterService{}
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]any{
		"full_name":  "Lan Nguyen",
		"email":      "lan@example.com",
		"password":   "supersecret",
		"role":       "photographer",
		"accept_tos": true,
	}))
	resp := httptest.NewRecorder()
	AuthRegister(reg, svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "access", resp.Header().Get(accessTokenHeader))
	require.NotNil(t, reg.got)
	assert.Equal(t, enums.RolePhotographer, reg.got.Role)
}

func TestAuthRegisterRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]any{
		"full_name": "Lan", "email": "lan@example.com", "password": "supersecret", "role": "customer", "store": "x",
	}))
	resp := httptest.NewRecorder()
	AuthRegister(&stubRegisterService{}, &stubAuthService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAuthRegisterPropagatesConflict(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]any{
		"full_name": "Lan", "email": "lan@example.com", "password": "supersecret", "role": "customer", "accept_tos": true,
	}))
	resp := httptest.NewRecorder()
	AuthRegister(reg, &stubAuthService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestAuthLoginSetsHeader(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", jsonBody(t, map[string]any{
		"email": "lan@example.com", "password": "supersecret",
	}))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "access", resp.Header().Get(accessTokenHeader))
}

func TestAuthLoginUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", jsonBody(t, map[string]any{
		"email": "lan@example.com", "password": "wrong",
	}))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRefreshUsesBearerToken(t *testing.T) {
	svc := &stubAuthService{refresh: &auth.TokenPair{AccessToken: "next", RefreshToken: "rotated"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", jsonBody(t, map[string]any{"refresh_token": "old"}))
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()
	AuthRefresh(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "expired-access", svc.gotRefresh.AccessToken)
	assert.Equal(t, "old", svc.gotRefresh.RefreshToken)
	assert.Equal(t, "next", resp.Header().Get(accessTokenHeader))
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", jsonBody(t, map[string]any{"refresh_token": "old"}))
	resp := httptest.NewRecorder()
	AuthRefresh(&stubAuthService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	resp := httptest.NewRecorder()
	AuthLogout(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "token-1", svc.loggedOut)
}

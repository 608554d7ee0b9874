package albums

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/api/middleware"
	internalalbums "github.com/lensbook/lensbook-backend/internal/albums"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

type stubAlbums struct {
	internalalbums.Service

	uploadedFor uuid.UUID
	photos      []internalalbums.PhotoInput
	selection   []internalalbums.SelectionItem
	deletedID   uuid.UUID
	listedAs    string
	err         error
}

func (s *stubAlbums) UploadPhotos(ctx context.Context, actor auth.Actor, orderID uuid.UUID, files []internalalbums.PhotoInput) (*internalalbums.AlbumView, error) {
	s.uploadedFor = orderID
	s.photos = files
	return &internalalbums.AlbumView{ID: uuid.New(), OrderID: &orderID, Status: enums.AlbumStatusSentToCustomer}, s.err
}

func (s *stubAlbums) SubmitSelection(ctx context.Context, actor auth.Actor, albumID uuid.UUID, items []internalalbums.SelectionItem) (*internalalbums.AlbumView, error) {
	s.selection = items
	if s.err != nil {
		return nil, s.err
	}
	return &internalalbums.AlbumView{ID: albumID, Status: enums.AlbumStatusSelectionCompleted}, nil
}

func (s *stubAlbums) DeleteAlbum(ctx context.Context, actor auth.Actor, albumID uuid.UUID) error {
	s.deletedID = albumID
	return s.err
}

func (s *stubAlbums) ListForPhotographer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[internalalbums.AlbumView], error) {
	s.listedAs = "photographer"
	return pagination.Page[internalalbums.AlbumView]{}, nil
}

func (s *stubAlbums) ListForCustomer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[internalalbums.AlbumView], error) {
	s.listedAs = "customer"
	return pagination.Page[internalalbums.AlbumView]{}, nil
}

func (s *stubAlbums) GetByShareToken(ctx context.Context, token string) (*internalalbums.PublicAlbumView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalalbums.PublicAlbumView{ID: uuid.New(), Title: "Wedding"}, nil
}

type fakeViews struct {
	keys []string
	err  error
}

func (f *fakeViews) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.keys = append(f.keys, key)
	return int64(len(f.keys)), f.err
}

func (f *fakeViews) ShareViewKey(token string) string { return "share:" + token }

func discard() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newRequest(t *testing.T, method string, body any, role enums.Role, params map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/api/v1/albums", reader)
	ctx := req.Context()
	if role != "" {
		ctx = middleware.WithUserID(ctx, uuid.NewString())
		ctx = middleware.WithRole(ctx, role)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, routeCtx))
}

func TestUploadOrderPhotos(t *testing.T) {
	svc := &stubAlbums{}
	orderID := uuid.New()
	resp := httptest.NewRecorder()
	UploadOrderPhotos(svc, discard())(resp, newRequest(t, http.MethodPost, map[string]any{
		"photos": []map[string]string{{"url": "https://cdn.example.com/raw/1.jpg", "filename": "1.jpg"}},
	}, enums.RolePhotographer, map[string]string{"orderId": orderID.String()}))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, orderID, svc.uploadedFor)
	require.Len(t, svc.photos, 1)
}

func TestUploadOrderPhotosRejectsEmptyBatch(t *testing.T) {
	resp := httptest.NewRecorder()
	UploadOrderPhotos(&stubAlbums{}, discard())(resp, newRequest(t, http.MethodPost, map[string]any{
		"photos": []map[string]string{},
	}, enums.RolePhotographer, map[string]string{"orderId": uuid.NewString()}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitSelectionLockedAlbum(t *testing.T) {
	svc := &stubAlbums{err: pkgerrors.New(pkgerrors.CodeStateConflict, "selection already finalized")}
	resp := httptest.NewRecorder()
	SubmitSelection(svc, discard())(resp, newRequest(t, http.MethodPut, map[string]any{
		"items": []map[string]any{{"photo_id": uuid.New(), "note": "brighten"}},
	}, enums.RoleCustomer, map[string]string{"albumId": uuid.NewString()}))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Len(t, svc.selection, 1)
	assert.Equal(t, "brighten", svc.selection[0].Note)
}

func TestDeleteAlbumNoContent(t *testing.T) {
	svc := &stubAlbums{}
	albumID := uuid.New()
	resp := httptest.NewRecorder()
	Delete(svc, discard())(resp, newRequest(t, http.MethodDelete, nil, enums.RolePhotographer, map[string]string{"albumId": albumID.String()}))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, albumID, svc.deletedID)
}

func TestDetailInvalidAlbumID(t *testing.T) {
	resp := httptest.NewRecorder()
	Detail(&stubAlbums{}, discard())(resp, newRequest(t, http.MethodGet, nil, enums.RoleCustomer, map[string]string{"albumId": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListDispatchesByRole(t *testing.T) {
	svc := &stubAlbums{}
	resp := httptest.NewRecorder()
	List(svc, discard())(resp, newRequest(t, http.MethodGet, nil, enums.RolePhotographer, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "photographer", svc.listedAs)

	resp = httptest.NewRecorder()
	List(svc, discard())(resp, newRequest(t, http.MethodGet, nil, enums.RoleCustomer, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "customer", svc.listedAs)

	resp = httptest.NewRecorder()
	List(svc, discard())(resp, newRequest(t, http.MethodGet, nil, enums.RoleAdmin, nil))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestPublicAlbumCountsViews(t *testing.T) {
	views := &fakeViews{}
	resp := httptest.NewRecorder()
	PublicAlbum(&stubAlbums{}, views, discard())(resp, newRequest(t, http.MethodGet, nil, "", map[string]string{"token": "abc123"}))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"share:abc123"}, views.keys)
}

func TestPublicAlbumIgnoresCounterFailure(t *testing.T) {
	views := &fakeViews{err: errors.New("redis down")}
	resp := httptest.NewRecorder()
	PublicAlbum(&stubAlbums{}, views, discard())(resp, newRequest(t, http.MethodGet, nil, "", map[string]string{"token": "abc123"}))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestPublicAlbumUnknownToken(t *testing.T) {
	svc := &stubAlbums{err: pkgerrors.New(pkgerrors.CodeNotFound, "album not found")}
	resp := httptest.NewRecorder()
	PublicAlbum(svc, nil, discard())(resp, newRequest(t, http.MethodGet, nil, "", map[string]string{"token": "missing"}))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
	Error   *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.True(t, body.Success)
	assert.Equal(t, "world", body.Data["hello"])
	assert.Nil(t, body.Error)
}

func TestWriteSuccessMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessMessage(w, http.StatusCreated, "album delivered", map[string]string{"status": "finalized"})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "album delivered", body.Message)
}

func TestWriteErrorSurfacesDomainMessage(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move order from completed to pending").
		WithDetails(map[string]any{"from": "completed", "to": "pending"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "cannot move order from completed to pending", body.Message)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INVALID_TRANSITION", body.Error.Code)
	assert.Equal(t, "completed", body.Error.Details["from"])
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("dial tcp 10.0.0.1:5432: refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal server error", body.Message)
	assert.Contains(t, buf.String(), "request.error")
	assert.Contains(t, buf.String(), "dial tcp")
}

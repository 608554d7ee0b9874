package albums

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lensbook/lensbook-backend/api/responses"
	"github.com/lensbook/lensbook-backend/api/validators"
	internalalbums "github.com/lensbook/lensbook-backend/internal/albums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
)

const shareViewTTL = 30 * 24 * time.Hour

// ViewCounter tracks anonymous share link views. Failures never block the response.
type ViewCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	ShareViewKey(token string) string
}

func shareToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" || len(token) > 128 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "share token is required")
	}
	return token, nil
}

// PublicAlbum serves the album behind a share link without authentication.
func PublicAlbum(svc internalalbums.Service, views ViewCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		token, err := shareToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetByShareToken(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if views != nil {
			if count, err := views.IncrWithTTL(r.Context(), views.ShareViewKey(token), shareViewTTL); err != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "share view counter unavailable")
			} else {
				logg.Debug(logg.WithField(r.Context(), "share_views", count), "share link viewed")
			}
		}
		responses.WriteSuccess(w, view)
	}
}

// PublicSelection lets a freelance client pick photos through the share link.
func PublicSelection(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		token, err := shareToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body selectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SubmitSelectionByToken(r.Context(), token, body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

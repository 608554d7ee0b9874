package albums

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/api/controllers/actorcontext"
	"github.com/lensbook/lensbook-backend/api/responses"
	"github.com/lensbook/lensbook-backend/api/validators"
	internalalbums "github.com/lensbook/lensbook-backend/internal/albums"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

type photosRequest struct {
	Photos []internalalbums.PhotoInput `json:"photos" validate:"required,min=1,max=200,dive"`
}

type detailsRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
}

type selectionRequest struct {
	Items []internalalbums.SelectionItem `json:"items" validate:"required,min=1,dive"`
}

type albumCall func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error)

// withAlbum resolves the caller and the {albumId} route param before invoking call.
func withAlbum(svc internalalbums.Service, logg *logger.Logger, call albumCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		albumID, err := validators.ParseUUIDParam(r, "albumId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r, actor, albumID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UploadOrderPhotos attaches raw photos to the order's album, creating it on first upload.
func UploadOrderPhotos(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body photosRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UploadPhotos(r.Context(), actor, orderID, body.Photos)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// OrderAlbum returns the album attached to an order.
func OrderAlbum(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetByOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// List returns the photographer's albums or the customer's order albums.
func List(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var page pagination.Page[internalalbums.AlbumView]
		switch actor.Role {
		case enums.RolePhotographer:
			page, err = svc.ListForPhotographer(r.Context(), actor, params)
		case enums.RoleCustomer:
			page, err = svc.ListForCustomer(r.Context(), actor, params)
		default:
			err = pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list albums")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// CreateFreelance opens an album for a client outside the marketplace.
func CreateFreelance(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "albums service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body internalalbums.FreelanceInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.CreateFreelance(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func Detail(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, albumID)
	})
}

func UpdateDetails(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		var body detailsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateDetails(r.Context(), actor, albumID, body.Title, body.Description)
	})
}

func Delete(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		return nil, svc.DeleteAlbum(r.Context(), actor, albumID)
	})
}

func AddPhotos(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		var body photosRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddPhotos(r.Context(), actor, albumID, body.Photos)
	})
}

func DeletePhoto(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		photoID, err := validators.ParseUUIDParam(r, "photoId")
		if err != nil {
			return nil, err
		}
		return nil, svc.DeletePhoto(r.Context(), actor, albumID, photoID)
	})
}

// SubmitSelection records the customer's picks and finalizes the album.
func SubmitSelection(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		var body selectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SubmitSelection(r.Context(), actor, albumID, body.Items)
	})
}

// Deliver uploads the edited photos and moves the order to delivered.
func Deliver(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		var body photosRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Deliver(r.Context(), actor, albumID, body.Photos)
	})
}

func CreateShareLink(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		return svc.CreateShareLink(r.Context(), actor, albumID)
	})
}

func RevokeShareLink(svc internalalbums.Service, logg *logger.Logger) http.HandlerFunc {
	return withAlbum(svc, logg, func(r *http.Request, actor auth.Actor, albumID uuid.UUID) (any, error) {
		return nil, svc.RevokeShareLink(r.Context(), actor, albumID)
	})
}

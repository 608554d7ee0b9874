package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/api/controllers/actorcontext"
	"github.com/lensbook/lensbook-backend/api/responses"
	"github.com/lensbook/lensbook-backend/api/validators"
	"github.com/lensbook/lensbook-backend/internal/ledger"
	internalorders "github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

const bookingDateLayout = "2006-01-02"

type createOrderRequest struct {
	ServicePackageID      uuid.UUID      `json:"service_package_id" validate:"required"`
	BookingDate           string         `json:"booking_date" validate:"required"`
	StartTime             string         `json:"start_time" validate:"required"`
	Location              types.Location `json:"location" validate:"required"`
	CustomerNote          *string        `json:"customer_note,omitempty" validate:"omitempty,max=1000"`
	EstimatedDurationDays int            `json:"estimated_duration_days,omitempty" validate:"omitempty,min=1,max=30"`
}

type travelQuoteRequest struct {
	ServicePackageID uuid.UUID          `json:"service_package_id" validate:"required"`
	Coordinates      *types.Coordinates `json:"coordinates,omitempty"`
}

type proofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
}

type noteRequest struct {
	Note string `json:"note,omitempty" validate:"max=1000"`
}

type transitionRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Note   string            `json:"note,omitempty" validate:"max=1000"`
}

type completionRequest struct {
	ReviewRating  *int    `json:"review_rating,omitempty" validate:"omitempty,min=1,max=5"`
	ReviewComment *string `json:"review_comment,omitempty" validate:"omitempty,max=2000"`
}

// Create books a service package for the authenticated customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingDate, err := time.Parse(bookingDateLayout, strings.TrimSpace(body.BookingDate))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "booking_date must be YYYY-MM-DD"))
			return
		}

		view, err := svc.Create(r.Context(), actor, internalorders.CreateOrderInput{
			ServicePackageID:      body.ServicePackageID,
			BookingDate:           bookingDate,
			StartTime:             strings.TrimSpace(body.StartTime),
			Location:              body.Location,
			CustomerNote:          body.CustomerNote,
			EstimatedDurationDays: body.EstimatedDurationDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// QuoteTravelFee previews the travel surcharge for a shoot location.
func QuoteTravelFee(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var body travelQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.QuoteTravelFee(r.Context(), body.ServicePackageID, body.Coordinates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// List returns the caller's orders: own bookings for customers, assigned jobs
// for photographers and every order, filterable, for admins.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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
		status, err := parseStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var page pagination.Page[internalorders.OrderView]
		switch actor.Role {
		case enums.RoleCustomer:
			page, err = svc.ListForCustomer(r.Context(), actor, status, params)
		case enums.RolePhotographer:
			page, err = svc.ListForPhotographer(r.Context(), actor, status, params)
		case enums.RoleAdmin:
			filter, filterErr := buildAdminFilter(r)
			if filterErr != nil {
				responses.WriteError(r.Context(), logg, w, filterErr)
				return
			}
			filter.Status = status
			page, err = svc.ListAll(r.Context(), filter, params)
		default:
			err = pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail accepts either the order uuid or its ORD- code.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}
		view, err := svc.Get(r.Context(), actor, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		entries, err := svc.History(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	})
}

// PaymentQR renders the VietQR image for the requested stage. ?format=json
// returns the transfer details instead of the PNG.
func PaymentQR(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		rawStage := strings.TrimSpace(r.URL.Query().Get("stage"))
		if rawStage == "" {
			rawStage = string(enums.PaymentStageDeposit)
		}
		stage, err := enums.ParsePaymentStage(rawStage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage"))
			return
		}
		qr, err := svc.PaymentQR(r.Context(), actor, orderID, stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Get("format") == "json" {
			responses.WriteSuccess(w, qr)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(qr.PNG)
	})
}

// Stats returns the weekly revenue buckets and lifetime totals visible to the caller.
func Stats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Ledger returns the order's money movements and per-type totals.
func Ledger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stmt, err := svc.Statement(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stmt)
	}
}

func parseStatusFilter(r *http.Request) (*enums.OrderStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	return &status, nil
}

func buildAdminFilter(r *http.Request) (internalorders.ListFilter, error) {
	var filter internalorders.ListFilter
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("customer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer_id")
		}
		filter.CustomerID = &id
	}
	if raw := strings.TrimSpace(q.Get("photographer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid photographer_id")
		}
		filter.PhotographerID = &id
	}
	if raw := strings.TrimSpace(q.Get("settlement_status")); raw != "" {
		value, err := enums.ParseSettlementStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settlement_status")
		}
		filter.Settlement = &value
	}
	return filter, nil
}

type orderHandler func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID)

func withOrder(svc internalorders.Service, logg *logger.Logger, next orderHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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
		next(w, r, actor, orderID)
	}
}

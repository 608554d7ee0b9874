package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/api/responses"
	"github.com/lensbook/lensbook-backend/api/validators"
	internalorders "github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
)

// SubmitDepositProof attaches the customer's deposit transfer receipt.
func SubmitDepositProof(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body proofRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, r, logg)(svc.SubmitDepositProof(r.Context(), actor, orderID, strings.TrimSpace(body.ProofURL)))
	})
}

// SubmitFinalPaymentProof attaches the customer's remaining-balance receipt.
func SubmitFinalPaymentProof(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body proofRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, r, logg)(svc.SubmitFinalPaymentProof(r.Context(), actor, orderID, strings.TrimSpace(body.ProofURL)))
	})
}

// ApprovePayment confirms whichever instalment is awaiting review.
func ApprovePayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		writeOrder(w, r, logg)(svc.ApprovePayment(r.Context(), actor, orderID))
	})
}

// RejectPayment sends the order back to the unpaid state with a reason.
func RejectPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body noteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note := validators.SanitizeNote(body.Note, validators.MaxNoteLength)
		if note == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "note is required when rejecting a payment"))
			return
		}
		writeOrder(w, r, logg)(svc.RejectPayment(r.Context(), actor, orderID, note))
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body noteRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, r, logg)(svc.Cancel(r.Context(), actor, orderID, validators.SanitizeNote(body.Note, validators.MaxNoteLength)))
	})
}

func Start(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		writeOrder(w, r, logg)(svc.Start(r.Context(), actor, orderID))
	})
}

func RequestFinalPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		writeOrder(w, r, logg)(svc.RequestFinalPayment(r.Context(), actor, orderID))
	})
}

// ConfirmCompletion lets the customer accept the delivery, optionally with a review.
func ConfirmCompletion(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body completionRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, r, logg)(svc.ConfirmCompletion(r.Context(), actor, orderID, body.ReviewRating, body.ReviewComment))
	})
}

// Transition is the generic status change used by admin tooling.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor, orderID uuid.UUID) {
		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status"))
			return
		}
		writeOrder(w, r, logg)(svc.Transition(r.Context(), actor, internalorders.TransitionInput{
			OrderID:         orderID,
			RequestedStatus: body.Status,
			Note:            validators.SanitizeNote(body.Note, validators.MaxNoteLength),
		}))
	})
}

func writeOrder(w http.ResponseWriter, r *http.Request, logg *logger.Logger) func(*internalorders.OrderView, error) {
	return func(view *internalorders.OrderView, err error) {
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

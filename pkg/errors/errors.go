package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Booking domain codes.
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeOrderNotCompleted     Code = "ORDER_NOT_COMPLETED"
	CodeAlreadySettled        Code = "ALREADY_SETTLED"
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeAlbumNotFound         Code = "ALBUM_NOT_FOUND"
	CodeInvalidPhotoReference Code = "INVALID_PHOTO_REFERENCE"
	CodeEmptyDelivery         Code = "EMPTY_DELIVERY"
)

// Metadata maps a Code onto its HTTP rendering.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	withDetails
)

func meta(status int, public string, traits ...trait) Metadata {
	m := Metadata{HTTPStatus: status, PublicMessage: public}
	for _, t := range traits {
		m.Retryable = m.Retryable || t&retryable != 0
		m.DetailsAllowed = m.DetailsAllowed || t&withDetails != 0
	}
	return m
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:     meta(http.StatusForbidden, "access denied"),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found"),
	CodeConflict:      meta(http.StatusConflict, "conflict detected"),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", retryable, withDetails),

	CodeInvalidTransition:     meta(http.StatusUnprocessableEntity, "status transition not allowed", withDetails),
	CodeOrderNotCompleted:     meta(http.StatusUnprocessableEntity, "order is not completed", withDetails),
	CodeAlreadySettled:        meta(http.StatusConflict, "order already settled"),
	CodeOrderNotFound:         meta(http.StatusNotFound, "order not found"),
	CodeAlbumNotFound:         meta(http.StatusNotFound, "album not found"),
	CodeInvalidPhotoReference: meta(http.StatusBadRequest, "photo does not belong to album", withDetails),
	CodeEmptyDelivery:         meta(http.StatusBadRequest, "delivery requires at least one photo"),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsClientFacing reports whether the error message is safe to surface verbatim.
func IsClientFacing(code Code) bool {
	switch code {
	case CodeInternal, CodeDependency:
		return false
	}
	_, ok := metadataByCode[code]
	return ok
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Code is nil-safe; a nil *Error reports CodeInternal.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// Newf formats the message like fmt.Sprintf.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given typed code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

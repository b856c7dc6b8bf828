// Package service holds the booking core: the availability calculator,
// the storefront webhook authenticator and the order ingestion pipeline.
// It depends on the store only through small interfaces and reports
// failures with the typed errors defined here.
package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a core failure.
type Kind uint8

const (
	KindValidation       Kind = iota + 1 // bad or missing input
	KindAuthentication                   // webhook signature failure
	KindNotFound                         // unresolvable room
	KindMalformedPayload                 // unparseable body
	KindConflict                         // duplicate storefront order
	KindInternal                         // unexpected store or parsing failure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// HTTPStatus maps a kind to the response status the API uses for it.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindMalformedPayload:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error is the error type returned by the core. Message is safe to show
// to callers; Err carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// ValidationError reports bad or missing caller input.
func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

// NotFoundError reports an unresolvable room.
func NotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

// MalformedPayloadError reports a body that could not be decoded.
func MalformedPayloadError(cause error, format string, args ...any) *Error {
	return newError(KindMalformedPayload, cause, format, args...)
}

// AuthenticationError reports a failed webhook signature check.
func AuthenticationError(format string, args ...any) *Error {
	return newError(KindAuthentication, nil, format, args...)
}

// ConflictError reports a storefront order that was already ingested.
func ConflictError(cause error, format string, args ...any) *Error {
	return newError(KindConflict, cause, format, args...)
}

// InternalError reports an unexpected failure mid-operation.
func InternalError(cause error, format string, args ...any) *Error {
	return newError(KindInternal, cause, format, args...)
}

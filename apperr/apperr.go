// Package apperr carries the error taxonomy shared by the stores, services
// and HTTP handlers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Status is the HTTP status code a handler answers with for this kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) error {
	return newf(KindAuthentication, format, args...)
}

func Authorization(format string, args ...any) error {
	return newf(KindAuthorization, format, args...)
}

func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

func RateLimited(format string, args ...any) error {
	return newf(KindRateLimited, format, args...)
}

// Wrap classifies cause under kind with a client-facing message.
func Wrap(kind Kind, cause error, message string) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Upstream marks a storage or network failure.
func Upstream(cause error, message string) error {
	return Wrap(KindUpstream, cause, message)
}

// KindOf reports the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// IsDuplicateKey reports a Mongo unique index violation (code 11000).
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// FromMongo classifies a raw driver error. ErrNoDocuments becomes NotFound
// with notFoundMsg; duplicate keys become Conflict; the rest is Upstream.
func FromMongo(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return Wrap(KindNotFound, err, notFoundMsg)
	case IsDuplicateKey(err):
		return Wrap(KindConflict, err, "duplicate record")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Upstream(err, "database timeout")
	default:
		return Upstream(err, "database unavailable")
	}
}

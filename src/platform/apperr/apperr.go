// Package apperr defines the closed set of typed error kinds that cross
// every component boundary in the chat pipeline, continuing the
// code/description idiom of platform/perr but for domain-level failures
// instead of POSIX syscalls, and wrapping samber/oops the way platform/perr's
// callers already do.
package apperr

import (
	"errors"

	"github.com/samber/oops"
)

// Kind is the closed set of error kinds from the error handling design.
type Kind string

const (
	InvalidArgument       Kind = "InvalidArgument"
	AuthRequired          Kind = "AuthRequired"
	NotFound              Kind = "NotFound"
	Conflict              Kind = "Conflict"
	RateLimitExceeded     Kind = "RateLimitExceeded"
	Timeout               Kind = "Timeout"
	EventProductionFailed Kind = "EventProductionFailed"
	TransientStoreError   Kind = "TransientStoreError"
	PermanentStoreError   Kind = "PermanentStoreError"
	Cancelled             Kind = "Cancelled"
	Fatal                 Kind = "Fatal"
)

// Descriptions maps each kind to a human-readable summary, mirroring
// platform/perr.Descriptions.
var Descriptions = map[Kind]string{
	InvalidArgument:       "the request failed domain validation",
	AuthRequired:          "the request is missing a valid identity",
	NotFound:              "the requested resource does not exist",
	Conflict:              "the operation conflicts with existing state",
	RateLimitExceeded:     "the sender exceeded its admission rate limit",
	Timeout:               "the operation did not complete in time",
	EventProductionFailed: "the event could not be appended to the log",
	TransientStoreError:   "a storage operation failed transiently and may succeed on retry",
	PermanentStoreError:   "a storage operation failed permanently and will not succeed on retry",
	Cancelled:             "the operation was cancelled",
	Fatal:                 "an unrecoverable error requires the process to restart",
}

// Description returns a human-readable description for a Kind.
func Description(k Kind) string {
	if desc, ok := Descriptions[k]; ok {
		return desc
	}
	return "unknown error"
}

// Error is a typed application error. It carries the cause given by the
// caller; Invalid and RateLimited build that cause with oops, tagged with
// the component that raised it.
type Error struct {
	Kind              Kind
	Field             string // populated for InvalidArgument
	Reason            string // populated for InvalidArgument
	RetryAfterSeconds int64  // populated for RateLimitExceeded
	Cause             error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return Description(e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// New builds a typed error wrapping cause, which may be any error.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Invalid builds an InvalidArgument error carrying the offending field and
// the reason it was rejected, per the Scope Domain Policy contract.
func Invalid(in string, field, reason string) *Error {
	return &Error{
		Kind:   InvalidArgument,
		Field:  field,
		Reason: reason,
		Cause: oops.
			In(in).
			Code(string(InvalidArgument)).
			With("field", field).
			With("reason", reason).
			Errorf("%s: %s", field, reason),
	}
}

// RateLimited builds a RateLimitExceeded error carrying the retry-after
// duration in seconds, as surfaced to clients per §7.
func RateLimited(in string, retryAfterSeconds int64) *Error {
	return &Error{
		Kind:              RateLimitExceeded,
		RetryAfterSeconds: retryAfterSeconds,
		Cause: oops.
			In(in).
			Code(string(RateLimitExceeded)).
			With("retryAfterSeconds", retryAfterSeconds).
			Errorf("sender exceeded rate limit, retry after %ds", retryAfterSeconds),
	}
}

// As is a thin helper over errors.As for extracting a *Error from a
// wrapped chain, used by the Error→Status Mapper (C12).
func As(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and Fatal
// otherwise — an unrecognized error is always treated as the worst case.
func KindOf(err error) Kind {
	if target, ok := As(err); ok {
		return target.Kind
	}
	return Fatal
}

// Package apperr is the error taxonomy shared by every ledger operation.
//
// Each failure carries a Kind that decides how the caller should react:
// fix the input (validation), re-read and retry (conflict, rate_limited,
// unavailable) or restart pagination (invalid_continuation_token).
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindPermission   Kind = "permission"
	KindRateLimited  Kind = "rate_limited"
	KindUnavailable  Kind = "unavailable"
	KindInvalidToken Kind = "invalid_continuation_token"
	KindInternal     Kind = "internal"
)

// Kind satisfies error so callers can match with errors.Is(err, apperr.KindConflict).
func (k Kind) Error() string { return string(k) }

// Retry hints handed to callers when the backend pushes back.
const (
	RateLimitedRetryAfter = 5 * time.Second
	UnavailableRetryAfter = 10 * time.Second
)

type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// ErrStale marks a conditional write that lost to a concurrent writer.
var ErrStale = errors.New("stale aggregate")

// Stale is a conflict caused by a lost optimistic-concurrency race. It can be
// retried after re-reading.
func Stale(format string, args ...any) error {
	e := newf(KindConflict, format, args...)
	e.Err = ErrStale
	return e
}

func Validation(format string, args ...any) error { return newf(KindValidation, format, args...) }
func Conflict(format string, args ...any) error   { return newf(KindConflict, format, args...) }
func NotFound(format string, args ...any) error   { return newf(KindNotFound, format, args...) }
func Permission(format string, args ...any) error { return newf(KindPermission, format, args...) }

func RateLimited(retryAfter time.Duration, cause error) error {
	if retryAfter <= 0 {
		retryAfter = RateLimitedRetryAfter
	}
	return &Error{Kind: KindRateLimited, Message: "request rate exceeded, retry after a short delay", RetryAfter: retryAfter, Err: cause}
}

func Unavailable(retryAfter time.Duration, cause error) error {
	if retryAfter <= 0 {
		retryAfter = UnavailableRetryAfter
	}
	return &Error{Kind: KindUnavailable, Message: "backend temporarily unavailable, retry later", RetryAfter: retryAfter, Err: cause}
}

func InvalidToken(cause error) error {
	return &Error{Kind: KindInvalidToken, Message: "invalid continuation token, restart pagination from the beginning", Err: cause}
}

// Internal wraps an unclassified failure. It is retryable from the caller's point of view.
func Internal(cause error) error {
	return &Error{Kind: KindInternal, Message: "internal error, retry later", RetryAfter: UnavailableRetryAfter, Err: cause}
}

// KindOf returns the kind of err, KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// Classified reports whether err already belongs to the taxonomy.
func Classified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

package service

import (
	"errors"
	"fmt"
	"net"

	"freshmart-api/internal/repository"

	"github.com/rs/zerolog"
)

// Kind classifies a service failure.
type Kind int

const (
	// KindUnknown is any failure that is not otherwise classified.
	KindUnknown Kind = iota
	// KindNotFound means the data store matched no row.
	KindNotFound
	// KindUnavailable means the data store or cache could not be reached.
	KindUnavailable
	// KindInvalid means the input was rejected before touching any store.
	KindInvalid
	// KindCacheInconsistency means the write committed but a cache step after it failed.
	KindCacheInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	case KindCacheInconsistency:
		return "cache inconsistency"
	default:
		return "unknown"
	}
}

// Error is the normalised error returned by every service method.
type Error struct {
	Kind   Kind
	Action string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Action, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a KindNotFound service error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func invalid(action, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalid, Action: action, Err: fmt.Errorf(format, args...)}
}

func notFound(action, format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Action: action, Err: fmt.Errorf(format, args...)}
}

func inconsistent(action string, err error) error {
	return &Error{Kind: KindCacheInconsistency, Action: action, Err: err}
}

// guard runs fn and classifies the error it returns under action.
// Errors that are already classified pass through untouched.
func guard[T any](logger zerolog.Logger, action string, fn func() (T, error)) (T, error) {
	out, err := fn()
	if err != nil {
		var zero T
		return zero, classify(logger, action, err)
	}
	return out, nil
}

// guardErr is guard for operations without a result.
func guardErr(logger zerolog.Logger, action string, fn func() error) error {
	_, err := guard(logger, action, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func classify(logger zerolog.Logger, action string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		if se.Kind == KindCacheInconsistency {
			logger.Error().Err(se.Err).Str("action", action).Msg("cache out of sync with committed write")
		}
		return err
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Action: action, Err: err}
	case errors.Is(err, repository.ErrConnectionLost), isNetworkError(err):
		logger.Warn().Err(err).Str("action", action).Msg("store unavailable")
		return &Error{Kind: KindUnavailable, Action: action, Err: err}
	default:
		logger.Error().Err(err).Str("action", action).Msg("unexpected upstream error")
		return &Error{Kind: KindUnknown, Action: action, Err: err}
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

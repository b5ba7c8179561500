// Package errors provides error handling for assetctl.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for user-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrAssetNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors forming the assetctl error taxonomy. Every failure
// surfaced by the jira, pipeline and webhook packages wraps exactly one of
// these, so callers can classify with errors.Is regardless of how much
// context has been layered on top.
var (
	// ErrAuth indicates the remote service rejected our credentials.
	// Fatal: aborts the whole run, never retried.
	ErrAuth = New("authentication failed")

	// ErrNetwork indicates a transport-level failure after retries were
	// exhausted (timeouts, connection resets, 5xx responses).
	ErrNetwork = New("network error")

	// ErrRateLimited indicates the remote service throttled us and the
	// retry budget ran out.
	ErrRateLimited = New("rate limited")

	// ErrAssetNotFound indicates the requested asset does not exist.
	ErrAssetNotFound = New("asset not found")

	// ErrSchema indicates an unknown object type or attribute, or a
	// schema discovery failure.
	ErrSchema = New("schema error")

	// ErrInvalidQuery indicates the remote service rejected an AQL
	// filter as syntactically invalid. Not retried.
	ErrInvalidQuery = New("invalid query")

	// ErrInvalidUpdate indicates an update or create payload failed
	// validation before any write was attempted.
	ErrInvalidUpdate = New("invalid update")
)

// IsAuthError checks if an error is or wraps ErrAuth.
func IsAuthError(err error) bool {
	return err != nil && Is(err, ErrAuth)
}

// IsNotFoundError checks if an error is or wraps ErrAssetNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrAssetNotFound)
}

// IsSchemaError checks if an error is or wraps ErrSchema.
func IsSchemaError(err error) bool {
	return err != nil && Is(err, ErrSchema)
}

// IsInvalidUpdateError checks if an error is or wraps ErrInvalidUpdate.
func IsInvalidUpdateError(err error) bool {
	return err != nil && Is(err, ErrInvalidUpdate)
}

// IsRetryable reports whether the transport should retry the request that
// produced err. Only network faults and rate limiting qualify; client
// errors and auth failures never do.
func IsRetryable(err error) bool {
	return err != nil && IsAny(err, ErrNetwork, ErrRateLimited)
}

// NewSchemaError creates a schema error with a formatted message.
func NewSchemaError(format string, args ...interface{}) error {
	return Wrapf(ErrSchema, format, args...)
}

// NewInvalidUpdateError creates an invalid-update error with a formatted message.
func NewInvalidUpdateError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidUpdate, format, args...)
}

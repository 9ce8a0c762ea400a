// Package errors provides error handling for cadence.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, error wrapping, and user-facing hints, plus the sentinel errors
// shared across cadence packages.
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
//	if errors.Is(err, errors.ErrParse) {
//	    // handle malformed schedule expression
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
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for use across cadence.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrParse indicates a schedule expression did not match the grammar.
	// A job carrying such an expression must be rejected at configuration
	// time, before it is admitted into the scheduling loop.
	ErrParse = New("schedule parse error")

	// ErrNoMatch indicates a time specification can never be satisfied
	// within the search horizon (for example day-of-month 31 restricted
	// to February).
	ErrNoMatch = New("no matching instant")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsParseError checks if an error is or wraps ErrParse
func IsParseError(err error) bool {
	return err != nil && Is(err, ErrParse)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewParseError creates a parse error with a formatted message
func NewParseError(format string, args ...interface{}) error {
	return Wrap(ErrParse, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

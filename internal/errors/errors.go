// Package errors provides stack-trace-carrying error helpers shared by
// every package in solarboat. It is a thin wrapper around
// go-errors/errors.
package errors

import (
	goerrors "github.com/go-errors/errors"
)

// New creates a new error with a stack trace attached.
func New(msg string) error {
	return goerrors.New(msg)
}

// Errorf formats according to a format specifier and returns an error with a
// stack trace attached.
func Errorf(format string, args ...interface{}) error {
	return goerrors.Errorf(format, args...)
}

// WithStackTrace wraps err with a stack trace captured at the call site.
// Returns nil if err is nil.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	return goerrors.Wrap(err, 1)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return goerrors.Unwrap(err)
}

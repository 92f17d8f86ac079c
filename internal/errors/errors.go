// Package errors defines the sentinel errors every layer wraps. Domain packages
// derive their own errors from these so the HTTP layer only has to know this set.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized covers every failed proof of identity: unknown idA, wrong MAC,
	// undecodable EBID. Callers never learn which check failed.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrTimeDrift is reported as is; the client can resynchronize its clock.
	ErrTimeDrift = errors.New("time drift exceeded")
)

// New returns an error carrying message.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message, keeping it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted prefix.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is reports whether err or anything it wraps is target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

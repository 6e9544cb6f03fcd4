// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides shared command-line plumbing for facet
// binaries: categorized errors with user-facing hints and the
// standard error printing used by every main.
package cli

import (
	"errors"
	"fmt"
	"io"
)

// ErrorCategory classifies command errors so mains and wrappers can
// react without parsing message text.
type ErrorCategory string

const (
	// CategoryValidation indicates bad input: unknown flag values,
	// malformed config, unexpected arguments. Fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not
	// exist: missing keystore, unknown saved chart, absent index.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryTransient indicates a temporary failure: connection
	// refused, timeout. Retrying may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected failure: bugs, I/O
	// errors, corrupt state the program itself produced.
	CategoryInternal ErrorCategory = "internal"
)

// Error is a categorized error with an optional hint shown to the
// user below the error message. It wraps an inner error, preserving
// the chain for errors.Is and errors.As.
//
// Use the category constructors (Validation, NotFound, ...) rather
// than building an Error directly.
type Error struct {
	// Category classifies the error.
	Category ErrorCategory

	// Err carries the human-readable message.
	Err error

	// Hint, when non-empty, is a one-line suggestion for resolving
	// the error ("Run 'facet-keystore create' first.").
	Hint string
}

// Error returns the underlying error message. The category and hint
// travel separately — Fprint renders them.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps the category to a process exit code, so wrappers can
// distinguish bad input from transient failures without parsing
// output.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryTransient:
		return 4
	default:
		return 1
	}
}

// WithHint attaches a resolution hint and returns the same error, so
// constructors chain: cli.Validation(...).WithHint(...).
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may
// succeed on retry.
func Transient(format string, args ...any) *Error {
	return &Error{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure or bug.
func Internal(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Fprint writes err in the standard facet CLI format: an "error:"
// line, followed by a "  hint:" line when the error (anywhere in its
// chain) carries one.
func Fprint(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	var categorized *Error
	if errors.As(err, &categorized) && categorized.Hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", categorized.Hint)
	}
}

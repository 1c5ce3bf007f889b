// Package errors defines the error taxonomy of the resolution engine and
// small helpers for enriching errors with diagnostic context.
//
// All package-level sentinels are created with cockroachdb/errors so that
// callers can match them with errors.Is across wrap boundaries.
package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors returned by the engine. Callers match with errors.Is.
var (
	// ErrLoad indicates an external tool failed or an expected file did not
	// exist while loading a source.
	ErrLoad = errors.New("failed to load configuration source")

	// ErrInterpolation indicates a {NAME} token referenced an environment
	// variable that is unset or empty at enumeration time.
	ErrInterpolation = errors.New("interpolation variable is unset or empty")

	// ErrKeyNotFound indicates the requested key is absent from every
	// loaded source.
	ErrKeyNotFound = errors.New("configuration key not found")

	// ErrSerialization indicates an attempt to carry a secret-kind source
	// across the build/run phase boundary.
	ErrSerialization = errors.New("secret sources cannot be serialized")

	// ErrSelectorConfig indicates a malformed selector, or a required
	// selector that matched zero files at refresh time.
	ErrSelectorConfig = errors.New("invalid selector configuration")

	// ErrTypeMismatch indicates a typed accessor could not convert the
	// resolved value to the requested type.
	ErrTypeMismatch = errors.New("configuration value has unexpected type")

	// ErrCannotNavigatePath indicates a nested set/get hit a non-object
	// value partway through the key path.
	ErrCannotNavigatePath = errors.New("cannot navigate configuration path")
)

// New creates a new error with a stack trace.
func New(msg string) error {
	return errors.New(msg)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...any) error {
	return errors.Newf(format, args...)
}

// Wrap annotates err with a message, preserving errors.Is matching.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// WithDetail attaches a detail string shown in verbose error output.
func WithDetail(err error, detail string) error {
	return errors.WithDetail(err, detail)
}

// WithDetailf attaches a formatted detail string.
func WithDetailf(err error, format string, args ...any) error {
	return errors.WithDetailf(err, format, args...)
}

// WithHint attaches a user-facing hint to the error.
func WithHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// Mark associates err with a sentinel so errors.Is(err, sentinel) holds
// while the original cause chain stays intact.
func Mark(err error, sentinel error) error {
	return errors.Mark(err, sentinel)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetAllDetails returns the details attached to err, outermost first.
func GetAllDetails(err error) []string {
	return errors.GetAllDetails(err)
}

// Package fault defines the engine's error taxonomy. Callers classify
// failures with errors.Is against the three sentinels rather than by
// inspecting messages.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input to a pure
	// computation. Always rejected synchronously.
	ErrValidation = errors.New("validation failed")

	// ErrDependencyDegraded marks an external service that returned
	// unusable data, timed out, or errored. Recoverable: the caller
	// proceeds with a documented local default.
	ErrDependencyDegraded = errors.New("dependency degraded")

	// ErrStorage marks a durable store read or write failure. Surfaced
	// to the caller as retryable.
	ErrStorage = errors.New("storage failure")
)

// Validation wraps err as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Degraded wraps err as a recoverable dependency failure.
func Degraded(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyDegraded, op, err)
}

// Storage wraps err as a retryable storage failure.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

package conversion

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown or already evicted job ids.
var ErrNotFound = errors.New("job not found or expired")

// ValidationError rejects a malformed submission before any resource is
// allocated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError marks a workspace I/O failure; it fails the affected file task
// without any subprocess being spawned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ProcessError reports a non-zero exit of the external tool, carrying a
// bounded tail of its diagnostic output.
type ProcessError struct {
	ExitCode int
	Tail     string
}

func (e *ProcessError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("process exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("process exited with code %d: %s", e.ExitCode, e.Tail)
}

// CancelledError distinguishes "we gave up" (timeout or job abort) from the
// tool rejecting its input.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("execution cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

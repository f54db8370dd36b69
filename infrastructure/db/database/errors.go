package database

import "github.com/pkg/errors"

var (
	// ErrNotFound denotes that the requested key does not exist in the
	// table it was looked up in.
	ErrNotFound = errors.New("database: key not found")

	// ErrTableNotFound denotes that a read-only transaction referenced a
	// table that was never created. Opening the same table in a
	// read-write transaction creates it instead.
	ErrTableNotFound = errors.New("database: table not found")

	// ErrResizeNeeded denotes that a fixed-size-mapping engine has no
	// room left for a pending write. The resize policy recovers from it
	// up to its retry budget before it reaches a caller.
	ErrResizeNeeded = errors.New("database: memory map is full and needs to be resized")

	// ErrKeyTooLarge denotes that a key exceeded the engine's size
	// ceiling. This is a programming error: engine limits are documented
	// preconditions, not recoverable conditions.
	ErrKeyTooLarge = errors.New("database: key exceeds the engine's size limit")

	// ErrValueTooLarge denotes that a value exceeded the engine's size
	// ceiling. Like ErrKeyTooLarge, it indicates a schema defect.
	ErrValueTooLarge = errors.New("database: value exceeds the engine's size limit")

	// ErrTxClosed denotes use of a transaction after it was committed,
	// rolled back, or discarded.
	ErrTxClosed = errors.New("database: transaction is closed")

	// ErrCursorClosed denotes use of a cursor after it was closed, or
	// before it was positioned.
	ErrCursorClosed = errors.New("database: cursor is closed or unpositioned")

	// ErrEnvClosed denotes use of an environment after it was closed.
	ErrEnvClosed = errors.New("database: environment is closed")
)

// IsNotFoundError checks whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsResizeNeededError checks whether err wraps ErrResizeNeeded.
func IsResizeNeededError(err error) bool {
	return errors.Is(err, ErrResizeNeeded)
}

// BackendError wraps an opaque engine failure (corruption, version
// mismatch, unexpected errno) that the abstraction layer cannot interpret.
// Backend errors are fatal to the operation that hit them and are never
// retried automatically.
type BackendError struct {
	inner error
}

// NewBackendError wraps err as a BackendError, annotated with a
// printf-style description of the failed operation.
func NewBackendError(err error, format string, args ...interface{}) error {
	return &BackendError{inner: errors.Wrapf(err, format, args...)}
}

func (e *BackendError) Error() string {
	return "database backend error: " + e.inner.Error()
}

// Unwrap returns the wrapped engine error.
func (e *BackendError) Unwrap() error {
	return e.inner
}

// IsBackendError checks whether err is a BackendError.
func IsBackendError(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}

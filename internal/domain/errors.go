package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by the public API; check with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("edgebuffer: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("edgebuffer: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("edgebuffer: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("edgebuffer: invalid configuration")

	// ErrRecordNotFound is returned when a record id does not exist in the store.
	ErrRecordNotFound = errors.New("edgebuffer: record not found")

	// ErrStoreClosed is returned by store operations after Close.
	ErrStoreClosed = errors.New("edgebuffer: store closed")

	// ErrClosed is returned when Start() is called on an instance that has
	// already been stopped. A Buffer is single-use; create a new one.
	ErrClosed = errors.New("edgebuffer: closed, create a new instance")

	// ErrStatusConflict is returned when a status transition is refused
	// because the record is in an incompatible state, e.g. marking a
	// permanently rejected record as Sent.
	ErrStatusConflict = errors.New("edgebuffer: record status conflict")

	// ErrInvalidTransition is returned on a lifecycle state change that the
	// state machine does not permit.
	ErrInvalidTransition = errors.New("edgebuffer: invalid state transition")
)

// TransientError is a delivery failure worth retrying: timeout, connection
// refused, or a 5xx response. Retried with exponential backoff; does not
// threaten durability.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient delivery failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentRejectionError is a 4xx-class rejection from the endpoint.
// The batch is not retried automatically.
type PermanentRejectionError struct {
	StatusCode int
	Body       string
}

func (e *PermanentRejectionError) Error() string {
	return fmt.Sprintf("batch rejected by endpoint: status %d: %s", e.StatusCode, e.Body)
}

// StorageError is a local persistence failure (disk full, corruption, write
// failure). It is fatal to the durability guarantee and propagates to the
// producer call; it is never downgraded to a retry-later condition.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// CapacityError is returned when a write is rejected because the store is at
// or above its configured size limit after a forced cleanup pass.
type CapacityError struct {
	TotalBytes int64
	MaxBytes   int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("store at capacity: %d of %d bytes used", e.TotalBytes, e.MaxBytes)
}

// IsTransient reports whether err is a retryable delivery failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanentRejection reports whether err is a 4xx-class endpoint rejection.
func IsPermanentRejection(err error) bool {
	var pe *PermanentRejectionError
	return errors.As(err, &pe)
}

package domain

import "time"

// RecordStatus is the delivery state of a buffered record.
type RecordStatus int

const (
	// StatusPending marks a record buffered locally and not yet confirmed
	// delivered. Pending records are never deleted.
	StatusPending RecordStatus = iota

	// StatusSent marks a record confirmed accepted by the remote endpoint.
	StatusSent

	// StatusFailed marks a record that exceeded its retry budget or was
	// permanently rejected. Failed records require an explicit operator
	// reset before they become eligible for delivery again.
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s RecordStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusSent:
		return "Sent"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Record is a single buffered observation with its delivery state.
// The payload is opaque to the buffer; schema validation is the producer's
// and the endpoint's business.
type Record struct {
	// ID is the store-assigned monotonically increasing identifier.
	ID int64

	// CorrelationKey is the producer-assigned identifier used to trace
	// the observation end-to-end (e.g. an inference result id).
	CorrelationKey string

	// Payload is the serialized observation.
	Payload []byte

	// SizeBytes is the serialized size accounted against store capacity.
	SizeBytes int64

	// OriginTimestamp is when the observation was produced.
	OriginTimestamp time.Time

	// BufferedAt is when the record was durably persisted.
	BufferedAt time.Time

	// SentAt is set when delivery is confirmed; zero otherwise.
	SentAt time.Time

	// Status is the current delivery state.
	Status RecordStatus

	// RetryCount is the number of failed delivery attempts for this record.
	// It never decreases.
	RetryCount int

	// LastError holds the most recent delivery error, if any.
	LastError string
}

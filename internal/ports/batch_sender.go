package ports

import (
	"context"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// BatchSender transmits record batches to the ingestion endpoint.
// Implementations handle serialization, HTTP communication, and
// authentication.
type BatchSender interface {
	// Send submits the batch as a single network call. Acceptance is
	// batch-atomic. Errors are classified for the caller:
	//
	//   - nil: the endpoint accepted the whole batch (2xx)
	//   - *domain.TransientError: timeout, connection failure, or 5xx;
	//     the batch stays eligible for retry
	//   - *domain.PermanentRejectionError: 4xx-class rejection; the
	//     batch must not be retried automatically
	Send(ctx context.Context, batch *domain.Batch, metadata SendMetadata) error
}

// SendMetadata provides context for the send operation. The fields are
// carried in HTTP headers for server-side tracking.
type SendMetadata struct {
	// DeviceID identifies the edge device this buffer belongs to.
	DeviceID string

	// Hostname is the agent's hostname.
	Hostname string

	// AuthKey is the API authentication key.
	AuthKey string

	// ServiceURL is the base URL of the ingestion service.
	ServiceURL string
}

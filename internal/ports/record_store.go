package ports

import (
	"context"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// RecordStore is the durable, transactional table of buffered records.
// It is the single source of truth shared by the producer path, the delivery
// worker, the recovery sweep and the capacity manager; every operation runs
// inside a short transactional boundary so concurrent callers never observe
// a lost update.
type RecordStore interface {
	// Add durably persists a new Pending record and returns its id.
	// The record survives an immediate crash once Add returns. An I/O
	// failure is reported as a *domain.StorageError; the durability
	// guarantee cannot be honored, so this is a hard failure, not a
	// buffer-and-retry condition.
	Add(ctx context.Context, rec domain.Record) (int64, error)

	// GetBatch returns up to n Pending records ordered by origin
	// timestamp descending (newest first: recent data has higher
	// operational value for live monitoring than FIFO fairness).
	GetBatch(ctx context.Context, n int) ([]domain.Record, error)

	// MarkSent sets status=Sent and sentAt=now. Returns
	// domain.ErrRecordNotFound if the id does not exist; marking an
	// already-Sent record is a no-op.
	MarkSent(ctx context.Context, id int64) error

	// MarkFailed records a failed delivery attempt: retryCount is
	// incremented and lastError stored. When retryCount exceeds the
	// configured maximum the record becomes Failed; otherwise it stays
	// Pending and remains retry-eligible.
	MarkFailed(ctx context.Context, id int64, msg string) error

	// MarkRejected marks a permanently rejected record Failed without
	// further retries (4xx-class endpoint rejection).
	MarkRejected(ctx context.Context, id int64, msg string) error

	// ResetFailed is the explicit operator action that re-arms a Failed
	// record: status back to Pending, retryCount reset to zero.
	ResetFailed(ctx context.Context, id int64) error

	// Stats returns current counts and size accounting.
	Stats(ctx context.Context) (domain.BufferStats, error)

	// Cleanup deletes Sent records whose sentAt is older than the
	// retention window and returns the number of rows removed. Safe to
	// run concurrently with Add and GetBatch.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)

	// Close releases the underlying storage.
	Close() error
}

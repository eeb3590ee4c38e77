package app

import (
	"context"
	"sync"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// WorkerConfig contains configuration for the delivery worker.
type WorkerConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	BackoffBase  time.Duration
	BackoffCap   time.Duration

	// Metadata for send operations
	Metadata ports.SendMetadata
}

// SendEventEmitter is called on send success or failure, and when
// recording a delivery outcome in the store fails.
type SendEventEmitter interface {
	OnSendSuccess(recordCount int, bytesSent int64, duration time.Duration)
	OnSendError(err error, recordCount int, retryable bool)
	OnStorageError(err error)
}

// DeliveryWorker owns the flush loop: it drains the accumulator, submits
// batches through the sender, and records every outcome in the store. On
// transient failure it backs off exponentially; while the send gate is
// closed it stops attempting sends entirely and lets records accumulate
// in the store.
type DeliveryWorker struct {
	config  WorkerConfig
	store   ports.RecordStore
	sender  ports.BatchSender
	gate    ports.SendGate
	logger  ports.Logger
	metrics MetricsRecorder
	emitter SendEventEmitter
	acc     *Accumulator

	flushCh chan struct{}

	mu          sync.Mutex
	nextAttempt time.Time

	// inflight holds the ids of records currently batched or being
	// submitted. The recovery sweep and the catch-up path consult it so
	// the same record is never claimed by two delivery paths at once.
	claimMu  sync.Mutex
	inflight map[int64]struct{}
}

// NewDeliveryWorker creates a delivery worker with the given dependencies.
func NewDeliveryWorker(
	config WorkerConfig,
	store ports.RecordStore,
	sender ports.BatchSender,
	gate ports.SendGate,
	logger ports.Logger,
	metrics MetricsRecorder,
	emitter SendEventEmitter,
) *DeliveryWorker {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &DeliveryWorker{
		config:  config,
		store:   store,
		sender:  sender,
		gate:    gate,
		logger:  logger,
		metrics: metrics,
		emitter: emitter,
		acc:      NewAccumulator(config.BatchSize, config.BatchTimeout),
		flushCh:  make(chan struct{}, 1),
		inflight: make(map[int64]struct{}),
	}
}

// claim marks the given records as in flight and returns a batch holding
// only the ones that were not already claimed by another delivery path.
func (w *DeliveryWorker) claim(recs []domain.Record) *domain.Batch {
	w.claimMu.Lock()
	defer w.claimMu.Unlock()

	batch := domain.NewBatch(len(recs))
	for _, rec := range recs {
		if _, taken := w.inflight[rec.ID]; taken {
			continue
		}
		w.inflight[rec.ID] = struct{}{}
		batch.Add(rec)
	}
	return batch
}

// release clears the in-flight claim for every record in the batch.
func (w *DeliveryWorker) release(batch *domain.Batch) {
	w.claimMu.Lock()
	defer w.claimMu.Unlock()
	for _, id := range batch.IDs() {
		delete(w.inflight, id)
	}
}

// Enqueue places an already-persisted record into the in-memory batch and
// triggers an asynchronous flush when the batch is full. It never blocks on
// network I/O.
func (w *DeliveryWorker) Enqueue(rec domain.Record) {
	w.claim([]domain.Record{rec})
	if w.acc.Add(rec) {
		w.signalFlush()
	}
}

// signalFlush nudges the flush loop without blocking the producer.
func (w *DeliveryWorker) signalFlush() {
	select {
	case w.flushCh <- struct{}{}:
	default:
	}
}

// Run executes the flush loop until the context is canceled.
func (w *DeliveryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last attempt for whatever is batched; durable twins
			// remain Pending if it fails.
			w.flush(ctx)
			return ctx.Err()
		case <-w.flushCh:
			w.flush(ctx)
		case <-ticker.C:
			if w.acc.TimedOut() {
				w.flush(ctx)
				continue
			}
			// Nothing freshly batched: catch up on Pending rows left
			// behind by earlier failures.
			w.flushFromStore(ctx)
		}
	}
}

// flush drains the accumulator in batchSize steps. Each step goes out as
// its own network call, so a backlog that piled up during a backoff window
// still honors the batch size on the wire.
func (w *DeliveryWorker) flush(ctx context.Context) {
	for {
		if !w.gate.OK() {
			if dropped := w.acc.Drop(); !dropped.Empty() {
				w.release(dropped)
				w.logger.Debug("send gate closed, records stay buffered",
					ports.Int("records", dropped.Size()))
			}
			return
		}
		if w.inBackoff() {
			return
		}

		batch := w.acc.Take()
		if batch.Empty() {
			return
		}
		if err := w.Deliver(ctx, batch); err != nil {
			if domain.IsPermanentRejection(err) {
				// Only this batch is marked Failed; the rest of the
				// backlog still gets its attempt.
				continue
			}
			return
		}
	}
}

// flushFromStore retries Pending records already persisted in the store.
// This is the path that picks delivery back up after transient failures.
func (w *DeliveryWorker) flushFromStore(ctx context.Context) {
	if !w.gate.OK() || w.inBackoff() || w.acc.Pending() > 0 {
		return
	}

	recs, err := w.store.GetBatch(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("read batch from store", ports.Err(err))
		return
	}

	batch := w.claim(recs)
	if batch.Empty() {
		return
	}
	_ = w.Deliver(ctx, batch)
}

// Deliver submits one batch and records the outcome for every record.
// It is the single delivery path: live traffic and the recovery sweep both
// go through it, and it releases the batch's in-flight claims when it
// returns. Returns nil only when the endpoint accepted the batch.
func (w *DeliveryWorker) Deliver(ctx context.Context, batch *domain.Batch) error {
	if batch.Empty() {
		return nil
	}
	defer w.release(batch)

	start := time.Now()
	err := w.sender.Send(ctx, batch, w.config.Metadata)
	duration := time.Since(start)

	switch {
	case err == nil:
		for _, id := range batch.IDs() {
			if markErr := w.store.MarkSent(ctx, id); markErr != nil {
				w.reportStorageError(markErr)
				w.logger.Error("mark sent", ports.Int64("id", id), ports.Err(markErr))
			}
		}
		w.resetBackoff()
		w.metrics.RecordBatchSent(ctx, batch.Size(), batch.TotalBytes, duration)
		w.logger.Info("sent batch",
			ports.Int("records", batch.Size()),
			ports.Int64("bytes", batch.TotalBytes),
			ports.Duration("duration", duration),
		)
		if w.emitter != nil {
			w.emitter.OnSendSuccess(batch.Size(), batch.TotalBytes, duration)
		}
		return nil

	case domain.IsPermanentRejection(err):
		for _, id := range batch.IDs() {
			if markErr := w.store.MarkRejected(ctx, id, err.Error()); markErr != nil {
				w.reportStorageError(markErr)
				w.logger.Error("mark rejected", ports.Int64("id", id), ports.Err(markErr))
			}
		}
		w.metrics.RecordSendFailure(ctx, batch.Size(), true)
		w.logger.Error("batch permanently rejected",
			ports.Err(err),
			ports.Int("records", batch.Size()),
		)
		if w.emitter != nil {
			w.emitter.OnSendError(err, batch.Size(), false)
		}
		return err

	default:
		for _, id := range batch.IDs() {
			if markErr := w.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
				w.reportStorageError(markErr)
				w.logger.Error("mark failed", ports.Int64("id", id), ports.Err(markErr))
			}
		}
		delay := retryDelay(w.config.BackoffBase, w.config.BackoffCap, batch.MaxRetryCount())
		w.setBackoff(delay)
		w.metrics.RecordSendFailure(ctx, batch.Size(), false)
		w.logger.Warn("send failed, will retry",
			ports.Err(err),
			ports.Int("records", batch.Size()),
			ports.Duration("backoff", delay),
		)
		if w.emitter != nil {
			w.emitter.OnSendError(err, batch.Size(), true)
		}
		return err
	}
}

// reportStorageError surfaces a failed status write so it latches the
// degraded flag, not just a log line.
func (w *DeliveryWorker) reportStorageError(err error) {
	if w.emitter != nil {
		w.emitter.OnStorageError(err)
	}
}

func (w *DeliveryWorker) inBackoff() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.nextAttempt)
}

func (w *DeliveryWorker) setBackoff(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextAttempt = time.Now().Add(delay)
}

func (w *DeliveryWorker) resetBackoff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextAttempt = time.Time{}
}

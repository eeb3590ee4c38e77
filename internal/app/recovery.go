package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// RecoverySweep drains the record store through the normal delivery path
// after connectivity is restored (and once at startup). Only one sweep is
// active at a time; a Start while one is running is a no-op.
type RecoverySweep struct {
	store     ports.RecordStore
	worker    *DeliveryWorker
	gate      ports.SendGate
	logger    ports.Logger
	metrics   MetricsRecorder
	batchSize int

	active    atomic.Bool
	recovered atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecoverySweep creates a sweep that drains in batchSize steps.
func NewRecoverySweep(
	store ports.RecordStore,
	worker *DeliveryWorker,
	gate ports.SendGate,
	logger ports.Logger,
	metrics MetricsRecorder,
	batchSize int,
) *RecoverySweep {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RecoverySweep{
		store:     store,
		worker:    worker,
		gate:      gate,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Start launches a sweep goroutine. Idempotent: if a sweep is already
// active the call does nothing.
func (r *RecoverySweep) Start(ctx context.Context) {
	if !r.active.CompareAndSwap(false, true) {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer r.active.Store(false)
		defer cancel()
		r.run(sweepCtx)
	}()
}

// Stop cancels an active sweep and waits for it to wind down. The store is
// left consistent: a batch is either fully marked or still Pending.
func (r *RecoverySweep) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the sweep's activity and cumulative recovered count.
func (r *RecoverySweep) Status() domain.RecoveryStatus {
	return domain.RecoveryStatus{
		Active:           r.active.Load(),
		RecordsRecovered: r.recovered.Load(),
	}
}

// run drains until the store has no eligible records, connectivity drops,
// or the context is canceled. Failed batches are retried with exponential
// backoff pacing rather than hammering a struggling endpoint.
func (r *RecoverySweep) run(ctx context.Context) {
	pace := backoff.NewExponentialBackOff()
	pace.InitialInterval = 500 * time.Millisecond
	pace.MaxInterval = 30 * time.Second

	var total int64
	r.logger.Info("recovery sweep started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recovery sweep canceled", ports.Int64("recovered", total))
			return
		default:
		}

		if !r.gate.OK() {
			r.logger.Info("recovery sweep paused: disconnected",
				ports.Int64("recovered", total))
			return
		}

		recs, err := r.store.GetBatch(ctx, r.batchSize)
		if err != nil {
			r.logger.Error("recovery sweep read", ports.Err(err))
			return
		}
		if len(recs) == 0 {
			r.logger.Info("recovery sweep complete", ports.Int64("recovered", total))
			return
		}

		batch := r.worker.claim(recs)
		if batch.Empty() {
			// Everything eligible is already in flight with the live
			// worker; check back after a pause.
			select {
			case <-ctx.Done():
				return
			case <-time.After(pace.NextBackOff()):
			}
			continue
		}

		if err := r.worker.Deliver(ctx, batch); err != nil {
			if domain.IsPermanentRejection(err) {
				// The batch is marked Failed; keep draining the rest.
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pace.NextBackOff()):
			}
			continue
		}

		pace.Reset()
		n := int64(batch.Size())
		total += n
		r.recovered.Add(n)
		r.metrics.RecordRecovered(ctx, batch.Size())
	}
}

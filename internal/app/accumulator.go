package app

import (
	"sync"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// Accumulator groups freshly logged records into an in-memory batch for
// efficient network submission. Every record it holds already has a durable
// twin in the record store, so losing the in-memory batch never loses data.
//
// It is shared by the producer path (Add) and the delivery worker (Take);
// both operations are cheap and never block on I/O.
type Accumulator struct {
	mu        sync.Mutex
	batch     *domain.Batch
	batchSize int
	timeout   time.Duration
	lastFlush time.Time
}

// NewAccumulator creates an accumulator that signals a flush when batchSize
// records are collected or timeout has elapsed since the last flush.
func NewAccumulator(batchSize int, timeout time.Duration) *Accumulator {
	return &Accumulator{
		batch:     domain.NewBatch(batchSize),
		batchSize: batchSize,
		timeout:   timeout,
		lastFlush: time.Now(),
	}
}

// Add appends a record to the current batch.
// Returns true when the batch reached batchSize and should be flushed.
func (a *Accumulator) Add(rec domain.Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch.Add(rec)
	return a.batch.Size() >= a.batchSize
}

// Take removes up to batchSize records and returns them as one batch.
// Records past the cap stay accumulated; callers drain them by calling
// Take again. A batch never exceeds batchSize records on the wire.
func (a *Accumulator) Take() *domain.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastFlush = time.Now()
	if a.batch.Size() <= a.batchSize {
		taken := a.batch
		a.batch = domain.NewBatch(a.batchSize)
		return taken
	}

	taken := domain.NewBatch(a.batchSize)
	for _, rec := range a.batch.Records[:a.batchSize] {
		taken.Add(rec)
	}
	rest := domain.NewBatch(a.batchSize)
	for _, rec := range a.batch.Records[a.batchSize:] {
		rest.Add(rec)
	}
	a.batch = rest
	return taken
}

// Drop discards the current batch without flushing and returns it. Used
// when the send gate is closed; the records' durable twins stay Pending
// for the recovery sweep.
func (a *Accumulator) Drop() *domain.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	dropped := a.batch
	a.batch = domain.NewBatch(a.batchSize)
	a.lastFlush = time.Now()
	return dropped
}

// TimedOut returns true when a non-empty batch has been waiting longer than
// the batch timeout.
func (a *Accumulator) TimedOut() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch.Size() > 0 && time.Since(a.lastFlush) >= a.timeout
}

// Pending returns the number of records waiting in the current batch.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch.Size()
}

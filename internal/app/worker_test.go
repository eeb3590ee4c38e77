package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/adapters/sqlite"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// openStore opens a throwaway record store for tests.
func openStore(t *testing.T, maxRetries int) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "records.db"), 0, maxRetries)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addPending inserts a Pending record and returns it with its id set.
func addPending(t *testing.T, s *sqlite.Store, key string) domain.Record {
	t.Helper()
	rec := domain.Record{
		CorrelationKey:  key,
		Payload:         []byte("payload-" + key),
		SizeBytes:       int64(len("payload-" + key)),
		OriginTimestamp: time.Now().UTC(),
	}
	id, err := s.Add(context.Background(), rec)
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	rec.ID = id
	return rec
}

// stubGate is a SendGate with a settable state.
type stubGate struct {
	mu   sync.Mutex
	open bool
}

func (g *stubGate) OK() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *stubGate) set(open bool) {
	g.mu.Lock()
	g.open = open
	g.mu.Unlock()
}

// fakeSender returns scripted results per call.
type fakeSender struct {
	mu      sync.Mutex
	results []error
	calls   int
	batches []*domain.Batch
}

func (f *fakeSender) Send(ctx context.Context, batch *domain.Batch, metadata ports.SendMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	var err error
	if f.calls < len(f.results) {
		err = f.results[f.calls]
	}
	f.calls++
	return err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// sendEvents collects emitter callbacks.
type sendEvents struct {
	mux       sync.Mutex
	successes int
	failures  []bool // retryable flag per failure
	storage   []error
}

func (e *sendEvents) OnSendSuccess(recordCount int, bytesSent int64, duration time.Duration) {
	e.mux.Lock()
	e.successes++
	e.mux.Unlock()
}

func (e *sendEvents) OnSendError(err error, recordCount int, retryable bool) {
	e.mux.Lock()
	e.failures = append(e.failures, retryable)
	e.mux.Unlock()
}

func (e *sendEvents) OnStorageError(err error) {
	e.mux.Lock()
	e.storage = append(e.storage, err)
	e.mux.Unlock()
}

func (e *sendEvents) storageErrors() []error {
	e.mux.Lock()
	defer e.mux.Unlock()
	return append([]error{}, e.storage...)
}

func newWorker(store *sqlite.Store, sender ports.BatchSender, gate ports.SendGate, emitter SendEventEmitter) *DeliveryWorker {
	return NewDeliveryWorker(WorkerConfig{
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
		BackoffBase:  10 * time.Millisecond,
		BackoffCap:   100 * time.Millisecond,
		Metadata:     ports.SendMetadata{DeviceID: "cam-01", ServiceURL: "http://example"},
	}, store, sender, gate, mockLogger{}, NoopMetrics{}, emitter)
}

func TestDeliveryWorker_DeliverSuccess(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	events := &sendEvents{}
	w := newWorker(store, sender, &stubGate{open: true}, events)
	ctx := context.Background()

	r1 := addPending(t, store, "a")
	r2 := addPending(t, store, "b")
	batch := domain.NewBatch(2)
	batch.Add(r1)
	batch.Add(r2)

	if err := w.Deliver(ctx, batch); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	for _, rec := range []domain.Record{r1, r2} {
		got, err := store.Get(ctx, rec.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.StatusSent {
			t.Errorf("record %d status = %v, want Sent", rec.ID, got.Status)
		}
		if got.SentAt.IsZero() {
			t.Errorf("record %d sent_at not set", rec.ID)
		}
	}
	if events.successes != 1 {
		t.Errorf("successes = %d, want 1", events.successes)
	}
}

func TestDeliveryWorker_DeliverTransientFailure(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{results: []error{
		&domain.TransientError{Err: errors.New("connection refused")},
	}}
	events := &sendEvents{}
	w := newWorker(store, sender, &stubGate{open: true}, events)
	ctx := context.Background()

	rec := addPending(t, store, "a")
	batch := domain.NewBatch(1)
	batch.Add(rec)

	err := w.Deliver(ctx, batch)
	if !domain.IsTransient(err) {
		t.Fatalf("Deliver() error = %v, want transient", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %v, want Pending (within retry budget)", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", got.RetryCount)
	}

	if !w.inBackoff() {
		t.Error("worker not in backoff after transient failure")
	}
	if len(events.failures) != 1 || !events.failures[0] {
		t.Errorf("failures = %v, want one retryable failure", events.failures)
	}
}

func TestDeliveryWorker_DeliverPermanentRejection(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{results: []error{
		&domain.PermanentRejectionError{StatusCode: 400, Body: "bad payload"},
	}}
	events := &sendEvents{}
	w := newWorker(store, sender, &stubGate{open: true}, events)
	ctx := context.Background()

	rec := addPending(t, store, "a")
	batch := domain.NewBatch(1)
	batch.Add(rec)

	err := w.Deliver(ctx, batch)
	if !domain.IsPermanentRejection(err) {
		t.Fatalf("Deliver() error = %v, want permanent rejection", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Errorf("status = %v, want Failed", got.Status)
	}

	// Rejection does not trigger backoff; the next batch may go out
	// immediately.
	if w.inBackoff() {
		t.Error("worker in backoff after permanent rejection")
	}
	if len(events.failures) != 1 || events.failures[0] {
		t.Errorf("failures = %v, want one non-retryable failure", events.failures)
	}
}

func TestDeliveryWorker_FlushDropsWhenGateClosed(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	gate := &stubGate{open: false}
	w := newWorker(store, sender, gate, nil)
	ctx := context.Background()

	rec := addPending(t, store, "a")
	w.Enqueue(rec)
	w.flush(ctx)

	if sender.callCount() != 0 {
		t.Errorf("send attempted while gate closed")
	}
	if w.acc.Pending() != 0 {
		t.Errorf("in-memory batch not dropped")
	}

	// The durable twin is untouched and eligible for the recovery sweep.
	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %v, want Pending", got.Status)
	}
}

func TestDeliveryWorker_FlushSplitsOversizedBacklog(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)
	ctx := context.Background()

	// 50 records piled up while the worker could not send; one flush must
	// put them on the wire as 5 batches of 10, never one oversized call.
	for i := 0; i < 50; i++ {
		w.Enqueue(addPending(t, store, fmt.Sprintf("r%02d", i)))
	}
	w.flush(ctx)

	if sender.callCount() != 5 {
		t.Fatalf("send calls = %d, want 5", sender.callCount())
	}
	sender.mu.Lock()
	for i, b := range sender.batches {
		if b.Size() != 10 {
			t.Errorf("batch %d size = %d, want 10", i, b.Size())
		}
	}
	sender.mu.Unlock()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sent != 50 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 50 sent / 0 pending", stats)
	}
}

func TestDeliveryWorker_ClaimIsExclusive(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)
	ctx := context.Background()

	rec := addPending(t, store, "a")

	first := w.claim([]domain.Record{rec})
	if first.Size() != 1 {
		t.Fatalf("first claim size = %d, want 1", first.Size())
	}
	second := w.claim([]domain.Record{rec})
	if !second.Empty() {
		t.Fatal("record claimed twice")
	}

	// Deliver releases the claim with the outcome recorded.
	if err := w.Deliver(ctx, first); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	third := w.claim([]domain.Record{rec})
	if third.Size() != 1 {
		t.Error("claim not released after Deliver")
	}
}

func TestDeliveryWorker_ReportsStorageFailures(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	events := &sendEvents{}
	w := newWorker(store, sender, &stubGate{open: true}, events)
	ctx := context.Background()

	rec := addPending(t, store, "a")
	batch := domain.NewBatch(1)
	batch.Add(rec)

	// The endpoint accepts but the outcome cannot be recorded locally.
	store.Close()
	if err := w.Deliver(ctx, batch); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	got := events.storageErrors()
	if len(got) != 1 {
		t.Fatalf("storage errors = %d, want 1", len(got))
	}
	if !errors.Is(got[0], domain.ErrStoreClosed) {
		t.Errorf("storage error = %v, want ErrStoreClosed", got[0])
	}
}

func TestDeliveryWorker_FlushSkippedDuringBackoff(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)
	ctx := context.Background()

	w.setBackoff(time.Minute)
	w.Enqueue(addPending(t, store, "a"))
	w.flush(ctx)

	if sender.callCount() != 0 {
		t.Error("send attempted during backoff")
	}
	if w.acc.Pending() != 1 {
		t.Errorf("batch drained during backoff; pending = %d, want 1", w.acc.Pending())
	}
}

func TestDeliveryWorker_FlushFromStoreRetriesPending(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)
	ctx := context.Background()

	// Rows in the store but nothing in the in-memory batch: the state a
	// restart or an earlier transient failure leaves behind.
	addPending(t, store, "a")
	addPending(t, store, "b")

	w.flushFromStore(ctx)

	if sender.callCount() != 1 {
		t.Fatalf("send calls = %d, want 1", sender.callCount())
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sent != 2 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 2 sent / 0 pending", stats)
	}
}

func TestDeliveryWorker_FlushFromStoreDefersToAccumulator(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)
	ctx := context.Background()

	// Fresh records are waiting in the accumulator; the catch-up path
	// must not double-submit their durable twins.
	w.Enqueue(addPending(t, store, "a"))
	w.flushFromStore(ctx)

	if sender.callCount() != 0 {
		t.Errorf("send calls = %d, want 0 while accumulator holds records", sender.callCount())
	}
}

func TestDeliveryWorker_RunDeliversOnBatchTimeout(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := newWorker(store, sender, &stubGate{open: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	w.Enqueue(addPending(t, store, "a"))

	deadline := time.Now().Add(2 * time.Second)
	for sender.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if sender.callCount() == 0 {
		t.Fatal("batch never flushed on timeout")
	}
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sent != 1 {
		t.Errorf("sent = %d, want 1", stats.Sent)
	}
}

func TestDeliveryWorker_RunRetriesAfterTransientFailure(t *testing.T) {
	store := openStore(t, 5)
	sender := &fakeSender{results: []error{
		&domain.TransientError{Err: errors.New("timeout")},
		nil, // second attempt succeeds
	}}
	w := newWorker(store, sender, &stubGate{open: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	rec := addPending(t, store, "a")
	w.Enqueue(rec)
	w.signalFlush()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.Get(context.Background(), rec.ID)
		if err == nil && got.Status == domain.StatusSent {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done

	got, err := store.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusSent {
		t.Fatalf("status = %v after retry window, want Sent (attempts=%d, retries=%d)",
			got.Status, sender.callCount(), got.RetryCount)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", got.RetryCount)
	}
}

func TestDeliveryWorker_EnqueueFullBatchSignalsFlush(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	w := NewDeliveryWorker(WorkerConfig{
		BatchSize:    2,
		BatchTimeout: time.Hour, // only the full-batch signal can flush
		Metadata:     ports.SendMetadata{DeviceID: "cam-01"},
	}, store, sender, &stubGate{open: true}, mockLogger{}, NoopMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	w.Enqueue(addPending(t, store, "a"))
	w.Enqueue(addPending(t, store, "b"))

	deadline := time.Now().Add(2 * time.Second)
	for sender.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if sender.callCount() != 1 {
		t.Fatalf("send calls = %d, want 1", sender.callCount())
	}
	sender.mu.Lock()
	size := sender.batches[0].Size()
	sender.mu.Unlock()
	if size != 2 {
		t.Errorf("batch size = %d, want 2", size)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{7, 60 * time.Second},  // capped
		{20, 60 * time.Second}, // stays capped, no overflow
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("retry_%d", tt.retryCount), func(t *testing.T) {
			got := retryDelay(500*time.Millisecond, 60*time.Second, tt.retryCount)
			if got != tt.want {
				t.Errorf("retryDelay(%d) = %v, want %v", tt.retryCount, got, tt.want)
			}
		})
	}
}

func TestRetryDelay_Defaults(t *testing.T) {
	if got := retryDelay(0, 0, 0); got != DefaultBackoffBase {
		t.Errorf("retryDelay with zero config = %v, want %v", got, DefaultBackoffBase)
	}
}

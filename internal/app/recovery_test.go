package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

func waitSweepDone(t *testing.T, r *RecoverySweep) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Status().Active {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweep did not finish")
}

func TestRecoverySweep_DrainsBacklog(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	gate := &stubGate{open: true}
	worker := newWorker(store, sender, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 5)
	ctx := context.Background()

	// Backlog left behind by an outage.
	for i := 0; i < 12; i++ {
		addPending(t, store, fmt.Sprintf("backlog-%d", i))
	}

	sweep.Start(ctx)
	waitSweepDone(t, sweep)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 0 || stats.Sent != 12 {
		t.Errorf("stats = %+v, want 0 pending / 12 sent", stats)
	}

	status := sweep.Status()
	if status.RecordsRecovered != 12 {
		t.Errorf("RecordsRecovered = %d, want 12", status.RecordsRecovered)
	}
	// 12 records in batches of 5.
	if sender.callCount() != 3 {
		t.Errorf("send calls = %d, want 3", sender.callCount())
	}
}

func TestRecoverySweep_SingleFlight(t *testing.T) {
	store := openStore(t, 3)

	// A sender that blocks until released keeps the first sweep active.
	release := make(chan struct{})
	blocking := &blockingSender{release: release}
	gate := &stubGate{open: true}
	worker := newWorker(store, blocking, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 5)
	ctx := context.Background()

	addPending(t, store, "a")

	sweep.Start(ctx)
	deadline := time.Now().Add(time.Second)
	for !sweep.Status().Active && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !sweep.Status().Active {
		t.Fatal("sweep never became active")
	}

	// Second Start while active is a no-op.
	sweep.Start(ctx)

	close(release)
	waitSweepDone(t, sweep)

	if n := blocking.callCount(); n != 1 {
		t.Errorf("send calls = %d, want 1 (no concurrent sweep)", n)
	}
}

func TestRecoverySweep_StopsWhenGateCloses(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	gate := &stubGate{open: false}
	worker := newWorker(store, sender, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 5)
	ctx := context.Background()

	addPending(t, store, "a")

	sweep.Start(ctx)
	waitSweepDone(t, sweep)

	if sender.callCount() != 0 {
		t.Errorf("send calls = %d, want 0 with gate closed", sender.callCount())
	}
	stats, _ := store.Stats(ctx)
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want 1 untouched", stats.Pending)
	}
}

func TestRecoverySweep_SkipsRejectedBatches(t *testing.T) {
	store := openStore(t, 3)
	// First batch rejected permanently, the rest accepted.
	sender := &fakeSender{results: []error{
		&domain.PermanentRejectionError{StatusCode: 400, Body: "bad"},
	}}
	gate := &stubGate{open: true}
	worker := newWorker(store, sender, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		addPending(t, store, fmt.Sprintf("r-%d", i))
	}

	sweep.Start(ctx)
	waitSweepDone(t, sweep)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// The rejected batch of 2 is Failed; the remaining 2 delivered.
	if stats.Failed != 2 || stats.Sent != 2 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 2 failed / 2 sent / 0 pending", stats)
	}
	if sweep.Status().RecordsRecovered != 2 {
		t.Errorf("RecordsRecovered = %d, want 2", sweep.Status().RecordsRecovered)
	}
}

func TestRecoverySweep_SkipsRecordsClaimedByWorker(t *testing.T) {
	store := openStore(t, 3)
	sender := &fakeSender{}
	gate := &stubGate{open: true}
	worker := newWorker(store, sender, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 5)
	ctx := context.Background()

	// The live worker holds the record in its batch; the sweep must not
	// submit it a second time.
	rec := addPending(t, store, "claimed")
	worker.Enqueue(rec)

	sweep.Start(ctx)
	time.Sleep(150 * time.Millisecond)
	if n := sender.callCount(); n != 0 {
		t.Fatalf("send calls = %d while the worker holds the record, want 0", n)
	}
	sweep.Stop()

	if sweep.Status().RecordsRecovered != 0 {
		t.Errorf("RecordsRecovered = %d, want 0", sweep.Status().RecordsRecovered)
	}

	// The worker's own flush still delivers exactly once.
	worker.flush(ctx)
	if n := sender.callCount(); n != 1 {
		t.Errorf("send calls = %d after worker flush, want 1", n)
	}
	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusSent {
		t.Errorf("status = %v, want Sent", got.Status)
	}
}

func TestRecoverySweep_StopCancelsActiveSweep(t *testing.T) {
	store := openStore(t, 3)
	release := make(chan struct{})
	blocking := &blockingSender{release: release}
	gate := &stubGate{open: true}
	worker := newWorker(store, blocking, gate, nil)
	sweep := NewRecoverySweep(store, worker, gate, mockLogger{}, NoopMetrics{}, 5)

	addPending(t, store, "a")
	sweep.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		sweep.Stop()
		close(stopped)
	}()

	// Unblock the in-flight send so the sweep can observe cancellation.
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}
	if sweep.Status().Active {
		t.Error("sweep still active after Stop")
	}
}

// blockingSender blocks each Send until release is closed.
type blockingSender struct {
	fakeSender
	release chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, batch *domain.Batch, metadata ports.SendMetadata) error {
	<-b.release
	return b.fakeSender.Send(ctx, batch, metadata)
}

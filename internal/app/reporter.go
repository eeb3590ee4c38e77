package app

import (
	"context"
	"sync"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// errorRingSize bounds the recent-error sample in status snapshots.
const errorRingSize = 16

// AlertThresholds configure the optional alerts raised by the reporter.
// Zero values disable the corresponding alert.
type AlertThresholds struct {
	// PendingAlert fires when the Pending count reaches this value.
	PendingAlert int64

	// FailedAlert fires when the Failed count reaches this value.
	FailedAlert int64

	// CapacityAlertPct fires when store usage reaches this percentage.
	CapacityAlertPct float64
}

// AlertFunc receives threshold alerts: kind is "pending", "failed" or
// "capacity".
type AlertFunc func(kind string, value float64, threshold float64)

// StatusReporter aggregates counts, sizes, connectivity and recovery
// activity into a pull-based snapshot. It also keeps a bounded sample of
// recent errors and latches a degraded flag when local storage fails.
type StatusReporter struct {
	store    ports.RecordStore
	monitor  *ConnectivityMonitor
	sweep    *RecoverySweep
	capacity *CapacityManager
	logger   ports.Logger
	onAlert  AlertFunc

	mu         sync.Mutex
	thresholds AlertThresholds
	recent     []domain.ErrorSample
	degraded   bool
}

// NewStatusReporter wires the reporter to the components it observes.
func NewStatusReporter(
	store ports.RecordStore,
	monitor *ConnectivityMonitor,
	sweep *RecoverySweep,
	capacity *CapacityManager,
	logger ports.Logger,
	thresholds AlertThresholds,
	onAlert AlertFunc,
) *StatusReporter {
	return &StatusReporter{
		store:      store,
		monitor:    monitor,
		sweep:      sweep,
		capacity:   capacity,
		logger:     logger,
		thresholds: thresholds,
		onAlert:    onAlert,
	}
}

// RecordError appends a failure to the bounded recent-error ring.
// A "storage" error latches the degraded flag: the buffering subsystem can
// no longer honor its durability guarantee and operators need to know.
func (r *StatusReporter) RecordError(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recent = append(r.recent, domain.ErrorSample{
		Kind:    kind,
		Message: msg,
		At:      time.Now().UTC(),
	})
	if len(r.recent) > errorRingSize {
		r.recent = r.recent[len(r.recent)-errorRingSize:]
	}
	if kind == "storage" {
		r.degraded = true
	}
}

// Degraded returns true once a storage failure has been observed.
func (r *StatusReporter) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Snapshot assembles the current observability view and evaluates alert
// thresholds.
func (r *StatusReporter) Snapshot(ctx context.Context) (domain.StatusSnapshot, error) {
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}

	state, lastChecked := r.monitor.State()

	r.mu.Lock()
	recent := make([]domain.ErrorSample, len(r.recent))
	copy(recent, r.recent)
	degraded := r.degraded
	r.mu.Unlock()

	snap := domain.StatusSnapshot{
		Pending:         stats.Pending,
		Sent:            stats.Sent,
		Failed:          stats.Failed,
		TotalBytes:      stats.TotalBytes,
		MaxBytes:        stats.MaxBytes,
		CapacityPct:     stats.CapacityPct(),
		CapacityWarning: r.capacity.Warning(),
		Degraded:        degraded,
		Connectivity:    state,
		LastCheckedAt:   lastChecked,
		Recovery:        r.sweep.Status(),
		RecentErrors:    recent,
	}

	r.evaluateAlerts(snap)
	return snap, nil
}

// SetThresholds replaces the alert thresholds; used by live config reload.
func (r *StatusReporter) SetThresholds(t AlertThresholds) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds = t
}

func (r *StatusReporter) evaluateAlerts(snap domain.StatusSnapshot) {
	if r.onAlert == nil {
		return
	}
	r.mu.Lock()
	t := r.thresholds
	r.mu.Unlock()
	if t.PendingAlert > 0 && snap.Pending >= t.PendingAlert {
		r.onAlert("pending", float64(snap.Pending), float64(t.PendingAlert))
	}
	if t.FailedAlert > 0 && snap.Failed >= t.FailedAlert {
		r.onAlert("failed", float64(snap.Failed), float64(t.FailedAlert))
	}
	if t.CapacityAlertPct > 0 && snap.CapacityPct >= t.CapacityAlertPct {
		r.onAlert("capacity", snap.CapacityPct, t.CapacityAlertPct)
	}
}

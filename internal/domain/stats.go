package domain

import "time"

// BufferStats is the derived accounting view of the record store.
// It is computed, never stored.
type BufferStats struct {
	// Pending, Sent and Failed are record counts by status.
	Pending int64
	Sent    int64
	Failed  int64

	// TotalBytes is the sum of serialized sizes of all rows in the store.
	TotalBytes int64

	// MaxBytes is the configured store size limit; zero means unlimited.
	MaxBytes int64
}

// Total returns the number of records currently in the store.
func (s BufferStats) Total() int64 {
	return s.Pending + s.Sent + s.Failed
}

// CapacityPct returns store usage as a percentage of the configured limit.
// Returns 0 when no limit is configured.
func (s BufferStats) CapacityPct() float64 {
	if s.MaxBytes <= 0 {
		return 0
	}
	return float64(s.TotalBytes) / float64(s.MaxBytes) * 100
}

// RecoveryStatus describes the recovery sweep's activity.
type RecoveryStatus struct {
	// Active is true while a sweep is draining the store.
	Active bool `json:"active"`

	// RecordsRecovered is the cumulative count of records delivered by
	// sweeps since the agent started.
	RecordsRecovered int64 `json:"records_recovered"`
}

// ErrorSample is one entry in the bounded recent-error ring.
type ErrorSample struct {
	// Kind classifies the failure: "transient", "rejected", "storage"
	// or "capacity".
	Kind string `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`

	// At is when the error was observed.
	At time.Time `json:"at"`
}

// StatusSnapshot is the pull-based observability view of the agent.
type StatusSnapshot struct {
	Pending     int64   `json:"pending"`
	Sent        int64   `json:"sent"`
	Failed      int64   `json:"failed"`
	TotalBytes  int64   `json:"total_bytes"`
	MaxBytes    int64   `json:"max_bytes"`
	CapacityPct float64 `json:"capacity_pct"`

	// CapacityWarning is set while usage is at or above the warning
	// threshold.
	CapacityWarning bool `json:"capacity_warning"`

	// Degraded latches when local storage fails; the buffering subsystem
	// can no longer honor its durability guarantee.
	Degraded bool `json:"degraded"`

	Connectivity  ConnectivityState `json:"connectivity"`
	LastCheckedAt time.Time         `json:"last_checked_at"`

	Recovery RecoveryStatus `json:"recovery"`

	// RecentErrors is a bounded sample of recent failures, newest last.
	RecentErrors []ErrorSample `json:"recent_errors,omitempty"`
}

package app

import (
	"context"
	"sync"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// Default connectivity probe cadence.
const (
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 5 * time.Second
)

// ConnectivityMonitor drives the Unknown/Connected/Disconnected state
// machine with a periodic reachability probe. It runs independently of the
// producer path and never blocks LogRecord.
//
// It doubles as the delivery worker's send gate: the gate is open unless the
// last probe failed.
type ConnectivityMonitor struct {
	prober   ports.ConnectivityProber
	interval time.Duration
	logger   ports.Logger

	mu          sync.RWMutex
	state       domain.ConnectivityState
	lastChecked time.Time
	transitions []func(from, to domain.ConnectivityState)
}

// NewConnectivityMonitor creates a monitor probing at the given interval.
func NewConnectivityMonitor(prober ports.ConnectivityProber, interval time.Duration, logger ports.Logger) *ConnectivityMonitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &ConnectivityMonitor{
		prober:   prober,
		interval: interval,
		logger:   logger,
		state:    domain.ConnectivityUnknown,
	}
}

// OnTransition registers a callback fired on every state change. Callbacks
// run on the monitor goroutine and must return quickly. Register before Run.
func (m *ConnectivityMonitor) OnTransition(fn func(from, to domain.ConnectivityState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, fn)
}

// Run probes immediately, then on every tick, until the context is canceled.
func (m *ConnectivityMonitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check performs a single probe and applies the resulting transition.
func (m *ConnectivityMonitor) Check(ctx context.Context) {
	err := m.prober.Probe(ctx)

	next := domain.ConnectivityConnected
	if err != nil {
		next = domain.ConnectivityDisconnected
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.lastChecked = time.Now()
	callbacks := m.transitions
	m.mu.Unlock()

	if prev == next {
		return
	}

	if err != nil {
		m.logger.Warn("endpoint unreachable",
			ports.String("from", prev.String()),
			ports.Err(err),
		)
	} else {
		m.logger.Info("endpoint reachable",
			ports.String("from", prev.String()),
		)
	}

	for _, fn := range callbacks {
		fn(prev, next)
	}
}

// State returns the current connectivity state and when it was last checked.
func (m *ConnectivityMonitor) State() (domain.ConnectivityState, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.lastChecked
}

// OK implements ports.SendGate. Unknown counts as open so the first sends
// are not held hostage to the first probe tick.
func (m *ConnectivityMonitor) OK() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != domain.ConnectivityDisconnected
}

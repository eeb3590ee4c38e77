package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the agent.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// validNext enumerates the permitted state transitions. Crashed permits a
// retry of Start: a crash during startup (plugin init failure) leaves the
// store open and the agent recoverable. A crash during shutdown does not,
// but that path also closes the lifecycle.
var validNext = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the agent's start/stop protocol. It owns the state
// machine, counts the background loops for graceful shutdown, and turns
// terminal once Close is called: after that every Start attempt is refused
// with ErrClosed, because the resources behind the agent (the record store
// above all) have been released.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	closed  bool
	loops   sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle manager in StateStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{state: StateStopped, logger: logger, emitter: emitter}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves the state machine to next if the transition is
// permitted, notifying the emitter outside the lock.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if l.closed {
		l.mu.Unlock()
		return domain.ErrClosed
	}
	allowed := false
	for _, s := range validNext[prev] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, prev, next)
	}
	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// CanStart returns true if Start() may be attempted.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.closed && (l.state == StateStopped || l.state == StateCrashed)
}

// CanStop returns true if Stop() may be attempted.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// Close marks the lifecycle terminal. Called once the agent's resources are
// released; from then on CanStart is false and TransitionTo returns
// ErrClosed.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Closed reports whether the lifecycle has been closed.
func (l *Lifecycle) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// AddWorker registers a background loop for shutdown accounting.
func (l *Lifecycle) AddWorker() {
	l.loops.Add(1)
}

// WorkerDone marks a background loop as finished.
func (l *Lifecycle) WorkerDone() {
	l.loops.Done()
}

// WaitWithTimeout waits for the background loops to finish.
// Returns ErrShutdownTimeout if the timeout expires first.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.loops.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}

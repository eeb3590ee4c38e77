package edgebuffer

import (
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/app"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// State is the lifecycle state of the agent.
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

// ConnectivityState re-exports the domain connectivity state for consumers.
type ConnectivityState = domain.ConnectivityState

// Connectivity state values.
const (
	ConnectivityUnknown      = domain.ConnectivityUnknown
	ConnectivityConnected    = domain.ConnectivityConnected
	ConnectivityDisconnected = domain.ConnectivityDisconnected
)

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent reports an accepted batch submission.
type SendSuccessEvent struct {
	RecordCount int
	BytesSent   int64
	Duration    time.Duration
}

// SendErrorEvent reports a failed batch submission.
type SendErrorEvent struct {
	Error       error
	RecordCount int
	Retryable   bool
}

// ConnectivityChangeEvent reports a connectivity transition.
type ConnectivityChangeEvent struct {
	Previous ConnectivityState
	Current  ConnectivityState
}

// CapacityWarningEvent reports the store crossing its warning threshold.
type CapacityWarningEvent struct {
	TotalBytes int64
	MaxBytes   int64
	Pct        float64
}

// AlertEvent reports a configured status threshold being crossed.
// Kind is "pending", "failed" or "capacity".
type AlertEvent struct {
	Kind      string
	Value     float64
	Threshold float64
}

// EventHandler receives agent events. All callbacks run synchronously on
// agent goroutines and must return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnSendSuccess(SendSuccessEvent)
	OnSendError(SendErrorEvent)
	OnConnectivityChange(ConnectivityChangeEvent)
	OnCapacityWarning(CapacityWarningEvent)
	OnAlert(AlertEvent)
}

// BaseEventHandler provides no-op implementations of every EventHandler
// callback. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)               {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent)               {}
func (BaseEventHandler) OnSendError(SendErrorEvent)                   {}
func (BaseEventHandler) OnConnectivityChange(ConnectivityChangeEvent) {}
func (BaseEventHandler) OnCapacityWarning(CapacityWarningEvent)       {}
func (BaseEventHandler) OnAlert(AlertEvent)                           {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces
// and mirrors failures into the status reporter's error ring.
type eventEmitterWrapper struct {
	handler  EventHandler
	reporter *app.StatusReporter
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(recordCount int, bytesSent int64, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		RecordCount: recordCount,
		BytesSent:   bytesSent,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, recordCount int, retryable bool) {
	if e.reporter != nil {
		kind := "rejected"
		if retryable {
			kind = "transient"
		}
		e.reporter.RecordError(kind, err.Error())
	}
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Error:       err,
		RecordCount: recordCount,
		Retryable:   retryable,
	})
}

func (e *eventEmitterWrapper) OnStorageError(err error) {
	if e.reporter != nil {
		e.reporter.RecordError("storage", err.Error())
	}
}

func (e *eventEmitterWrapper) OnConnectivityChange(previous, current domain.ConnectivityState) {
	if e.handler == nil {
		return
	}
	e.handler.OnConnectivityChange(ConnectivityChangeEvent{
		Previous: previous,
		Current:  current,
	})
}

func (e *eventEmitterWrapper) OnCapacityWarning(totalBytes, maxBytes int64, pct float64) {
	if e.handler == nil {
		return
	}
	e.handler.OnCapacityWarning(CapacityWarningEvent{
		TotalBytes: totalBytes,
		MaxBytes:   maxBytes,
		Pct:        pct,
	})
}

func (e *eventEmitterWrapper) onAlert(kind string, value, threshold float64) {
	if e.handler == nil {
		return
	}
	e.handler.OnAlert(AlertEvent{Kind: kind, Value: value, Threshold: threshold})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

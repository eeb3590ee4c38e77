package edgebuffer

import (
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/app"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging. See pkg/log.
type Logger = log.Logger

// Field is a structured logging key-value pair. See pkg/log.
type Field = log.Field

// Option configures optional behavior of the Buffer.
type Option func(*options)

// options holds the optional configuration for a Buffer instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	metrics      app.MetricsRecorder
	plugins      []Plugin
	clock        func() time.Time
}

// WithHTTPClient sets a custom HTTP client for API communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for agent events.
// Events are called synchronously from agent goroutines.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics overrides the metrics recorder. By default the OTel recorder
// is used; it is a no-op until the host registers a meter provider.
func WithMetrics(m app.MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the time source used to stamp records.
// Intended for tests; defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithPlugin registers a plugin to be initialized when the Buffer starts.
// Plugins are initialized in registration order and shut down in reverse
// order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

package edgebuffer

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	httpAdapter "github.com/HustleDanie/Realtime-Vision-System-sub001/internal/adapters/http"
	logAdapter "github.com/HustleDanie/Realtime-Vision-System-sub001/internal/adapters/log"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/adapters/sqlite"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/app"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// Errors returned by the public API; check with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrRecordNotFound  = domain.ErrRecordNotFound
	ErrClosed          = domain.ErrClosed
)

// StatusSnapshot is the pull-based observability view of the agent.
type StatusSnapshot = domain.StatusSnapshot

// RecoveryStatus describes the recovery sweep's activity.
type RecoveryStatus = domain.RecoveryStatus

// Buffer is the embeddable edge observation buffer. Use New() to create an
// instance, then Start() to begin background delivery. LogRecord is safe to
// call from any goroutine; it persists durably and never blocks on network
// I/O.
//
// A Buffer is single-use: Stop releases the record store, so a stopped
// Buffer cannot be started again; create a new instance instead.
type Buffer struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	store     *sqlite.Store
	worker    *app.DeliveryWorker
	monitor   *app.ConnectivityMonitor
	sweep     *app.RecoverySweep
	capacity  *app.CapacityManager
	reporter  *app.StatusReporter
	metrics   app.MetricsRecorder
	logger    ports.Logger
	emitter   *eventEmitterWrapper
	plugins   []Plugin

	loops conc.WaitGroup

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Buffer with the given configuration.
// The instance is created in StateStopped; call Start() to begin delivery.
// The record store is opened (and created if absent) here, so records can
// be logged durably even before Start.
func New(cfg Config, opts ...Option) (*Buffer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	o := options{httpClient: httpClient, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = logAdapter.NewNoopLogger()
	}

	metrics := o.metrics
	if metrics == nil {
		var err error
		metrics, err = app.NewMetricsRecorder()
		if err != nil {
			logger.Warn("metrics recorder unavailable", ports.Err(err))
			metrics = app.NoopMetrics{}
		}
	}

	store, err := sqlite.Open(cfg.StorePath, cfg.MaxStoreBytes, cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	sender := httpAdapter.NewBatchSender(o.httpClient, logger)
	prober := httpAdapter.NewProber(o.httpClient, cfg.ServiceURL, cfg.ProbeTimeout)
	monitor := app.NewConnectivityMonitor(prober, cfg.ProbeInterval, logger)

	workerCfg := app.WorkerConfig{
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		BackoffBase:  cfg.BackoffBase,
		BackoffCap:   cfg.BackoffCap,
		Metadata: ports.SendMetadata{
			DeviceID:   cfg.DeviceID,
			Hostname:   hostname(),
			AuthKey:    cfg.AuthKey,
			ServiceURL: cfg.ServiceURL,
		},
	}
	worker := app.NewDeliveryWorker(workerCfg, store, sender, monitor, logger, metrics, emitter)
	sweep := app.NewRecoverySweep(store, worker, monitor, logger, metrics, cfg.BatchSize)
	capacity := app.NewCapacityManager(store, logger, emitter,
		cfg.MaxStoreBytes, cfg.RetentionWindow, cfg.CleanupInterval)
	reporter := app.NewStatusReporter(store, monitor, sweep, capacity, logger,
		app.AlertThresholds{
			PendingAlert:     cfg.PendingAlert,
			FailedAlert:      cfg.FailedAlert,
			CapacityAlertPct: cfg.CapacityAlertPct,
		}, emitter.onAlert)
	emitter.reporter = reporter

	b := &Buffer{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		store:     store,
		worker:    worker,
		monitor:   monitor,
		sweep:     sweep,
		capacity:  capacity,
		reporter:  reporter,
		metrics:   metrics,
		logger:    logger,
		emitter:   emitter,
		plugins:   o.plugins,
	}

	// Reconnection triggers the recovery sweep; the first Connected after
	// startup drains anything a previous process left behind.
	monitor.OnTransition(func(from, to domain.ConnectivityState) {
		emitter.OnConnectivityChange(from, to)
		if to == domain.ConnectivityConnected {
			if ctx := b.runContext(); ctx != nil {
				sweep.Start(ctx)
			}
		}
	})

	return b, nil
}

// Start begins background delivery. Returns immediately after the loops are
// launched; the provided context bounds their lifetime.
func (b *Buffer) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lifecycle.Closed() {
		return domain.ErrClosed
	}
	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.ctx = runCtx
	b.cancel = cancel

	pluginCfg := PluginConfig{
		ConfigPath:    b.config.ConfigPath,
		StorePath:     b.config.StorePath,
		ServiceURL:    b.config.ServiceURL,
		DeviceID:      b.config.DeviceID,
		AuthKey:       b.config.AuthKey,
		Logger:        b.logger,
		ApplySettings: b.applySettings,
	}
	for _, p := range b.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		b.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	b.spawn(b.monitor.Run)
	b.spawn(b.worker.Run)
	b.spawn(b.capacity.Run)

	return b.lifecycle.TransitionTo(app.StateRunning, "delivery loops started")
}

// spawn runs a loop under both the lifecycle worker count and the conc
// group. Callers hold b.mu.
func (b *Buffer) spawn(run func(context.Context) error) {
	ctx := b.ctx
	b.lifecycle.AddWorker()
	b.loops.Go(func() {
		defer b.lifecycle.WorkerDone()
		if err := run(ctx); err != nil && err != context.Canceled {
			b.logger.Error("background loop exited", ports.Err(err))
		}
	})
}

// Stop gracefully shuts down the agent: cancels the loops, waits for them,
// stops any active recovery sweep, shuts down plugins in reverse order and
// closes the store. Returns ErrShutdownTimeout if the loops do not finish
// in time.
func (b *Buffer) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	b.sweep.Stop()
	err := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err == nil {
		b.loops.Wait()
	}

	shutdownCtx := context.Background()
	for i := len(b.plugins) - 1; i >= 0; i-- {
		p := b.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			b.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		}
	}

	if closeErr := b.store.Close(); closeErr != nil {
		b.logger.Error("close store", ports.Err(closeErr))
	}

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	// The store is closed: this Buffer cannot be started again.
	b.lifecycle.Close()
	return err
}

// LogRecord durably persists an observation payload and schedules it for
// delivery. It returns once the record is safe on disk; network I/O never
// happens on this path. An empty correlationKey gets a generated one.
//
// Storage failures are returned as *domain.StorageError and also surface as
// a degraded flag in Status; capacity rejections as *domain.CapacityError.
func (b *Buffer) LogRecord(ctx context.Context, payload []byte, correlationKey string) (int64, error) {
	if correlationKey == "" {
		correlationKey = uuid.NewString()
	}

	if err := b.capacity.Admit(ctx, int64(len(payload))); err != nil {
		b.reporter.RecordError("capacity", err.Error())
		b.logger.Warn("record rejected", ports.Err(err),
			ports.String("correlation_key", correlationKey))
		return 0, err
	}

	rec := domain.Record{
		CorrelationKey:  correlationKey,
		Payload:         payload,
		SizeBytes:       int64(len(payload)),
		OriginTimestamp: b.opts.clock().UTC(),
		Status:          domain.StatusPending,
	}

	id, err := b.store.Add(ctx, rec)
	if err != nil {
		b.reporter.RecordError("storage", err.Error())
		b.logger.Error("durable write failed", ports.Err(err),
			ports.String("correlation_key", correlationKey))
		return 0, err
	}

	b.metrics.RecordBuffered(ctx, rec.SizeBytes)
	rec.ID = id
	b.worker.Enqueue(rec)
	return id, nil
}

// Status returns the current observability snapshot.
func (b *Buffer) Status(ctx context.Context) (StatusSnapshot, error) {
	return b.reporter.Snapshot(ctx)
}

// Recovery returns the recovery sweep's status.
func (b *Buffer) Recovery() RecoveryStatus {
	return b.sweep.Status()
}

// ResetFailed re-arms a Failed record for delivery. This is the explicit
// operator action; Failed records are never retried automatically.
func (b *Buffer) ResetFailed(ctx context.Context, id int64) error {
	return b.store.ResetFailed(ctx, id)
}

// State returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Buffer) State() State {
	return convertState(b.lifecycle.State())
}

// Close releases the store for a Buffer that was never started.
// A started Buffer is released by Stop.
func (b *Buffer) Close() error {
	return b.store.Close()
}

func (b *Buffer) runContext() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Buffer) applySettings(ls LiveSettings) {
	if ls.RetentionWindow > 0 {
		b.capacity.SetRetention(ls.RetentionWindow)
	}
	b.reporter.SetThresholds(app.AlertThresholds{
		PendingAlert:     ls.PendingAlert,
		FailedAlert:      ls.FailedAlert,
		CapacityAlertPct: ls.CapacityAlertPct,
	})
	b.logger.Info("live settings applied")
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

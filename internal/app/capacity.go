package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// Capacity defaults.
const (
	DefaultWarnPct         = 90.0
	DefaultCleanupInterval = time.Hour
)

// CapacityEventEmitter is notified when the capacity warning threshold is
// crossed.
type CapacityEventEmitter interface {
	OnCapacityWarning(totalBytes, maxBytes int64, pct float64)
}

// CapacityManager tracks store size against the configured limit, raises a
// warning at the threshold, and runs retention cleanup on a schedule or when
// the threshold is crossed. It also enforces the admission policy: above the
// limit a forced cleanup pass runs, and if the store is still full new
// writes are rejected — Pending data is never evicted.
type CapacityManager struct {
	store    ports.RecordStore
	logger   ports.Logger
	emitter  CapacityEventEmitter
	maxBytes int64
	warnPct  float64
	interval time.Duration

	mu        sync.Mutex
	retention time.Duration

	warning atomic.Bool
}

// NewCapacityManager creates a capacity manager. maxBytes == 0 disables both
// the warning and the admission check; cleanup still runs on the interval.
func NewCapacityManager(
	store ports.RecordStore,
	logger ports.Logger,
	emitter CapacityEventEmitter,
	maxBytes int64,
	retention time.Duration,
	interval time.Duration,
) *CapacityManager {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CapacityManager{
		store:     store,
		logger:    logger,
		emitter:   emitter,
		maxBytes:  maxBytes,
		warnPct:   DefaultWarnPct,
		retention: retention,
		interval:  interval,
	}
}

// Run executes the periodic check/cleanup loop until the context is
// canceled.
func (c *CapacityManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check refreshes the warning flag and triggers cleanup when usage is at or
// above the warning threshold (and on every scheduled tick).
func (c *CapacityManager) Check(ctx context.Context) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		c.logger.Error("capacity check", ports.Err(err))
		return
	}

	pct := stats.CapacityPct()
	if c.maxBytes > 0 && pct >= c.warnPct {
		if !c.warning.Swap(true) {
			c.logger.Warn("store capacity warning",
				ports.Int64("total_bytes", stats.TotalBytes),
				ports.Int64("max_bytes", c.maxBytes),
				ports.Float64("pct", pct),
			)
			if c.emitter != nil {
				c.emitter.OnCapacityWarning(stats.TotalBytes, c.maxBytes, pct)
			}
		}
	} else {
		c.warning.Store(false)
	}

	deleted, err := c.store.Cleanup(ctx, c.Retention())
	if err != nil {
		c.logger.Error("cleanup", ports.Err(err))
		return
	}
	if deleted > 0 {
		c.logger.Info("cleanup removed sent records", ports.Int64("deleted", deleted))
	}
}

// Warning returns true while usage is at or above the warning threshold.
func (c *CapacityManager) Warning() bool {
	return c.warning.Load()
}

// Admit decides whether a write of incoming bytes may proceed. When the
// store would exceed its limit, a forced cleanup pass runs first; if the
// store is still at or above the limit the write is rejected with a
// *domain.CapacityError.
func (c *CapacityManager) Admit(ctx context.Context, incoming int64) error {
	if c.maxBytes <= 0 {
		return nil
	}

	stats, err := c.store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalBytes+incoming <= c.maxBytes {
		return nil
	}

	if _, err := c.store.Cleanup(ctx, c.Retention()); err != nil {
		return err
	}

	stats, err = c.store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalBytes+incoming > c.maxBytes {
		return &domain.CapacityError{TotalBytes: stats.TotalBytes, MaxBytes: c.maxBytes}
	}
	return nil
}

// Retention returns the current retention window.
func (c *CapacityManager) Retention() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retention
}

// SetRetention updates the retention window; applied on the next cleanup.
func (c *CapacityManager) SetRetention(retention time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retention = retention
}

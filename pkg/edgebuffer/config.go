package edgebuffer

import (
	"strings"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
)

// Config holds the configuration for the buffering agent.
// Create one with at minimum StorePath, DeviceID and ServiceURL; all other
// fields have sensible defaults set via [Config.SetDefaults].
type Config struct {
	// StorePath is the SQLite database file backing the record store.
	StorePath string

	// DeviceID identifies this edge device to the ingestion service.
	DeviceID string

	// ServiceURL is the base URL of the ingestion service.
	ServiceURL string

	// AuthKey is the API authentication key.
	AuthKey string

	// MaxStoreBytes caps the store size; 0 disables the limit.
	MaxStoreBytes int64

	// RetentionWindow is how long Sent records are kept before cleanup.
	RetentionWindow time.Duration

	// BatchSize is the number of records per batch submission.
	BatchSize int

	// BatchTimeout flushes a partial batch after this long.
	BatchTimeout time.Duration

	// MaxRetries is the per-record retry budget before a record is
	// marked Failed.
	MaxRetries int

	// BackoffBase and BackoffCap bound the exponential retry backoff
	// (base * 2^retryCount, capped).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// ProbeInterval and ProbeTimeout control the connectivity monitor.
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	// HTTPTimeout bounds each batch submission request.
	HTTPTimeout time.Duration

	// CleanupInterval is the cadence of the scheduled retention cleanup.
	CleanupInterval time.Duration

	// PendingAlert, FailedAlert and CapacityAlertPct configure optional
	// status alerts; zero disables each.
	PendingAlert     int64
	FailedAlert      int64
	CapacityAlertPct float64

	// ConfigPath is the config file the agent was started from, if any.
	// It is passed through to plugins; the library itself never reads it.
	ConfigPath string
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 60 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 30 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return domain.ErrInvalidConfig
	}
	if c.DeviceID == "" {
		return domain.ErrInvalidConfig
	}
	if c.ServiceURL == "" {
		return domain.ErrInvalidConfig
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
	return nil
}

package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DeviceID  string `toml:"device_id"`
	StorePath string `toml:"store_path"`

	ServiceURL string `toml:"service_url"`
	AuthKey    string `toml:"auth_key"`

	MaxStoreBytes   int64  `toml:"max_store_bytes"`
	RetentionWindow string `toml:"retention_window"`
	BatchSize       int    `toml:"batch_size"`
	BatchTimeout    string `toml:"batch_timeout"`
	MaxRetries      int    `toml:"max_retries"`
	BackoffBase     string `toml:"backoff_base"`
	BackoffCap      string `toml:"backoff_cap"`
	ProbeInterval   string `toml:"probe_interval"`
	ProbeTimeout    string `toml:"probe_timeout"`
	HTTPTimeout     string `toml:"http_timeout"`
	CleanupInterval string `toml:"cleanup_interval"`

	PendingAlert     int64   `toml:"pending_alert"`
	FailedAlert      int64   `toml:"failed_alert"`
	CapacityAlertPct float64 `toml:"capacity_alert_pct"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.edgebufferd/config.toml if the home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".edgebufferd", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device-id", fc.DeviceID, &cfg.DeviceID)
	s.setString("store-path", fc.StorePath, &cfg.StorePath)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)

	s.setInt64("max-store-bytes", fc.MaxStoreBytes, &cfg.MaxStoreBytes)
	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)

	if err := s.setDuration("retention", fc.RetentionWindow, &cfg.RetentionWindow); err != nil {
		return err
	}
	if err := s.setDuration("batch-timeout", fc.BatchTimeout, &cfg.BatchTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-base", fc.BackoffBase, &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-cap", fc.BackoffCap, &cfg.BackoffCap); err != nil {
		return err
	}
	if err := s.setDuration("probe-interval", fc.ProbeInterval, &cfg.ProbeInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-timeout", fc.ProbeTimeout, &cfg.ProbeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("cleanup-interval", fc.CleanupInterval, &cfg.CleanupInterval); err != nil {
		return err
	}

	s.setInt64("pending-alert", fc.PendingAlert, &cfg.PendingAlert)
	s.setInt64("failed-alert", fc.FailedAlert, &cfg.FailedAlert)
	s.setFloat("capacity-alert-pct", fc.CapacityAlertPct, &cfg.CapacityAlertPct)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

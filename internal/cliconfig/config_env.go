package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables to the
// Config struct. It respects flags that have been explicitly set (changed
// map). Environment variables take precedence over config file values but
// not over command-line flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device-id", os.Getenv("EDGEBUFFER_DEVICE_ID"), &cfg.DeviceID)
	s.setString("store-path", os.Getenv("EDGEBUFFER_STORE_PATH"), &cfg.StorePath)
	s.setString("service-url", os.Getenv("EDGEBUFFER_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("EDGEBUFFER_AUTH_KEY"), &cfg.AuthKey)

	if err := s.setInt64FromString("max-store-bytes", os.Getenv("EDGEBUFFER_MAX_STORE_BYTES"), &cfg.MaxStoreBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-size", os.Getenv("EDGEBUFFER_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", os.Getenv("EDGEBUFFER_MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}

	if err := s.setDuration("retention", os.Getenv("EDGEBUFFER_RETENTION"), &cfg.RetentionWindow); err != nil {
		return err
	}
	if err := s.setDuration("batch-timeout", os.Getenv("EDGEBUFFER_BATCH_TIMEOUT"), &cfg.BatchTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-base", os.Getenv("EDGEBUFFER_BACKOFF_BASE"), &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-cap", os.Getenv("EDGEBUFFER_BACKOFF_CAP"), &cfg.BackoffCap); err != nil {
		return err
	}
	if err := s.setDuration("probe-interval", os.Getenv("EDGEBUFFER_PROBE_INTERVAL"), &cfg.ProbeInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-timeout", os.Getenv("EDGEBUFFER_PROBE_TIMEOUT"), &cfg.ProbeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("EDGEBUFFER_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("cleanup-interval", os.Getenv("EDGEBUFFER_CLEANUP_INTERVAL"), &cfg.CleanupInterval); err != nil {
		return err
	}

	if err := s.setInt64FromString("pending-alert", os.Getenv("EDGEBUFFER_PENDING_ALERT"), &cfg.PendingAlert); err != nil {
		return err
	}
	if err := s.setInt64FromString("failed-alert", os.Getenv("EDGEBUFFER_FAILED_ALERT"), &cfg.FailedAlert); err != nil {
		return err
	}
	if err := s.setFloatFromString("capacity-alert-pct", os.Getenv("EDGEBUFFER_CAPACITY_ALERT_PCT"), &cfg.CapacityAlertPct); err != nil {
		return err
	}

	return nil
}

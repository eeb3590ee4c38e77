package edgebuffer

import (
	"context"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

// Plugin extends the agent with optional behavior tied to its lifecycle.
// Initialize is called during Start in registration order; Shutdown during
// Stop in reverse order.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize sets up the plugin. A returned error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases plugin resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to each plugin at initialization.
type PluginConfig struct {
	// ConfigPath is the agent's config file, when started via the CLI;
	// empty for embedded use.
	ConfigPath string

	StorePath  string
	ServiceURL string
	DeviceID   string
	AuthKey    string

	Logger ports.Logger

	// ApplySettings applies live-tunable settings to the running agent.
	ApplySettings func(LiveSettings)
}

// LiveSettings are the settings that can change without a restart.
type LiveSettings struct {
	RetentionWindow  time.Duration
	PendingAlert     int64
	FailedAlert      int64
	CapacityAlertPct float64
}

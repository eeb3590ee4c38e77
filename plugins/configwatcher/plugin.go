// Package configwatcher provides live configuration reload for edgebuffer.
// When enabled, it watches the agent's config file for changes and applies
// the live-tunable settings (retention window, alert thresholds) to the
// running agent without a restart.
package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/edgebuffer"
)

// liveFileConfig holds the subset of config keys that can change while the
// agent is running. Everything else requires a restart.
type liveFileConfig struct {
	RetentionWindow  string  `toml:"retention_window"`
	PendingAlert     int64   `toml:"pending_alert"`
	FailedAlert      int64   `toml:"failed_alert"`
	CapacityAlertPct float64 `toml:"capacity_alert_pct"`
}

// Plugin implements live config reload.
// It monitors the config file the agent was started from and applies
// live-tunable settings when the file changes.
type Plugin struct {
	mu sync.RWMutex

	debounceDelay time.Duration

	configPath    string
	logger        edgebuffer.Logger
	applySettings func(edgebuffer.LiveSettings)
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	debounce      *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before
	// reloading. Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize sets up the plugin and starts the file watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg edgebuffer.PluginConfig) error {
	p.mu.Lock()
	p.configPath = cfg.ConfigPath
	p.logger = cfg.Logger
	p.applySettings = cfg.ApplySettings
	p.mu.Unlock()

	if p.configPath == "" || p.applySettings == nil {
		p.logger.Warn("config watcher disabled: no config file in use")
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized")

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop watches the config file's directory for changes.
// Watching the directory rather than the file survives editors that
// replace the file on save.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	configDir := filepath.Dir(p.configPath)
	configName := filepath.Base(p.configPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watcher: failed to create watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(configDir); err != nil {
		p.logger.Error("config watcher: failed to watch directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(p.debounceDelay)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error")
		}
	}
}

func (p *Plugin) debounceReload(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, p.reload)
}

// reload re-reads the config file and applies the live-tunable settings.
func (p *Plugin) reload() {
	p.mu.RLock()
	path := p.configPath
	apply := p.applySettings
	p.mu.RUnlock()

	b, err := os.ReadFile(path)
	if err != nil {
		p.logger.Warn("config watcher: read failed")
		return
	}

	var fc liveFileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		p.logger.Warn("config watcher: parse failed, keeping current settings")
		return
	}

	ls := edgebuffer.LiveSettings{
		PendingAlert:     fc.PendingAlert,
		FailedAlert:      fc.FailedAlert,
		CapacityAlertPct: fc.CapacityAlertPct,
	}
	if fc.RetentionWindow != "" {
		d, err := time.ParseDuration(fc.RetentionWindow)
		if err != nil {
			p.logger.Warn("config watcher: invalid retention_window, keeping current settings")
			return
		}
		ls.RetentionWindow = d
	}

	apply(ls)
	p.logger.Info("config watcher: live settings applied")
}

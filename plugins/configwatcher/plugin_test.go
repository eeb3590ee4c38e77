package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/edgebuffer"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...edgebuffer.Field) {}
func (noopLogger) Info(msg string, fields ...edgebuffer.Field)  {}
func (noopLogger) Warn(msg string, fields ...edgebuffer.Field)  {}
func (noopLogger) Error(msg string, fields ...edgebuffer.Field) {}

// settingsRecorder captures applied live settings.
type settingsRecorder struct {
	mu       sync.Mutex
	applied  []edgebuffer.LiveSettings
	notified chan struct{}
}

func newSettingsRecorder() *settingsRecorder {
	return &settingsRecorder{notified: make(chan struct{}, 16)}
}

func (r *settingsRecorder) apply(ls edgebuffer.LiveSettings) {
	r.mu.Lock()
	r.applied = append(r.applied, ls)
	r.mu.Unlock()
	select {
	case r.notified <- struct{}{}:
	default:
	}
}

func (r *settingsRecorder) last() (edgebuffer.LiveSettings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applied) == 0 {
		return edgebuffer.LiveSettings{}, false
	}
	return r.applied[len(r.applied)-1], true
}

func waitApplied(t *testing.T, r *settingsRecorder) edgebuffer.LiveSettings {
	t.Helper()
	select {
	case <-r.notified:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settings to be applied")
	}
	ls, ok := r.last()
	if !ok {
		t.Fatal("no settings recorded")
	}
	return ls
}

func TestPlugin_AppliesSettingsOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	initial := `device_id = "cam-01"
retention_window = "24h"
pending_alert = 1000
`
	if err := os.WriteFile(configPath, []byte(initial), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	rec := newSettingsRecorder()
	plugin := New(Config{DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, edgebuffer.PluginConfig{
		ConfigPath:    configPath,
		Logger:        noopLogger{},
		ApplySettings: rec.apply,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := `device_id = "cam-01"
retention_window = "48h"
pending_alert = 2000
failed_alert = 50
capacity_alert_pct = 85.0
`
	if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	ls := waitApplied(t, rec)
	if ls.RetentionWindow != 48*time.Hour {
		t.Errorf("RetentionWindow = %v, want 48h", ls.RetentionWindow)
	}
	if ls.PendingAlert != 2000 {
		t.Errorf("PendingAlert = %v, want 2000", ls.PendingAlert)
	}
	if ls.FailedAlert != 50 {
		t.Errorf("FailedAlert = %v, want 50", ls.FailedAlert)
	}
	if ls.CapacityAlertPct != 85 {
		t.Errorf("CapacityAlertPct = %v, want 85", ls.CapacityAlertPct)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_IgnoresMalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	if err := os.WriteFile(configPath, []byte(`device_id = "cam-01"`), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	rec := newSettingsRecorder()
	plugin := New(Config{DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, edgebuffer.PluginConfig{
		ConfigPath:    configPath,
		Logger:        noopLogger{},
		ApplySettings: rec.apply,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configPath, []byte("this is not valid toml\n==="), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	// Malformed content must not reach ApplySettings.
	time.Sleep(300 * time.Millisecond)
	if _, ok := rec.last(); ok {
		t.Error("settings applied despite malformed config")
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_DisabledWithoutConfigPath(t *testing.T) {
	plugin := New(DefaultConfig())

	ctx := context.Background()
	err := plugin.Initialize(ctx, edgebuffer.PluginConfig{
		Logger: noopLogger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q, want configwatcher", got)
	}
}

package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DeviceID:         "cam-01",
				StorePath:        "/var/lib/edgebufferd/records.db",
				RetentionWindow:  "48h",
				BatchSize:        100,
				CapacityAlertPct: 85,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				DeviceID:         "cam-01",
				StorePath:        "/var/lib/edgebufferd/records.db",
				RetentionWindow:  48 * time.Hour,
				BatchSize:        100,
				CapacityAlertPct: 85,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DeviceID:  "config-device",
				StorePath: "/config/records.db",
			},
			changed: map[string]bool{"device-id": true},
			initial: Config{
				DeviceID:  "flag-device",
				StorePath: "/flag/records.db",
			},
			expected: Config{
				DeviceID:  "flag-device", // unchanged because flag was set
				StorePath: "/config/records.db",
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				DeviceID:         "device-1",
				StorePath:        "/tmp/records.db",
				ServiceURL:       "http://example.com",
				AuthKey:          "secret",
				MaxStoreBytes:    1 << 28,
				RetentionWindow:  "24h",
				BatchSize:        50,
				BatchTimeout:     "5s",
				MaxRetries:       10,
				BackoffBase:      "500ms",
				BackoffCap:       "1m",
				ProbeInterval:    "30s",
				ProbeTimeout:     "5s",
				HTTPTimeout:      "30s",
				CleanupInterval:  "1h",
				PendingAlert:     5000,
				FailedAlert:      100,
				CapacityAlertPct: 90,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				DeviceID:         "device-1",
				StorePath:        "/tmp/records.db",
				ServiceURL:       "http://example.com",
				AuthKey:          "secret",
				MaxStoreBytes:    1 << 28,
				RetentionWindow:  24 * time.Hour,
				BatchSize:        50,
				BatchTimeout:     5 * time.Second,
				MaxRetries:       10,
				BackoffBase:      500 * time.Millisecond,
				BackoffCap:       time.Minute,
				ProbeInterval:    30 * time.Second,
				ProbeTimeout:     5 * time.Second,
				HTTPTimeout:      30 * time.Second,
				CleanupInterval:  time.Hour,
				PendingAlert:     5000,
				FailedAlert:      100,
				CapacityAlertPct: 90,
			},
			wantErr: false,
		},
		{
			name: "rejects malformed durations",
			fileConfig: FileConfig{
				RetentionWindow: "one day",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
device_id = "cam-42"
store_path = "/tmp/records.db"
retention_window = "48h"
batch_size = 100
capacity_alert_pct = 85.0
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.DeviceID != "cam-42" {
		t.Errorf("DeviceID = %v, want cam-42", fc.DeviceID)
	}
	if fc.StorePath != "/tmp/records.db" {
		t.Errorf("StorePath = %v, want /tmp/records.db", fc.StorePath)
	}
	if fc.RetentionWindow != "48h" {
		t.Errorf("RetentionWindow = %v, want 48h", fc.RetentionWindow)
	}
	if fc.BatchSize != 100 {
		t.Errorf("BatchSize = %v, want 100", fc.BatchSize)
	}
	if fc.CapacityAlertPct != 85 {
		t.Errorf("CapacityAlertPct = %v, want 85", fc.CapacityAlertPct)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
device_id = "cam-1"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".edgebufferd") {
		t.Errorf("DefaultConfigPath() = %v, should contain .edgebufferd", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}

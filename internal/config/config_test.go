package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
schema_version: 1
core:
  http_addr: "127.0.0.1:8081"
blob:
  endpoint: "https://s3.example.com"
  bucket: "homelab"
  access_key_file: "/run/secrets/access"
  secret_key_file: "/run/secrets/secret"
mqtt:
  host: "broker.local"
eufy:
  email: "user@example.com"
  password_file: "/run/secrets/eufy-password"
  state_path: "/var/lib/eufyvac/eufy-state.json"
  poll_interval_seconds: 15
  device_ip_overrides:
    dev1: "192.168.1.50"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Core.HTTPAddr != "127.0.0.1:8081" {
		t.Fatalf("http_addr = %q", cfg.Core.HTTPAddr)
	}
	if cfg.Core.GRPCAddr != DefaultGRPCAddr {
		t.Fatalf("grpc_addr default = %q", cfg.Core.GRPCAddr)
	}
	if cfg.Core.DashboardDir != DefaultDashboardDir {
		t.Fatalf("dashboard_dir default = %q", cfg.Core.DashboardDir)
	}
	if cfg.Blob.Prefix != DefaultBlobPrefix {
		t.Fatalf("blob prefix default = %q", cfg.Blob.Prefix)
	}
	if cfg.MQTT.Port != 1883 {
		t.Fatalf("mqtt port default = %d", cfg.MQTT.Port)
	}
	if cfg.Eufy.PollIntervalSeconds != 15 {
		t.Fatalf("poll interval = %d", cfg.Eufy.PollIntervalSeconds)
	}
	if cfg.Eufy.DeviceIPOverrides["dev1"] != "192.168.1.50" {
		t.Fatalf("overrides = %v", cfg.Eufy.DeviceIPOverrides)
	}
}

func TestLoadRejectsBadSchemaVersion(t *testing.T) {
	path := writeConfig(t, "schema_version: 2\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected schema version error")
	}
}

func TestLoadRejectsIncompleteEufy(t *testing.T) {
	path := writeConfig(t, `
schema_version: 1
eufy:
  email: "user@example.com"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing password_file error")
	}
}

func TestLoadRejectsIncompleteBlob(t *testing.T) {
	path := writeConfig(t, `
schema_version: 1
blob:
  endpoint: "https://s3.example.com"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestEnabledPlugins(t *testing.T) {
	enabled := EnabledPlugins(&Config{Eufy: &EufyConfig{}})
	if !enabled["eufy"] {
		t.Fatalf("eufy should be enabled when configured")
	}
	enabled = EnabledPlugins(&Config{})
	if enabled["eufy"] {
		t.Fatalf("eufy should be disabled without config")
	}
}

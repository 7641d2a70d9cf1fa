package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
global:
  log_level: debug
schedule:
  open_hour: 10
  close_hour: 21
  window_offsets: [0, 30]
  cutoff_minutes: 10
  timezone: America/Chicago
server:
  addr: ":8080"
snapshot:
  encryption_key: ${TEST_SNAPSHOT_KEY}
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "treehouse.yaml", "global:\n  log_format: console\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schedule.OpenHour != 11 || cfg.Schedule.CloseHour != 22 || cfg.Schedule.CutoffMinutes != 5 {
		t.Fatalf("unexpected schedule defaults: %+v", cfg.Schedule)
	}
	if len(cfg.Schedule.WindowOffsets) != 2 || cfg.Schedule.WindowOffsets[0] != 25 || cfg.Schedule.WindowOffsets[1] != 55 {
		t.Fatalf("unexpected offsets: %v", cfg.Schedule.WindowOffsets)
	}
	if cfg.Server.TickInterval != time.Second {
		t.Fatalf("unexpected tick interval: %s", cfg.Server.TickInterval)
	}
	if cfg.Global.LogFormat != "console" {
		t.Fatalf("unexpected log format: %s", cfg.Global.LogFormat)
	}
	if cfg.Snapshot.Compression != "zstd" || cfg.Storage.Backend != "local" {
		t.Fatalf("unexpected snapshot defaults: %+v %+v", cfg.Snapshot, cfg.Storage)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("TEST_SNAPSHOT_KEY", "secret")
	t.Setenv("TREEHOUSE_SCHEDULE_CUTOFF_MINUTES", "7")
	cfg, err := Load(writeFile(t, "treehouse.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schedule.OpenHour != 10 || cfg.Schedule.CloseHour != 21 {
		t.Fatalf("unexpected hours: %+v", cfg.Schedule)
	}
	if cfg.Schedule.CutoffMinutes != 7 {
		t.Fatalf("expected env override, got %d", cfg.Schedule.CutoffMinutes)
	}
	if cfg.Snapshot.EncryptionKey != "secret" {
		t.Fatalf("expected expanded key, got %q", cfg.Snapshot.EncryptionKey)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	policy, err := cfg.Schedule.Policy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Location == nil || policy.Location.String() != "America/Chicago" {
		t.Fatalf("unexpected location: %v", policy.Location)
	}
	if err := policy.Validate(); err != nil {
		t.Fatalf("expected valid policy: %v", err)
	}
}

func TestPolicyRejectsUnknownTimezone(t *testing.T) {
	sc := ScheduleConfig{OpenHour: 11, CloseHour: 22, WindowOffsets: []int{25}, CutoffMinutes: 5, Timezone: "Mars/Olympus"}
	if _, err := sc.Policy(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestLoadEncryptedConfig(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	plain := writeFile(t, "treehouse.yaml", sampleYAML)
	encrypted := plain + ".enc"
	if err := EncryptConfigFile(plain, encrypted, key); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	t.Setenv("TREEHOUSE_CONFIG_KEY", key)
	cfg, err := Load(encrypted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schedule.OpenHour != 10 {
		t.Fatalf("unexpected open hour: %d", cfg.Schedule.OpenHour)
	}
}

func TestLoadEncryptedConfigWithoutKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	plain := writeFile(t, "treehouse.yaml", sampleYAML)
	encrypted := plain + ".enc"
	if err := EncryptConfigFile(plain, encrypted, key); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	t.Setenv("TREEHOUSE_CONFIG_KEY", "")
	if _, err := Load(encrypted); err == nil {
		t.Fatalf("expected error without key")
	}
}

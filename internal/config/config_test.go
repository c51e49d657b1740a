package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, "engine: {}\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.MaxSample != 10000 {
		t.Errorf("Expected default max_sample 10000, got %d", cfg.Engine.MaxSample)
	}
	if cfg.Engine.BackpressureThreshold != 10 {
		t.Errorf("Expected default backpressure_threshold 10, got %d", cfg.Engine.BackpressureThreshold)
	}
	if cfg.Engine.XField != "longitude" || cfg.Engine.YField != "latitude" {
		t.Errorf("Unexpected default coordinate fields: %s/%s", cfg.Engine.XField, cfg.Engine.YField)
	}
	if cfg.NATS.ChunkSubject != "geostream.chunks" {
		t.Errorf("Unexpected default chunk subject: %s", cfg.NATS.ChunkSubject)
	}

	interval, err := cfg.Engine.ProgressIntervalDuration()
	if err != nil {
		t.Fatalf("ProgressIntervalDuration failed: %v", err)
	}
	if interval != 100*time.Millisecond {
		t.Errorf("Expected default interval 100ms, got %s", interval)
	}
}

func TestLoadConfigParsesValues(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, `
engine:
  max_sample: 50000
  sample_strategy: reservoir
  progress_interval: 250ms
nats:
  url: nats://example:4222
writers:
  - type: text
    enabled: true
    text:
      path: /tmp/results.log
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.MaxSample != 50000 {
		t.Errorf("Expected max_sample 50000, got %d", cfg.Engine.MaxSample)
	}
	if cfg.NATS.URL != "nats://example:4222" {
		t.Errorf("Unexpected NATS URL: %s", cfg.NATS.URL)
	}
	if len(cfg.Writers) != 1 || cfg.Writers[0].Type != "text" || !cfg.Writers[0].Enabled {
		t.Errorf("Unexpected writers: %+v", cfg.Writers)
	}

	interval, err := cfg.Engine.ProgressIntervalDuration()
	if err != nil {
		t.Fatalf("ProgressIntervalDuration failed: %v", err)
	}
	if interval != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", interval)
	}
}

func TestLoadConfigRejectsBadInterval(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, "engine:\n  progress_interval: soon\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if _, err := cfg.Engine.ProgressIntervalDuration(); err == nil {
		t.Error("Expected an error for an unparsable interval")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("does-not-exist.yaml"); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

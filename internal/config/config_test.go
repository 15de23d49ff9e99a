package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultIsValid ensures the shipped defaults pass validation.
func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

// TestLoadOverlaysDefaults verifies file values land on top of defaults.
func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framecast.yaml")
	data := []byte("stream:\n  stream_id: head\n  resolution: 1080p\n  fps: 15\n  port: 6000\n  format: png\nviewer:\n  port: 6000\n  timeout_s: 2\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.StreamID != "head" || cfg.Stream.Resolution != "1080p" || cfg.Stream.FPS != 15 {
		t.Errorf("stream section not applied: %+v", cfg.Stream)
	}
	if cfg.Viewer.Addr != "127.0.0.1" {
		t.Errorf("default viewer addr lost: %q", cfg.Viewer.Addr)
	}
}

// TestValidateRejectsBadValues covers the range checks.
func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Stream.Resolution = "4k" },
		func(c *Config) { c.Stream.FPS = 0 },
		func(c *Config) { c.Stream.FPS = 500 },
		func(c *Config) { c.Stream.Port = -1 },
		func(c *Config) { c.Stream.Format = "webp" },
		func(c *Config) { c.Viewer.TimeoutS = 0 },
		func(c *Config) { c.MQTT.Broker = "localhost:1883"; c.MQTT.IntervalS = 0 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

// TestLoadMissingFile reports a readable error.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/framecast.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

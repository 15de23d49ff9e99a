// Package config loads and validates the YAML configuration file.
// Command-line flags override file values; the file covers the settings
// that rarely change between runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete framecast configuration.
type Config struct {
	Stream StreamConfig `yaml:"stream"`
	Viewer ViewerConfig `yaml:"viewer"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// StreamConfig holds producer settings.
type StreamConfig struct {
	StreamID   string `yaml:"stream_id"`
	Resolution string `yaml:"resolution"` // vga, 720p, 1080p, 2k
	FPS        int    `yaml:"fps"`
	Depth      bool   `yaml:"depth"`
	Serial     string `yaml:"serial"`
	Port       int    `yaml:"port"` // 0 disables publishing
	Format     string `yaml:"format"`
	Quality    int    `yaml:"quality"`
}

// ViewerConfig holds consumer settings.
type ViewerConfig struct {
	Addr     string `yaml:"addr"`
	Port     int    `yaml:"port"`
	TimeoutS int    `yaml:"timeout_s"`
	SaveDir  string `yaml:"save_dir"`
}

// MQTTConfig holds the optional status emitter settings.
// An empty broker disables the emitter.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Topic     string `yaml:"topic"`
	IntervalS int    `yaml:"interval_s"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			StreamID:   "ego_view",
			Resolution: "720p",
			FPS:        30,
			Port:       5556,
			Format:     "jpeg",
			Quality:    90,
		},
		Viewer: ViewerConfig{
			Addr:     "127.0.0.1",
			Port:     5556,
			TimeoutS: 5,
			SaveDir:  "./captured_frames",
		},
		MQTT: MQTTConfig{
			Topic:     "framecast/status",
			IntervalS: 10,
		},
	}
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Stream.Resolution {
	case "vga", "720p", "1080p", "2k":
	default:
		return fmt.Errorf("stream.resolution %q not one of vga, 720p, 1080p, 2k", c.Stream.Resolution)
	}
	if c.Stream.FPS <= 0 || c.Stream.FPS > 120 {
		return fmt.Errorf("stream.fps %d out of range 1-120", c.Stream.FPS)
	}
	if c.Stream.Port < 0 || c.Stream.Port > 65535 {
		return fmt.Errorf("stream.port %d out of range", c.Stream.Port)
	}
	if c.Stream.Format != "jpeg" && c.Stream.Format != "png" {
		return fmt.Errorf("stream.format %q not one of jpeg, png", c.Stream.Format)
	}
	if c.Viewer.Port <= 0 || c.Viewer.Port > 65535 {
		return fmt.Errorf("viewer.port %d out of range", c.Viewer.Port)
	}
	if c.Viewer.TimeoutS <= 0 {
		return fmt.Errorf("viewer.timeout_s must be positive")
	}
	if c.MQTT.Broker != "" && c.MQTT.IntervalS <= 0 {
		return fmt.Errorf("mqtt.interval_s must be positive when broker is set")
	}
	return nil
}

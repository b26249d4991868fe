package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialConfig describes the link to the Lambda 10-3 controller.
type SerialConfig struct {
	Port      string `yaml:"port"`       // e.g. /dev/ttyUSB0 or COM13
	BaudRate  int    `yaml:"baud_rate"`  // fixed by the hardware: 128000
	TimeoutMs int    `yaml:"timeout_ms"` // read timeout; a full wheel move must fit
}

// WheelConfig carries optional display metadata for one filter wheel.
type WheelConfig struct {
	Filters []string `yaml:"filters"` // labels for positions 0-9, in order
}

// DefaultsConfig contains generic parameters (speed, debug, mock mode).
type DefaultsConfig struct {
	MoveSpeed  int  `yaml:"move_speed"`  // wheel speed 1-7 (6 is reliable)
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockSerial bool `yaml:"mock_serial"` // use mock device (true=dev/test, false=real hardware)
}

// Config aggregates all application configuration.
type Config struct {
	Serial   SerialConfig           `yaml:"serial"`
	Wheels   map[string]WheelConfig `yaml:"wheels,omitempty"` // keyed by wheel name "A"/"B"
	Defaults DefaultsConfig         `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Serial.Port == "" && !cfg.Defaults.MockSerial {
		return nil, fmt.Errorf("serial.port is required unless mock_serial is set")
	}
	if cfg.Serial.BaudRate == 0 {
		cfg.Serial.BaudRate = 128000 // the controller's fixed USB rate
	}
	if cfg.Serial.TimeoutMs <= 0 {
		cfg.Serial.TimeoutMs = 5000
	}
	if cfg.Defaults.MoveSpeed == 0 {
		cfg.Defaults.MoveSpeed = 6 // reliable default per the manual
	}
	if cfg.Defaults.MoveSpeed < 0 || cfg.Defaults.MoveSpeed > 7 {
		return nil, fmt.Errorf("move_speed must be between 0 and 7, got %d", cfg.Defaults.MoveSpeed)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	for name, wheel := range cfg.Wheels {
		if name != "A" && name != "B" {
			return nil, fmt.Errorf("unknown wheel %q in config (want A or B)", name)
		}
		if len(wheel.Filters) > 10 {
			return nil, fmt.Errorf("wheel %s: %d filter labels, a wheel has 10 positions",
				name, len(wheel.Filters))
		}
	}

	return &cfg, nil
}

// ValidateConfigPath rejects config paths outside the configs/ directory
// or without the .yaml extension.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config file must have a .yaml extension: %s", path)
	}
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("config path must not traverse directories: %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must live under configs/: %s", path)
	}
	return nil
}

// Timeout returns the serial read timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Serial.TimeoutMs) * time.Millisecond
}

// FilterName returns the configured label of a wheel position, or the
// empty string when none is configured.
func (c *Config) FilterName(wheel string, position int) string {
	w, ok := c.Wheels[wheel]
	if !ok || position < 0 || position >= len(w.Filters) {
		return ""
	}
	return w.Filters[position]
}

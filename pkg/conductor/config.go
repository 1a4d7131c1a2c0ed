package conductor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the conductor's tunables. Zero values fall back to
// DefaultConfig semantics where noted.
type Config struct {
	// LogLevel names the minimum level emitted ("debug", "info", "warn",
	// "error").
	LogLevel string `yaml:"log_level"`

	// ShutdownTimeout bounds the concurrent close of all connections at
	// shutdown. Zero means no bound.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	Bridge  BridgeConfig  `yaml:"bridge"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BridgeConfig configures the local MCP bridge listener.
type BridgeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		LogLevel:        "info",
		ShutdownTimeout: Duration(10 * time.Second),
		Bridge: BridgeConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:0",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "acp_conductor",
		},
	}
}

// LoadConfig reads a YAML configuration file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

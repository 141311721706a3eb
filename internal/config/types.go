package config

import (
	"fmt"
	"time"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	AI        AIConfig        `koanf:"ai"`
	Decompose DecomposeConfig `koanf:"decompose"`
	Store     StoreConfig     `koanf:"store"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AIConfig configures the Ollama backend.
type AIConfig struct {
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	TopP        float64       `koanf:"top_p"`
}

// DecomposeConfig tunes the decomposition engine.
type DecomposeConfig struct {
	ProposalTTL     time.Duration `koanf:"proposal_ttl"`
	GenerateTimeout time.Duration `koanf:"generate_timeout"`
	MaxSiblings     int           `koanf:"max_siblings"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
}

// StoreConfig selects the task store backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `koanf:"driver"`
	// Path is the SQLite database file; required when Driver is "sqlite".
	Path string `koanf:"path"`
}

// TelemetryConfig configures OTLP export. When disabled the daemon
// still serves Prometheus metrics locally.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	// Protocol is "grpc" (default) or "http/protobuf".
	Protocol string `koanf:"protocol"`
	Insecure bool   `koanf:"insecure"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if c.AI.BaseURL == "" {
		return fmt.Errorf("ai.base_url must not be empty")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}

	if c.Decompose.ProposalTTL <= 0 {
		return fmt.Errorf("decompose.proposal_ttl must be positive")
	}
	if c.Decompose.GenerateTimeout <= 0 {
		return fmt.Errorf("decompose.generate_timeout must be positive")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.driver is sqlite")
		}
	default:
		return fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}

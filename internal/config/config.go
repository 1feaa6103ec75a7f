package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"CORS_ORIGINS" default:""`
}

// SandboxConfig holds execution defaults and hard caps applied to API
// requests.
type SandboxConfig struct {
	DefaultTimeout      time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	MaxTimeout          time.Duration `envconfig:"SANDBOX_MAX_TIMEOUT" default:"30s"`
	DefaultMaxMemory    int64         `envconfig:"SANDBOX_MAX_MEMORY" default:"67108864"`
	ConsoleLimit        int           `envconfig:"SANDBOX_CONSOLE_LIMIT" default:"1000"`
	MaxSourceBytes      int           `envconfig:"SANDBOX_MAX_SOURCE_BYTES" default:"262144"`
	ComplexityThreshold int           `envconfig:"SANDBOX_COMPLEXITY_THRESHOLD" default:"10"`
	PresetFile          string        `envconfig:"PRESET_FILE" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Sandbox: SandboxConfig{
			DefaultTimeout:      5 * time.Second,
			MaxTimeout:          30 * time.Second,
			DefaultMaxMemory:    64 << 20,
			ConsoleLimit:        1000,
			MaxSourceBytes:      256 << 10,
			ComplexityThreshold: 10,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

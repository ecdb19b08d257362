// Package config loads and validates the gateway configuration.
//
// DESIGN: All configuration comes from YAML. The binary embeds a default file
// (cmd/configs/default.yaml) that is used when no --config path is given, so
// every value a deployment runs with is visible in one auditable document.
//
// FILES:
//   - config.go:        Root Config struct, Load(), Validate()
//   - summarization.go: Pipeline settings (re-exported from summarization)
//   - monitoring.go:    Logging and telemetry settings
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

// Config is the root configuration for the context gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`        // HTTP server settings
	Upstream      UpstreamConfig      `yaml:"upstream"`      // Where filtered chat requests go
	Summarization SummarizationConfig `yaml:"summarization"` // Token budget and summarizer
	Monitoring    MonitoringConfig    `yaml:"monitoring"`    // Telemetry and logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // Port to listen on
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // Max time to read request
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // Max time to write response
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period on SIGINT/SIGTERM (default 30s)
}

// UpstreamConfig contains upstream URL configuration.
type UpstreamConfig struct {
	OllamaURL string `yaml:"ollama_url"` // Target of the /api/chat proxy
}

// DefaultShutdownTimeout is used when server.shutdown_timeout is unset.
const DefaultShutdownTimeout = 30 * time.Second

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands environment variables with support for default values.
// Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// These let a container redirect the summarizer and telemetry without
// editing the config file.
func (c *Config) applyEnvOverrides() {
	// OLLAMA_URL only points an Ollama summarizer somewhere else. Other
	// providers keep the base_url they were configured with.
	provider := c.Summarization.Summarizer.Provider
	if url := os.Getenv("OLLAMA_URL"); url != "" && (provider == "" || provider == summarization.ProviderOllama) {
		c.Summarization.Summarizer.BaseURL = url
	}

	if model := os.Getenv("SUMMARIZER_MODEL"); model != "" {
		c.Summarization.Summarizer.Model = model
	}

	// SESSION_TELEMETRY_LOG overrides the telemetry log path and turns telemetry on
	if envPath := os.Getenv("SESSION_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
		c.Monitoring.TelemetryEnabled = true
	}
}

// Validate checks the configuration and reports every problem found, not
// just the first.
func (c *Config) Validate() error {
	var errs []error

	switch port := c.Server.Port; {
	case port == 0:
		errs = append(errs, errors.New("server.port is required"))
	case port < 1 || port > 65535:
		errs = append(errs, fmt.Errorf("invalid server.port: %d (must be 1-65535)", port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout is required"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}

	if c.Upstream.OllamaURL == "" {
		errs = append(errs, errors.New("upstream.ollama_url is required"))
	} else if u, err := url.Parse(c.Upstream.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid upstream.ollama_url %q (want scheme://host[:port])", c.Upstream.OllamaURL))
	}

	if err := c.Summarization.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("summarization: %w", err))
	}
	if err := c.Monitoring.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Monitoring configuration - telemetry and logging settings.
//
// DESIGN: Separates logging (zerolog) from telemetry (JSONL files).
// Logging is for operators, telemetry is for analytics/debugging.
package config

import (
	"fmt"
	"time"

	"github.com/washu-tag/context-gateway/internal/monitoring"
)

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console, or empty for auto
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"` // Enable telemetry tracking
	TelemetryPath    string `yaml:"telemetry_path"`    // Path to telemetry JSONL file
	LogToStdout      bool   `yaml:"log_to_stdout"`     // Also log telemetry to stdout

	// Alerts
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"` // Warn on slower summarizations (default 5s)
}

// Validate checks the monitoring settings.
func (m MonitoringConfig) Validate() error {
	switch m.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid monitoring.log_format %q (json, console)", m.LogFormat)
	}
	if m.TelemetryEnabled && m.TelemetryPath == "" {
		return fmt.Errorf("monitoring.telemetry_path is required when telemetry is enabled")
	}
	if m.HighLatencyThreshold < 0 {
		return fmt.Errorf("monitoring.high_latency_threshold must not be negative")
	}
	return nil
}

// LoggerConfig converts the logging settings for monitoring.New.
func (m MonitoringConfig) LoggerConfig() monitoring.LoggerConfig {
	return monitoring.LoggerConfig{
		Level:  m.LogLevel,
		Format: m.LogFormat,
		Output: m.LogOutput,
	}
}

// TelemetryConfig converts the telemetry settings for monitoring.NewTracker.
func (m MonitoringConfig) TelemetryConfig() monitoring.TelemetryConfig {
	return monitoring.TelemetryConfig{
		Enabled:     m.TelemetryEnabled,
		LogPath:     m.TelemetryPath,
		LogToStdout: m.LogToStdout,
	}
}

// AlertConfig converts the alert settings for monitoring.NewAlertManager.
func (m MonitoringConfig) AlertConfig() monitoring.AlertConfig {
	return monitoring.AlertConfig{HighLatencyThreshold: m.HighLatencyThreshold}
}

// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - SummarizationEvent: Telemetry data for each filtered conversation
//   - Config types:       TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// SummarizationEvent captures one pass of a conversation through the filter.
type SummarizationEvent struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Path           string    `json:"path"`
	Model          string    `json:"model,omitempty"`
	SummaryModel   string    `json:"summary_model,omitempty"`
	Action         string    `json:"action"`            // passthrough_under_threshold, summarized, truncated, ...
	Outcome        string    `json:"outcome,omitempty"` // success, empty, failure
	Error          string    `json:"error,omitempty"`
	MessagesBefore int       `json:"messages_before"`
	MessagesAfter  int       `json:"messages_after"`
	OldMessages    int       `json:"old_messages"`
	RecentMessages int       `json:"recent_messages"`
	OriginalTokens int       `json:"original_tokens"`
	FinalTokens    int       `json:"final_tokens"`
	TokensSaved    int       `json:"tokens_saved"`
	ToolSummaries  []string  `json:"tool_summaries,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, or empty for auto
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}

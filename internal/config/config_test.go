package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washu-tag/context-gateway/internal/config"
)

const validYAML = `
server:
  port: 8080
  read_timeout: 30s
  write_timeout: 300s
upstream:
  ollama_url: ${UPSTREAM_URL:-http://ollama:11434}
summarization:
  token_threshold: 100000
  messages_to_keep: 10
  min_messages_to_keep: 2
  tool_result_token_threshold: 500
  summarizer:
    provider: ollama
    base_url: http://ollama:11434
    model: ""
    timeout: 120s
monitoring:
  log_level: info
  log_format: json
  log_output: stdout
`

// clearOverrides keeps the runner's environment out of the test.
func clearOverrides(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OLLAMA_URL", "SUMMARIZER_MODEL", "SESSION_TELEMETRY_LOG", "UPSTREAM_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromBytes_Valid(t *testing.T) {
	clearOverrides(t)

	cfg, err := config.LoadFromBytes([]byte(validYAML))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "http://ollama:11434", cfg.Upstream.OllamaURL)
	assert.Equal(t, 100000, cfg.Summarization.TokenThreshold)
	assert.Equal(t, 2, cfg.Summarization.MinMessagesToKeep)
	assert.Equal(t, "ollama", cfg.Summarization.Summarizer.Provider)
	assert.Equal(t, 120*time.Second, cfg.Summarization.Summarizer.Timeout)
	assert.False(t, cfg.Monitoring.TelemetryEnabled)
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	clearOverrides(t)
	t.Setenv("UPSTREAM_URL", "http://gpu-box:11434")

	cfg, err := config.LoadFromBytes([]byte(validYAML))

	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Upstream.OllamaURL)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("OLLAMA_URL", "http://summarizer:11434")
	t.Setenv("SUMMARIZER_MODEL", "llama3.2:3b")
	t.Setenv("SESSION_TELEMETRY_LOG", "/tmp/session/telemetry.jsonl")

	cfg, err := config.LoadFromBytes([]byte(validYAML))

	require.NoError(t, err)
	assert.Equal(t, "http://summarizer:11434", cfg.Summarization.Summarizer.BaseURL)
	assert.Equal(t, "http://ollama:11434", cfg.Upstream.OllamaURL, "upstream is not the summarizer")
	assert.Equal(t, "llama3.2:3b", cfg.Summarization.Summarizer.Model)
	assert.Equal(t, "/tmp/session/telemetry.jsonl", cfg.Monitoring.TelemetryPath)
	assert.True(t, cfg.Monitoring.TelemetryEnabled)
}

func TestLoadFromBytes_OllamaURLLeavesOtherProvidersAlone(t *testing.T) {
	clearOverrides(t)
	t.Setenv("OLLAMA_URL", "http://summarizer:11434")

	tests := []struct {
		provider string
		baseURL  string
		want     string
	}{
		{"openai", "https://api.openai.com", "https://api.openai.com"},
		{"anthropic", "https://api.anthropic.com", "https://api.anthropic.com"},
		{"ollama", "http://ollama:11434", "http://summarizer:11434"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			yaml := strings.Replace(validYAML, "provider: ollama", "provider: "+tt.provider, 1)
			yaml = strings.Replace(yaml, "base_url: http://ollama:11434", "base_url: "+tt.baseURL, 1)

			cfg, err := config.LoadFromBytes([]byte(yaml))

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Summarization.Summarizer.BaseURL)
		})
	}
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	clearOverrides(t)

	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"missing_port", [2]string{"port: 8080", "port: 0"}, "server.port is required"},
		{"port_range", [2]string{"port: 8080", "port: 70000"}, "invalid server.port"},
		{"read_timeout", [2]string{"read_timeout: 30s", "read_timeout: 0s"}, "server.read_timeout"},
		{"threshold", [2]string{"token_threshold: 100000", "token_threshold: 0"}, "token_threshold must be positive"},
		{"min_keep", [2]string{"min_messages_to_keep: 2", "min_messages_to_keep: 0"}, "min_messages_to_keep"},
		{"keep_below_min", [2]string{"messages_to_keep: 10", "messages_to_keep: 1"}, "messages_to_keep (1)"},
		{"tool_threshold", [2]string{"tool_result_token_threshold: 500", "tool_result_token_threshold: -1"}, "tool_result_token_threshold"},
		{"provider", [2]string{"provider: ollama", "provider: gemini"}, `unknown summarizer provider "gemini"`},
		{"summarizer_timeout", [2]string{"timeout: 120s", "timeout: 0s"}, "summarizer.timeout"},
		{"log_format", [2]string{"log_format: json", "log_format: xml"}, "log_format"},
		{"upstream_not_url", [2]string{"${UPSTREAM_URL:-http://ollama:11434}", "ollama"}, "invalid upstream.ollama_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := strings.Replace(validYAML, tt.replace[0], tt.replace[1], 1)

			_, err := config.LoadFromBytes([]byte(yaml))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromBytes_ReportsEveryProblem(t *testing.T) {
	clearOverrides(t)
	yaml := strings.Replace(validYAML, "port: 8080", "port: 0", 1)
	yaml = strings.Replace(yaml, "provider: ollama", "provider: gemini", 1)

	_, err := config.LoadFromBytes([]byte(yaml))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port is required")
	assert.Contains(t, err.Error(), `unknown summarizer provider "gemini"`)
}

func TestLoadFromBytes_TelemetryNeedsPath(t *testing.T) {
	clearOverrides(t)
	yaml := validYAML + "  telemetry_enabled: true\n"

	_, err := config.LoadFromBytes([]byte(yaml))

	assert.ErrorContains(t, err, "telemetry_path")
}

func TestLoadFromBytes_MalformedYAML(t *testing.T) {
	_, err := config.LoadFromBytes([]byte("server: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)

	_, err = config.Load("")
	assert.ErrorContains(t, err, "config file path is required")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestMonitoringConfig_Conversions(t *testing.T) {
	m := config.MonitoringConfig{
		LogLevel:             "debug",
		LogFormat:            "console",
		LogOutput:            "stderr",
		TelemetryEnabled:     true,
		TelemetryPath:        "/var/log/gw.jsonl",
		HighLatencyThreshold: 3 * time.Second,
	}

	assert.Equal(t, "debug", m.LoggerConfig().Level)
	assert.Equal(t, "console", m.LoggerConfig().Format)
	assert.Equal(t, "/var/log/gw.jsonl", m.TelemetryConfig().LogPath)
	assert.True(t, m.TelemetryConfig().Enabled)
	assert.Equal(t, 3*time.Second, m.AlertConfig().HighLatencyThreshold)
}

// Package summarization - config.go contains the pipeline configuration.
//
// DESIGN: Config is an immutable value. NewFilter copies it once and every
// stage reads from that copy, so filters with different settings can run side
// by side in the same process.
package summarization

import (
	"fmt"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config contains all tunables of the summarization pipeline.
type Config struct {
	// Gate: conversations at or above this many tokens are summarized.
	TokenThreshold int `yaml:"token_threshold"`

	// Recent-message retention.
	MessagesToKeep    int `yaml:"messages_to_keep"`
	MinMessagesToKeep int `yaml:"min_messages_to_keep"`

	// Assistant messages carrying tool output above this size are compacted.
	ToolResultTokenThreshold int `yaml:"tool_result_token_threshold"`

	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Token estimation
	Encoding           string `yaml:"encoding,omitempty"`             // tiktoken encoding (default: cl100k_base)
	TokenEstimateRatio int    `yaml:"token_estimate_ratio,omitempty"` // Bytes per token when the encoding is unavailable

	// Debugging
	DebugLogging     bool `yaml:"debug_logging"`
	DumpFullMessages bool `yaml:"dump_full_messages"`
}

// SummarizerConfig configures the outbound summarization call.
type SummarizerConfig struct {
	Provider  string        `yaml:"provider"` // ollama | openai | anthropic | bedrock
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"` // empty: use the chat request's model
	APIKey    string        `yaml:"api_key,omitempty"`
	Region    string        `yaml:"region,omitempty"` // bedrock only
	MaxTokens int           `yaml:"max_tokens,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Supported summarizer providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the defaults used by the Open WebUI deployment.
func DefaultConfig() Config {
	return Config{
		TokenThreshold:           100000,
		MessagesToKeep:           10,
		MinMessagesToKeep:        2,
		ToolResultTokenThreshold: 500,
		Summarizer: SummarizerConfig{
			Provider:  ProviderOllama,
			BaseURL:   "http://ollama:11434",
			MaxTokens: 1024,
			Timeout:   120 * time.Second,
		},
		Encoding:           "cl100k_base",
		TokenEstimateRatio: 4,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
// Booleans and the model override are left as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.TokenThreshold == 0 {
		c.TokenThreshold = d.TokenThreshold
	}
	if c.MessagesToKeep == 0 {
		c.MessagesToKeep = d.MessagesToKeep
	}
	if c.MinMessagesToKeep == 0 {
		c.MinMessagesToKeep = d.MinMessagesToKeep
	}
	if c.Summarizer.Provider == "" {
		c.Summarizer.Provider = d.Summarizer.Provider
	}
	if c.Summarizer.BaseURL == "" && c.Summarizer.Provider == ProviderOllama {
		c.Summarizer.BaseURL = d.Summarizer.BaseURL
	}
	if c.Summarizer.MaxTokens == 0 {
		c.Summarizer.MaxTokens = d.Summarizer.MaxTokens
	}
	if c.Summarizer.Timeout == 0 {
		c.Summarizer.Timeout = d.Summarizer.Timeout
	}
	if c.Encoding == "" {
		c.Encoding = d.Encoding
	}
	if c.TokenEstimateRatio == 0 {
		c.TokenEstimateRatio = d.TokenEstimateRatio
	}
	return c
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.TokenThreshold <= 0 {
		return fmt.Errorf("token_threshold must be positive")
	}
	if c.MinMessagesToKeep < 1 {
		return fmt.Errorf("min_messages_to_keep must be at least 1")
	}
	if c.MessagesToKeep < c.MinMessagesToKeep {
		return fmt.Errorf("messages_to_keep (%d) must be >= min_messages_to_keep (%d)",
			c.MessagesToKeep, c.MinMessagesToKeep)
	}
	if c.ToolResultTokenThreshold < 0 {
		return fmt.Errorf("tool_result_token_threshold must not be negative")
	}
	if c.TokenEstimateRatio < 0 {
		return fmt.Errorf("token_estimate_ratio must not be negative")
	}
	switch c.Summarizer.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderBedrock:
	default:
		return fmt.Errorf("unknown summarizer provider %q", c.Summarizer.Provider)
	}
	if c.Summarizer.Provider != ProviderBedrock && c.Summarizer.BaseURL == "" {
		return fmt.Errorf("summarizer.base_url is required for provider %q", c.Summarizer.Provider)
	}
	if c.Summarizer.Timeout <= 0 {
		return fmt.Errorf("summarizer.timeout must be positive")
	}
	return nil
}

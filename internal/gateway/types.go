// Package gateway types - constants and wire types for the HTTP surface.
//
// DESIGN: The gateway speaks two inbound protocols:
//   - Open WebUI pipelines filter: {"body": <chat request>, "user": {...}}
//     in, the (possibly rewritten) chat request out
//   - Ollama /api/chat: the chat request itself, forwarded upstream after
//     filtering
//
// Only the "messages" field of a chat request is ever rewritten. Every other
// field passes through byte for byte.
package gateway

import (
	"time"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

// =============================================================================
// HEADERS
// =============================================================================

const (
	// HeaderRequestID carries the request ID (generated if absent).
	HeaderRequestID = "X-Request-ID"

	// HeaderContextStatus carries the final status description of the filter.
	HeaderContextStatus = "X-Context-Status"

	// HeaderContextTokens carries "before/after" token counts.
	HeaderContextTokens = "X-Context-Tokens"
)

// =============================================================================
// LIMITS
// =============================================================================

const (
	// MaxRequestBodySize bounds inbound bodies (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// proxyFlushInterval of -1 flushes after every write so streamed chat
	// chunks reach the client immediately.
	proxyFlushInterval = -1

	// upstreamDialTimeout bounds connection setup to the chat upstream.
	upstreamDialTimeout = 10 * time.Second
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Metrics   map[string]int64          `json:"metrics"`
	Config    StatsConfig               `json:"config"`
	Estimated bool                      `json:"token_counts_estimated"`
	Last      *summarization.StatusData `json:"last_status,omitempty"`
}

// StatsConfig echoes the active budget settings.
type StatsConfig struct {
	TokenThreshold           int    `json:"token_threshold"`
	MessagesToKeep           int    `json:"messages_to_keep"`
	MinMessagesToKeep        int    `json:"min_messages_to_keep"`
	ToolResultTokenThreshold int    `json:"tool_result_token_threshold"`
	SummarizerProvider       string `json:"summarizer_provider"`
	SummarizerModel          string `json:"summarizer_model,omitempty"`
}

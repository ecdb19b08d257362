// Package monitoring - request_logger.go logs HTTP request lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level:
//   - LogIncoming:  Request received from client
//   - LogFiltered:  Result of the summarization filter
//   - LogProxied:   Filtered request forwarded upstream
//   - LogResponse:  Response sent to client
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs HTTP request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo contains incoming request information.
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	BodySize   int
	StartTime  time.Time
}

// NewRequestInfo creates RequestInfo from an HTTP request.
func NewRequestInfo(r *http.Request, requestID string, bodySize int) *RequestInfo {
	return &RequestInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		BodySize:   bodySize,
		StartTime:  time.Now(),
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("body_size", info.BodySize).
		Msg("incoming")
}

// FilterInfo contains the outcome of one filter pass.
type FilterInfo struct {
	RequestID      string
	Action         string
	Outcome        string
	MessagesBefore int
	MessagesAfter  int
	OriginalTokens int
	FinalTokens    int
	Duration       time.Duration
}

// LogFiltered logs a filter pass. Rewritten conversations are logged at
// info level, passthroughs at debug.
func (rl *RequestLogger) LogFiltered(info *FilterInfo) {
	event := rl.logger.Debug()
	if info.Outcome != "" {
		event = rl.logger.Info()
	}
	event.
		Str("request_id", info.RequestID).
		Str("action", info.Action).
		Str("outcome", info.Outcome).
		Int("messages_before", info.MessagesBefore).
		Int("messages_after", info.MessagesAfter).
		Int("tokens_before", info.OriginalTokens).
		Int("tokens_after", info.FinalTokens).
		Dur("duration", info.Duration).
		Msg("filtered")
}

// LogProxied logs a request forwarded upstream.
func (rl *RequestLogger) LogProxied(requestID, target string, bodySize int) {
	rl.logger.Debug().
		Str("request_id", requestID).
		Str("target", target).
		Int("body_size", bodySize).
		Msg("outgoing")
}

// ResponseInfo contains response information.
type ResponseInfo struct {
	RequestID  string
	StatusCode int
	Latency    time.Duration
}

// LogResponse logs a response.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Int("status", info.StatusCode).
		Dur("latency", info.Latency).
		Msg("response")
}

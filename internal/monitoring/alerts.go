// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:          Warn when summarization exceeds threshold
//   - FlagSummarizationFailure: Error when the summarizer call fails (timeouts tagged)
//   - FlagUpstreamError:        Error when Ollama is unreachable, Warn on its 5xx
//   - FlagPanic:                Error on recovered panics
package monitoring

import (
	"context"
	"errors"
	"time"
)

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when summarization latency exceeds threshold.
// Returns true if the alert fired.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration, model string) bool {
	if latency < am.highLatencyThreshold {
		return false
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Dur("threshold", am.highLatencyThreshold).
		Str("model", model).
		Msg("high_latency")
	return true
}

// FlagSummarizationFailure logs a failed summarizer call. The conversation
// has already been truncated instead, so this is about summary quality, not
// availability.
func (am *AlertManager) FlagSummarizationFailure(requestID, model string, err error) {
	am.logger.Error().
		Str("request_id", requestID).
		Str("model", model).
		Bool("timeout", errors.Is(err, context.DeadlineExceeded)).
		Err(err).
		Msg("summarization_failed")
}

// FlagUpstreamError logs a failed proxied chat call. err is set when the
// upstream could not be reached at all; otherwise statusCode is its 5xx.
func (am *AlertManager) FlagUpstreamError(requestID, target string, statusCode int, err error) {
	if err != nil {
		am.logger.Error().
			Str("request_id", requestID).
			Str("target", target).
			Err(err).
			Msg("upstream_unreachable")
		return
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Str("target", target).
		Int("status", statusCode).
		Msg("upstream_error")
}

// FlagInvalidRequest logs invalid request.
func (am *AlertManager) FlagInvalidRequest(requestID, reason string) {
	am.logger.Debug().
		Str("request_id", requestID).
		Str("reason", reason).
		Msg("invalid_request")
}

// FlagPanic logs recovered panic.
func (am *AlertManager) FlagPanic(requestID string, panicValue interface{}, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Str("stack", stack).
		Msg("panic_recovered")
}

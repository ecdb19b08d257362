// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests:      Conversations seen by the filter
//   - passthroughs:  Left unchanged (empty, under threshold, nothing to summarize)
//   - summarized:    Replaced by an LLM summary
//   - fallbacks:     Replaced by the truncation note (empty or failed summary)
//   - tokens_saved:  Sum of original minus final tokens
//
// Served as JSON on GET /stats.
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	requests     atomic.Int64
	passthroughs atomic.Int64
	skipped      atomic.Int64
	summarized   atomic.Int64
	fallbacks    atomic.Int64
	failures     atomic.Int64
	tokensSaved  atomic.Int64
	latencyMs    atomic.Int64
	started      time.Time
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{started: time.Now()}
}

// RecordPassthrough records a conversation that was left unchanged.
// skipped marks one that was over budget but had nothing to summarize.
func (mc *MetricsCollector) RecordPassthrough(skipped bool) {
	mc.requests.Add(1)
	mc.passthroughs.Add(1)
	if skipped {
		mc.skipped.Add(1)
	}
}

// RecordSummarization records a rewritten conversation. outcome is the
// summarization outcome name: success, empty or failure.
func (mc *MetricsCollector) RecordSummarization(outcome string, originalTokens, finalTokens int, latency time.Duration) {
	mc.requests.Add(1)
	switch outcome {
	case "success":
		mc.summarized.Add(1)
	case "failure":
		mc.failures.Add(1)
		mc.fallbacks.Add(1)
	default:
		mc.fallbacks.Add(1)
	}
	if saved := originalTokens - finalTokens; saved > 0 {
		mc.tokensSaved.Add(int64(saved))
	}
	mc.latencyMs.Add(latency.Milliseconds())
}

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":             mc.requests.Load(),
		"passthroughs":         mc.passthroughs.Load(),
		"skipped":              mc.skipped.Load(),
		"summarized":           mc.summarized.Load(),
		"fallbacks":            mc.fallbacks.Load(),
		"failures":             mc.failures.Load(),
		"tokens_saved":         mc.tokensSaved.Load(),
		"summarize_latency_ms": mc.latencyMs.Load(),
		"uptime_seconds":       int64(time.Since(mc.started).Seconds()),
	}
}

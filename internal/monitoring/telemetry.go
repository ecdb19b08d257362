// Package monitoring - telemetry.go records events to JSONL files.
//
// DESIGN: Tracker writes one SummarizationEvent per filtered conversation as
// a JSONL line. Events are appended immediately for real-time logging. Write
// errors are logged and never returned to the request path.
package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tracker appends summarization events to a JSONL file and keeps running
// totals for the end-of-session log line.
type Tracker struct {
	config  TelemetryConfig
	logPath string

	mu          sync.Mutex
	eventCount  int
	tokensSaved int
	outcomes    map[string]int
}

// NewTracker creates a tracker. The log file is created up front so a bad
// path fails at startup rather than on the first summarization.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{config: cfg, outcomes: make(map[string]int)}

	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	f.Close()
	t.logPath = cfg.LogPath

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// RecordSummarization appends one event. Failures are logged, never returned.
func (t *Tracker) RecordSummarization(event *SummarizationEvent) {
	if !t.config.Enabled || event == nil {
		return
	}
	ev := *event
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		log.Info().
			Str("request_id", ev.RequestID).
			Str("action", ev.Action).
			Str("outcome", ev.Outcome).
			Int("original_tokens", ev.OriginalTokens).
			Int("final_tokens", ev.FinalTokens).
			Msg("telemetry")
	}

	if t.logPath == "" {
		return
	}
	if err := appendJSONL(t.logPath, &ev); err != nil {
		log.Error().Err(err).Str("path", t.logPath).Msg("telemetry: failed to write summarization event")
		return
	}
	t.eventCount++
	t.tokensSaved += ev.TokensSaved
	if ev.Outcome != "" {
		t.outcomes[ev.Outcome]++
	}
}

// Events returns how many events were written.
func (t *Tracker) Events() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eventCount
}

// Close logs the session totals. The file is opened per write, so there is
// nothing to release.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.eventCount == 0 {
		return nil
	}
	outcomes := zerolog.Dict()
	for name, n := range t.outcomes {
		outcomes.Int(name, n)
	}
	log.Info().
		Str("path", t.logPath).
		Int("events", t.eventCount).
		Int("tokens_saved", t.tokensSaved).
		Dict("outcomes", outcomes).
		Msg("telemetry: session complete")
	return nil
}

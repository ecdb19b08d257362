// Filter wiring - builds the summarization filter and runs it per request.
//
// DESIGN: runFilter is the only place the gateway touches the pipeline. It
// turns status events into logs, and records metrics, telemetry and alerts
// from the Result. It never returns an error: Inlet cannot fail.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/washu-tag/context-gateway/external"
	"github.com/washu-tag/context-gateway/internal/monitoring"
	"github.com/washu-tag/context-gateway/internal/summarization"
)

// NewFilter builds the summarization filter for cfg. Bedrock summarizers get
// a SigV4-signing client from the default AWS credential chain; other
// providers use client (nil for a fresh one).
func NewFilter(ctx context.Context, cfg summarization.Config, client *http.Client, logger zerolog.Logger) (*summarization.Filter, error) {
	cfg = cfg.WithDefaults()
	if cfg.Summarizer.Provider == summarization.ProviderBedrock {
		signed, err := external.NewBedrockHTTPClient(ctx, cfg.Summarizer.Region)
		if err != nil {
			return nil, fmt.Errorf("bedrock summarizer: %w", err)
		}
		client = signed
	}
	return summarization.NewFilter(cfg,
		summarization.WithSummarizer(summarization.NewLLMSummarizer(cfg.Summarizer, client)),
		summarization.WithLogger(logger.With().Str("component", "summarization").Logger()),
	), nil
}

// runFilter runs the pipeline on req and records the outcome.
func (g *Gateway) runFilter(ctx context.Context, req summarization.Request, path string) summarization.Result {
	requestID := monitoring.RequestIDFromContext(ctx)
	emit := func(_ context.Context, ev summarization.StatusEvent) {
		data := ev.Data
		g.lastStatus.Store(&data)
		g.logger.Info().
			Str("request_id", requestID).
			Bool("done", ev.Data.Done).
			Msg(ev.Data.Description)
	}

	start := time.Now()
	res := g.filter.Inlet(ctx, req, emit)
	elapsed := time.Since(start)

	outcome := ""
	if res.Outcome != nil {
		outcome = summarization.OutcomeName(res.Outcome)
	}

	g.requestLogger.LogFiltered(&monitoring.FilterInfo{
		RequestID:      requestID,
		Action:         string(res.Action),
		Outcome:        outcome,
		MessagesBefore: len(req.Messages),
		MessagesAfter:  len(res.Messages),
		OriginalTokens: res.OriginalTokens,
		FinalTokens:    res.FinalTokens,
		Duration:       elapsed,
	})

	if !res.Changed {
		g.metrics.RecordPassthrough(res.Action == summarization.ActionSkippedNoOld)
	} else {
		g.metrics.RecordSummarization(outcome, res.OriginalTokens, res.FinalTokens, elapsed)
		g.alerts.FlagHighLatency(requestID, elapsed, res.SummaryModel)
	}

	var errMsg string
	if failure, ok := res.Outcome.(summarization.OutcomeFailure); ok && failure.Err != nil {
		errMsg = failure.Err.Error()
		g.alerts.FlagSummarizationFailure(requestID, res.SummaryModel, failure.Err)
	}

	if res.Action != summarization.ActionPassthroughThreshold && res.Action != summarization.ActionPassthroughEmpty {
		g.tracker.RecordSummarization(&monitoring.SummarizationEvent{
			RequestID:      requestID,
			Timestamp:      start.UTC(),
			Path:           path,
			Model:          req.Model,
			SummaryModel:   res.SummaryModel,
			Action:         string(res.Action),
			Outcome:        outcome,
			Error:          errMsg,
			MessagesBefore: len(req.Messages),
			MessagesAfter:  len(res.Messages),
			OldMessages:    res.OldMessages,
			RecentMessages: res.RecentMessages,
			OriginalTokens: res.OriginalTokens,
			FinalTokens:    res.FinalTokens,
			TokensSaved:    res.OriginalTokens - res.FinalTokens,
			ToolSummaries:  res.ToolSummaries,
			LatencyMs:      elapsed.Milliseconds(),
		})
	}

	return res
}

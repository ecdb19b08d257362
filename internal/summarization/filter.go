// Package summarization - filter.go is the pipeline entry point.
//
// FLOW:
//  1. Count tokens; under the threshold the conversation passes through
//  2. Extract the base system prompt
//  3. Split the rest into old and recent (dynamic keep count)
//  4. Compact large tool payloads in old, collect their digests
//  5. Summarize old (one call, three outcomes)
//  6. Reconstruct: base + summary or truncation note + recent
//
// Inlet never fails: every problem degrades to a valid conversation.
package summarization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status descriptions.
const (
	statusSummarizing   = "Summarizing conversation (%s tokens)..."
	statusTooLarge      = "Context too large to summarize effectively"
	statusFailed        = "Summarization failed, truncating older messages"
	statusSummarized    = "Summarized: %s → %s tokens"
	statusTruncated     = "Truncated: %s → %s tokens (summarization failed)"
	statusEventTypeName = "status"
)

// Emitter receives status events. It is called synchronously from Inlet and
// must not block; its return and any panic are ignored.
type Emitter func(ctx context.Context, event StatusEvent)

// =============================================================================
// FILTER
// =============================================================================

// Filter runs the summarization pipeline. It holds only read-only state and is
// safe for concurrent use.
type Filter struct {
	config     Config
	counter    *TokenCounter
	summarizer Summarizer
	logger     zerolog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithSummarizer replaces the LLM-backed summarizer.
func WithSummarizer(s Summarizer) Option {
	return func(f *Filter) { f.summarizer = s }
}

// WithTokenCounter replaces the token counter.
func WithTokenCounter(c *TokenCounter) Option {
	return func(f *Filter) { f.counter = c }
}

// WithLogger sets the logger used for pipeline logs.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// NewFilter creates a filter. Zero-valued config fields take their defaults.
func NewFilter(cfg Config, opts ...Option) *Filter {
	cfg = cfg.WithDefaults()
	f := &Filter{
		config: cfg,
		logger: log.Logger.With().Str("component", "summarization").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	// debug_logging opts this component in regardless of log_level.
	// A disabled logger stays disabled.
	if lvl := f.logger.GetLevel(); cfg.DebugLogging && lvl > zerolog.DebugLevel && lvl != zerolog.Disabled {
		f.logger = f.logger.Level(zerolog.DebugLevel)
	}
	if f.counter == nil {
		f.counter = NewTokenCounter(cfg.Encoding, cfg.TokenEstimateRatio)
	}
	if f.summarizer == nil {
		f.summarizer = NewLLMSummarizer(cfg.Summarizer, nil)
	}
	return f
}

// Config returns the filter's configuration.
func (f *Filter) Config() Config {
	return f.config
}

// Counter returns the filter's token counter.
func (f *Filter) Counter() *TokenCounter {
	return f.counter
}

// Inlet fits req's conversation into the token budget.
func (f *Filter) Inlet(ctx context.Context, req Request, emit Emitter) Result {
	messages := req.Messages
	if len(messages) == 0 {
		f.debug().Msg("no messages, passing through")
		return Result{Messages: clone(messages), Action: ActionPassthroughEmpty}
	}

	tokens := f.counter.CountAll(messages)
	f.debug().
		Int("tokens", tokens).
		Int("threshold", f.config.TokenThreshold).
		Int("messages", len(messages)).
		Msg("inlet start")
	f.logMessages(messages, "INPUT")
	f.dumpMessages(messages)

	if tokens < f.config.TokenThreshold {
		f.debug().Msgf("under threshold (%s < %s), passing through",
			formatThousands(tokens), formatThousands(f.config.TokenThreshold))
		return Result{
			Messages:       clone(messages),
			Action:         ActionPassthroughThreshold,
			OriginalTokens: tokens,
			FinalTokens:    tokens,
		}
	}

	res := Result{OriginalTokens: tokens}
	status := func(desc string, done bool) {
		res.Status = desc
		f.emit(ctx, emit, desc, done)
	}

	status(fmt.Sprintf(statusSummarizing, formatThousands(tokens)), false)

	base, conversation := ExtractBasePrompt(messages)
	old, recent := FindDynamicSplit(conversation, f.config.MessagesToKeep, f.config.MinMessagesToKeep)
	f.debug().
		Int("base", len(base)).
		Int("old", len(old)).
		Int("recent", len(recent)).
		Msg("split conversation")

	if len(old) == 0 {
		f.logger.Warn().
			Int("tokens", tokens).
			Int("messages", len(messages)).
			Err(ErrNothingToSummarize).
			Msg("summarization skipped, passing through unchanged")
		status(statusTooLarge, true)
		res.Messages = clone(messages)
		res.Action = ActionSkippedNoOld
		res.FinalTokens = tokens
		res.RecentMessages = len(recent)
		return res
	}
	f.logMessages(old, "OLD (to summarize)")
	f.logMessages(recent, "RECENT (to keep)")

	prepared, toolSummaries := PrepareForSummarization(old, f.counter, f.config.ToolResultTokenThreshold)
	f.debug().
		Int("prepared", len(prepared)).
		Int("prepared_tokens", f.counter.CountAll(prepared)).
		Int("tool_summaries", len(toolSummaries)).
		Msg("prepared old messages")
	f.logMessages(prepared, "PREPARED")

	model := f.config.Summarizer.Model
	if model == "" {
		model = req.Model
	}
	prompt := BuildSummarizationPrompt(prepared)
	f.debug().Int("prompt_chars", len(prompt)).Str("model", model).Msg("calling summarizer")

	start := time.Now()
	outcome := f.summarize(ctx, prompt, model)
	elapsed := time.Since(start)

	switch o := outcome.(type) {
	case OutcomeSuccess:
		f.debug().Int("summary_tokens", f.counter.Count(o.Text)).Dur("elapsed", elapsed).Msg("summary complete")
		if !f.config.DumpFullMessages {
			f.debug().Msgf("summary:\n%s", o.Text)
		}
	case OutcomeEmpty:
		f.logger.Warn().Err(o.Reason).Int("prompt_chars", len(prompt)).Msg("summarizer returned nothing, truncating")
	case OutcomeFailure:
		f.logger.Error().Err(o.Err).Str("model", model).Dur("elapsed", elapsed).Msg("summarization failed, truncating")
		status(statusFailed, false)
	}

	final := Reconstruct(base, outcome, toolSummaries, recent)
	finalTokens := f.counter.CountAll(final)

	res.Messages = final
	res.Changed = true
	res.Outcome = outcome
	res.FinalTokens = finalTokens
	res.OldMessages = len(old)
	res.RecentMessages = len(recent)
	res.ToolSummaries = toolSummaries
	res.SummaryModel = model
	res.Action = ActionSummarized
	if _, failed := outcome.(OutcomeFailure); failed {
		res.Action = ActionTruncated
		status(fmt.Sprintf(statusTruncated, formatThousands(tokens), formatThousands(finalTokens)), true)
	} else {
		status(fmt.Sprintf(statusSummarized, formatThousands(tokens), formatThousands(finalTokens)), true)
	}

	f.debug().
		Int("tokens_before", tokens).
		Int("tokens_after", finalTokens).
		Int("tokens_saved", tokens-finalTokens).
		Int("messages_before", len(messages)).
		Int("messages_after", len(final)).
		Msg("inlet complete")
	f.logMessages(final, "OUTPUT")
	return res
}

// summarize calls the summarizer, turning a panic or nil outcome into a
// failure. An empty prompt never reaches the summarizer.
func (f *Filter) summarize(ctx context.Context, prompt, model string) (outcome SummaryOutcome) {
	if prompt == "" {
		return OutcomeEmpty{Reason: ErrEmptyPrompt}
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailure{Err: fmt.Errorf("summarizer panic: %v", r)}
		}
	}()
	outcome = f.summarizer.Summarize(ctx, prompt, model)
	if outcome == nil {
		outcome = OutcomeFailure{Err: fmt.Errorf("summarizer returned no outcome")}
	}
	return outcome
}

func (f *Filter) emit(ctx context.Context, emit Emitter, desc string, done bool) {
	f.debug().Str("status", desc).Bool("done", done).Msg("status")
	if emit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn().Interface("panic", r).Msg("status emitter panicked")
		}
	}()
	emit(ctx, StatusEvent{Type: statusEventTypeName, Data: StatusData{Description: desc, Done: done}})
}

// Summarization service: one outbound call, three outcomes.
package summarization

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/washu-tag/context-gateway/external"
)

var (
	// ErrEmptyPrompt means there was nothing to summarize after preparation.
	ErrEmptyPrompt = errors.New("summarization prompt is empty")

	// ErrEmptySummary means the summarizer answered without usable text.
	ErrEmptySummary = errors.New("summarizer returned an empty summary")

	// ErrNothingToSummarize means no split left any old messages.
	ErrNothingToSummarize = errors.New("no old messages to summarize")
)

// =============================================================================
// OUTCOMES
// =============================================================================

// SummaryOutcome is the result of a summarization attempt: one of
// OutcomeSuccess, OutcomeEmpty or OutcomeFailure.
type SummaryOutcome interface {
	isSummaryOutcome()
}

// OutcomeSuccess carries a non-empty narrative summary.
type OutcomeSuccess struct {
	Text string
}

// OutcomeEmpty means the call succeeded (or was skipped) without usable text.
type OutcomeEmpty struct {
	Reason error
}

// OutcomeFailure means the call failed or timed out.
type OutcomeFailure struct {
	Err error
}

func (OutcomeSuccess) isSummaryOutcome() {}
func (OutcomeEmpty) isSummaryOutcome()   {}
func (OutcomeFailure) isSummaryOutcome() {}

// OutcomeName returns a short label for logs and telemetry.
func OutcomeName(o SummaryOutcome) string {
	switch o.(type) {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailure:
		return "failure"
	default:
		return "none"
	}
}

// =============================================================================
// SUMMARIZER
// =============================================================================

// Summarizer turns a prompt into a narrative summary.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, model string) SummaryOutcome
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, prompt, model string) SummaryOutcome

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, prompt, model string) SummaryOutcome {
	return f(ctx, prompt, model)
}

// LLMSummarizer calls a text generation endpoint.
type LLMSummarizer struct {
	config SummarizerConfig
	client *http.Client
}

// NewLLMSummarizer creates a summarizer. client may be nil; bedrock needs a
// signing client (see external.NewBedrockHTTPClient).
func NewLLMSummarizer(cfg SummarizerConfig, client *http.Client) *LLMSummarizer {
	return &LLMSummarizer{config: cfg, client: client}
}

// Summarize implements Summarizer. An empty prompt is OutcomeEmpty without a
// network call.
func (s *LLMSummarizer) Summarize(ctx context.Context, prompt, model string) SummaryOutcome {
	if strings.TrimSpace(prompt) == "" {
		return OutcomeEmpty{Reason: ErrEmptyPrompt}
	}

	start := time.Now()
	result, err := external.Generate(ctx, external.GenerateParams{
		Provider:   s.config.Provider,
		BaseURL:    s.config.BaseURL,
		APIKey:     s.config.APIKey,
		Region:     s.config.Region,
		Model:      model,
		Prompt:     prompt,
		MaxTokens:  s.config.MaxTokens,
		Timeout:    s.config.Timeout,
		HTTPClient: s.client,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("provider", s.config.Provider).
			Str("model", model).
			Dur("elapsed", time.Since(start)).
			Msg("summarization: call failed")
		return OutcomeFailure{Err: err}
	}

	if strings.TrimSpace(result.Content) == "" {
		return OutcomeEmpty{Reason: ErrEmptySummary}
	}

	log.Debug().
		Str("provider", result.Provider).
		Str("model", model).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Dur("duration", result.Duration).
		Msg("summarization: summary generated")
	return OutcomeSuccess{Text: result.Content}
}

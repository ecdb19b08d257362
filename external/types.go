// Package external makes the outbound summarization call.
//
// DESIGN: One synchronous, non-streaming text generation request per call. The
// generated text is read from a single provider-specific JSON field; a missing
// field is an empty result, not an error. No retries.
package external

// =============================================================================
// OLLAMA
// =============================================================================

// OllamaGenerateRequest is the body of POST /api/generate.
type OllamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// OPENAI
// =============================================================================

// OpenAIChatRequest is the body of POST /v1/chat/completions.
type OpenAIChatRequest struct {
	Model               string          `json:"model"`
	Messages            []OpenAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Stream              bool            `json:"stream"`
}

// OpenAIMessage is one chat message.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// ANTHROPIC / BEDROCK
// =============================================================================

// AnthropicRequest is the Messages API body. Bedrock uses the same body with
// anthropic_version set and the model in the URL.
type AnthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version,omitempty"`
	Model            string             `json:"model,omitempty"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []AnthropicMessage `json:"messages"`
	Temperature      float64            `json:"temperature"`
}

// AnthropicMessage is one message of a Messages API request.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// RESPONSE FIELDS
// =============================================================================

// Paths (gjson syntax) of the generated text and usage counters per provider.
const (
	ollamaTextPath         = "response"
	ollamaInputTokensPath  = "prompt_eval_count"
	ollamaOutputTokensPath = "eval_count"

	openAITextPath         = "choices.0.message.content"
	openAIInputTokensPath  = "usage.prompt_tokens"
	openAIOutputTokensPath = "usage.completion_tokens"

	anthropicTextPath         = "content.0.text"
	anthropicInputTokensPath  = "usage.input_tokens"
	anthropicOutputTokensPath = "usage.output_tokens"
)

// Text generation client for the summarizer.
//
// Generate is the single entry point. Supported providers:
//   - ollama:    POST {base}/api/generate             text at "response"
//   - openai:    POST {base}/v1/chat/completions      text at "choices.0.message.content"
//   - anthropic: POST {base}/v1/messages              text at "content.0.text"
//   - bedrock:   POST {base}/model/{model}/invoke     text at "content.0.text" (SigV4)
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout for generation calls.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is used when the caller leaves MaxTokens unset.
	DefaultMaxTokens = 1024

	// maxResponseSize prevents OOM on unexpectedly large API responses (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBodyLen limits error body in error messages to avoid log bloat.
	maxErrorBodyLen = 500

	anthropicVersion = "2023-06-01"
	bedrockVersion   = "bedrock-2023-05-31"
)

// Providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

var (
	// ErrTimeout is returned when the call does not complete within Timeout.
	ErrTimeout = errors.New("generation request timed out")

	// ErrUnknownProvider is returned for a provider name Generate does not know.
	ErrUnknownProvider = errors.New("unknown provider")
)

// GenerateParams contains parameters for one generation call.
type GenerateParams struct {
	Provider  string // default: ollama
	BaseURL   string
	APIKey    string
	Region    string // bedrock only
	Model     string
	Prompt    string
	MaxTokens int
	Timeout   time.Duration

	// HTTPClient overrides the default client. For bedrock it must sign
	// requests; see NewBedrockHTTPClient.
	HTTPClient *http.Client
}

// validate checks that required fields are present and sets defaults.
func (p *GenerateParams) validate() error {
	if p.Provider == "" {
		p.Provider = ProviderOllama
	}
	switch p.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
		if p.BaseURL == "" {
			return fmt.Errorf("base url required")
		}
	case ProviderBedrock:
		if p.BaseURL == "" {
			region := p.Region
			if region == "" {
				region = DefaultBedrockRegion
			}
			p.BaseURL = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownProvider, p.Provider)
	}
	if p.Model == "" {
		return fmt.Errorf("model required")
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	return nil
}

// GenerateResult contains the response of a generation call.
// Content is empty when the response carried no text field.
type GenerateResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Provider     string
	Duration     time.Duration
}

// Generate sends prompt to the configured provider and returns the generated
// text. Transport failures, non-200 statuses and non-JSON bodies are errors;
// an absent text field is not.
func Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid generate params: %w", err)
	}
	provider := params.Provider

	endpoint, err := endpointFor(params)
	if err != nil {
		return nil, err
	}
	body, err := buildRequestBody(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeaders(req, provider, params.APIKey)

	client := params.HTTPClient
	if client == nil {
		client = &http.Client{} // timeout via context, not client
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s: %w", ErrTimeout, provider, params.Timeout, err)
		}
		return nil, fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s: %w", ErrTimeout, provider, params.Timeout, err)
		}
		return nil, fmt.Errorf("failed to read %s response: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody := string(respBody)
		if len(errBody) > maxErrorBodyLen {
			errBody = errBody[:maxErrorBodyLen] + "... (truncated)"
		}
		return nil, fmt.Errorf("%s API returned status %d: %s", provider, resp.StatusCode, errBody)
	}

	result, err := parseResponse(provider, respBody)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func endpointFor(p GenerateParams) (string, error) {
	base := strings.TrimRight(p.BaseURL, "/")
	switch p.Provider {
	case ProviderOpenAI:
		return base + "/v1/chat/completions", nil
	case ProviderAnthropic:
		return base + "/v1/messages", nil
	case ProviderBedrock:
		return base + "/model/" + url.PathEscape(p.Model) + "/invoke", nil
	default:
		return base + "/api/generate", nil
	}
}

func setAuthHeaders(req *http.Request, provider, apiKey string) {
	switch provider {
	case ProviderAnthropic:
		if apiKey != "" {
			req.Header.Set("x-api-key", apiKey)
		}
		req.Header.Set("anthropic-version", anthropicVersion)
	case ProviderBedrock:
		// Signed by the transport.
	default: // ollama, openai
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
}

func buildRequestBody(p GenerateParams) ([]byte, error) {
	switch p.Provider {
	case ProviderOpenAI:
		return json.Marshal(&OpenAIChatRequest{
			Model:               p.Model,
			Messages:            []OpenAIMessage{{Role: "user", Content: p.Prompt}},
			MaxCompletionTokens: p.MaxTokens,
		})
	case ProviderAnthropic, ProviderBedrock:
		req := &AnthropicRequest{
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
			Messages:  []AnthropicMessage{{Role: "user", Content: p.Prompt}},
		}
		if p.Provider == ProviderBedrock {
			// Bedrock takes the model from the URL.
			req.Model = ""
			req.AnthropicVersion = bedrockVersion
		}
		return json.Marshal(req)
	default:
		return json.Marshal(&OllamaGenerateRequest{
			Model:  p.Model,
			Prompt: p.Prompt,
			Stream: false,
		})
	}
}

func parseResponse(provider string, body []byte) (*GenerateResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse %s response: invalid JSON", provider)
	}

	var textPath, inPath, outPath string
	switch provider {
	case ProviderOpenAI:
		textPath, inPath, outPath = openAITextPath, openAIInputTokensPath, openAIOutputTokensPath
	case ProviderAnthropic, ProviderBedrock:
		textPath, inPath, outPath = anthropicTextPath, anthropicInputTokensPath, anthropicOutputTokensPath
	default:
		textPath, inPath, outPath = ollamaTextPath, ollamaInputTokensPath, ollamaOutputTokensPath
	}

	fields := gjson.GetManyBytes(body, textPath, inPath, outPath)
	result := &GenerateResult{
		Provider:     provider,
		InputTokens:  int(fields[1].Int()),
		OutputTokens: int(fields[2].Int()),
	}
	if fields[0].Type == gjson.String {
		result.Content = fields[0].String()
	}
	return result, nil
}

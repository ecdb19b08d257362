// Package summarization - tokens.go implements token accounting.
//
// DESIGN: Counts use a fixed tiktoken encoding (cl100k_base) loaded from the
// BPE ranks embedded in the binary, so thresholds mean the same thing on
// every deployment and no network fetch happens at startup. If the encoding
// cannot be loaded the counter degrades to a bytes/ratio estimate; counting
// never fails.
package summarization

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/rs/zerolog/log"
)

var setLoaderOnce sync.Once

// TokenCounter estimates the token cost of text and messages.
// It is safe for concurrent use.
type TokenCounter struct {
	enc   *tiktoken.Tiktoken
	ratio int
}

// NewTokenCounter returns a counter for the given tiktoken encoding.
// ratio is the bytes-per-token estimate used when the encoding is unavailable.
func NewTokenCounter(encoding string, ratio int) *TokenCounter {
	setLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if ratio <= 0 {
		ratio = 4
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		log.Warn().Err(err).Str("encoding", encoding).Int("ratio", ratio).
			Msg("summarization: tokenizer unavailable, estimating tokens from byte length")
		return &TokenCounter{ratio: ratio}
	}
	return &TokenCounter{enc: enc, ratio: ratio}
}

// Estimated reports whether the counter fell back to byte-length estimation.
func (t *TokenCounter) Estimated() bool {
	return t.enc == nil
}

// Count returns the number of tokens in text. Empty text is 0.
func (t *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if t.enc == nil {
		return (len(text) + t.ratio - 1) / t.ratio
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessage returns the token cost of one message. Multi-part content is the
// sum of its text parts; images and other parts cost nothing.
func (t *TokenCounter) CountMessage(msg Message) int {
	if !msg.Content.IsMultipart() {
		return t.Count(msg.Content.Text)
	}
	total := 0
	for _, part := range msg.Content.Parts {
		if part.Type == "text" {
			total += t.Count(part.Text)
		}
	}
	return total
}

// CountAll returns the total token cost of messages.
func (t *TokenCounter) CountAll(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountMessage(msg)
	}
	return total
}

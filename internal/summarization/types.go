// Package summarization keeps a chat conversation inside its token budget.
//
// DESIGN: When a conversation crosses the configured token threshold, the
// oldest turns are replaced by one synthesized system message while the base
// system prompt and the most recent turns survive verbatim.
//
// ARCHITECTURE:
//   - TokenCounter:  Token accounting (tiktoken cl100k_base)
//   - Segmenter:     ExtractBasePrompt, SplitConversation, FindDynamicSplit
//   - Extractor:     HasEmbeddedResult, ParseEmbeddedResult, ExtractResultInfo
//   - Compactor:     Compact (large tool payloads -> [Tool: ...] digests)
//   - Summarizer:    One outbound LLM call, three outcomes
//   - Filter:        Inlet orchestrates everything and reconstructs messages
package summarization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// =============================================================================
// ROLES
// =============================================================================

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// =============================================================================
// CONTENT
// =============================================================================

// ContentPart is one element of multi-part message content.
// Only parts of type "text" count toward the token budget.
type ContentPart struct {
	Type string
	Text string

	raw json.RawMessage // original encoding, re-emitted unchanged
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// UnmarshalJSON keeps the original bytes so non-text parts (images, files)
// round-trip untouched.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid content part")
	}
	p.raw = append(json.RawMessage(nil), data...)
	p.Type = gjson.GetBytes(data, "type").String()
	if text := gjson.GetBytes(data, "text"); text.Type == gjson.String {
		p.Text = text.String()
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	if p.raw != nil {
		return p.raw, nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}{p.Type, p.Text})
}

func (p ContentPart) clone() ContentPart {
	p.raw = cloneRaw(p.raw)
	return p
}

// Content is either a plain string or an ordered list of parts.
type Content struct {
	Text  string
	Parts []ContentPart

	multi bool
	raw   json.RawMessage // content of any other JSON type
}

// StringContent returns plain string content.
func StringContent(text string) Content {
	return Content{Text: text}
}

// PartsContent returns multi-part content.
func PartsContent(parts ...ContentPart) Content {
	return Content{Parts: parts, multi: true}
}

func (c Content) clone() Content {
	if c.Parts != nil {
		parts := make([]ContentPart, len(c.Parts))
		for i, p := range c.Parts {
			parts[i] = p.clone()
		}
		c.Parts = parts
	}
	c.raw = cloneRaw(c.raw)
	return c
}

// IsMultipart reports whether the content is a list of parts.
func (c Content) IsMultipart() bool {
	return c.multi
}

// String returns the text of the content. Multi-part content joins its text
// parts with newlines; anything else is empty.
func (c Content) String() string {
	if !c.multi {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return json.Unmarshal(trimmed, &c.Text)
	case trimmed[0] == '[':
		c.multi = true
		return json.Unmarshal(trimmed, &c.Parts)
	default:
		c.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.raw != nil:
		return c.raw, nil
	case c.multi:
		if c.Parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Parts)
	default:
		return json.Marshal(c.Text)
	}
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is one turn of a conversation. Messages are treated as immutable
// values: every stage of the pipeline builds new messages instead of editing.
type Message struct {
	Role    Role
	Content Content

	// Extra holds fields the pipeline does not interpret (name, images, ...).
	Extra map[string]json.RawMessage
}

// NewMessage returns a message with plain string content.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Content: StringContent(text)}
}

// Clone returns a copy of m that shares no storage with it.
func (m Message) Clone() Message {
	m.Content = m.Content.clone()
	if m.Extra != nil {
		extra := make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			extra[k] = cloneRaw(v)
		}
		m.Extra = extra
	}
	return m
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage{}, raw...)
}

// Text returns the textual content of the message.
func (m Message) Text() string {
	return m.Content.String()
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	*m = Message{}
	if raw, ok := fields["role"]; ok {
		var role string
		if err := json.Unmarshal(raw, &role); err != nil {
			return fmt.Errorf("decode message role: %w", err)
		}
		m.Role = Role(role)
		delete(fields, "role")
	}
	if raw, ok := fields["content"]; ok {
		if err := m.Content.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("decode message content: %w", err)
		}
		delete(fields, "content")
	}
	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	role, err := json.Marshal(string(m.Role))
	if err != nil {
		return nil, err
	}
	content, err := m.Content.MarshalJSON()
	if err != nil {
		return nil, err
	}
	out["role"] = role
	out["content"] = content
	return json.Marshal(out)
}

// =============================================================================
// STATUS EVENTS
// =============================================================================

// StatusEvent is a user-visible progress notification. The shape matches the
// event emitter payload used by Open WebUI filters.
type StatusEvent struct {
	Type string     `json:"type"`
	Data StatusData `json:"data"`
}

// StatusData carries the status text.
type StatusData struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Request is the conversation-bearing input to Filter.Inlet.
type Request struct {
	Messages []Message
	Model    string

	// User identity as sent by the host. Not used by the pipeline itself.
	User json.RawMessage
}

// Action describes what Inlet did with a conversation.
type Action string

const (
	ActionPassthroughEmpty     Action = "passthrough_empty"
	ActionPassthroughThreshold Action = "passthrough_under_threshold"
	ActionSkippedNoOld         Action = "skipped_nothing_to_summarize"
	ActionSummarized           Action = "summarized"
	ActionTruncated            Action = "truncated"
)

// Result is the output of Filter.Inlet.
type Result struct {
	Messages []Message
	Changed  bool
	Action   Action

	// Outcome of the summarization call; nil when no call was attempted.
	Outcome SummaryOutcome

	OriginalTokens int
	FinalTokens    int
	OldMessages    int
	RecentMessages int
	ToolSummaries  []string
	SummaryModel   string

	// Status is the last status description emitted, if any.
	Status string
}

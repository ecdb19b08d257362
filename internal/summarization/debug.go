package summarization

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const previewLen = 80

// debug returns a debug event, or nil when debug logging is off.
// A nil *zerolog.Event discards everything chained on it.
func (f *Filter) debug() *zerolog.Event {
	if !f.config.DebugLogging {
		return nil
	}
	return f.logger.Debug()
}

func (f *Filter) logMessages(messages []Message, label string) {
	if e := f.debug(); e != nil {
		e.Msg(FormatMessagesSummary(messages, label, f.counter, f.config.DumpFullMessages))
	}
}

// dumpMessages logs every message in full when DumpFullMessages is set.
func (f *Filter) dumpMessages(messages []Message) {
	if !f.config.DumpFullMessages {
		return
	}
	for i, msg := range messages {
		f.logger.Debug().
			Int("index", i).
			Str("role", string(msg.Role)).
			Str("content", msg.Text()).
			Msg("message dump")
	}
}

// FormatMessagesSummary renders one line per message with its role, token
// count and an 80-character preview. With full set, whole contents are
// included instead of previews.
func FormatMessagesSummary(messages []Message, label string, counter *TokenCounter, full bool) string {
	if label == "" {
		label = "Messages"
	}
	if len(messages) == 0 {
		return label + ": (empty)"
	}

	lines := []string{fmt.Sprintf("%s: %d messages", label, len(messages))}
	for i, msg := range messages {
		role := string(msg.Role)
		if role == "" {
			role = "unknown"
		}
		tokens := counter.CountMessage(msg)

		if msg.Content.IsMultipart() {
			lines = append(lines, fmt.Sprintf("  [%d] %s: %d tokens - [%d parts]", i, role, tokens, len(msg.Content.Parts)))
			continue
		}

		content := msg.Content.Text
		if full {
			lines = append(lines,
				fmt.Sprintf("  [%d] %s: %d tokens", i, role, tokens),
				"--- START CONTENT ---",
				content,
				"--- END CONTENT ---")
			continue
		}

		preview := strings.ReplaceAll(prefixRunes(content, previewLen), "\n", " ")
		if utf8.RuneCountInString(content) > previewLen {
			preview += "..."
		}
		lines = append(lines, fmt.Sprintf("  [%d] %s: %d tokens - %s", i, role, tokens, preview))
	}
	return strings.Join(lines, "\n")
}

package summarization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	sampleMaxLen        = 120
	commentaryMinLen    = 30
	commentaryMaxLen    = 500
	digestFieldSep      = " | "
	sampleTruncatedTail = "...}"
)

// payloadEndMarkers close the serialized payload; prose after the last one is
// the assistant's own commentary.
var payloadEndMarkers = []string{`}"`, `}'`, `}]"`}

// Compact replaces an assistant message carrying a large tool payload with a
// [Tool: ...] digest, keeping any commentary the assistant wrote after the
// payload. Messages without text are returned unchanged.
func Compact(msg Message) Message {
	out, _ := compact(msg)
	return out
}

// compact returns the compacted message and its digest line.
func compact(msg Message) (Message, string) {
	content := msg.Text()
	if content == "" {
		return msg, ""
	}

	digest := buildDigest(content, ExtractResultInfo(content))
	if commentary := trailingCommentary(content); commentary != "" {
		return NewMessage(RoleAssistant, digest+"\n\n"+commentary), digest
	}
	return NewMessage(RoleAssistant, digest), digest
}

func buildDigest(content string, info ResultInfo) string {
	var parts []string
	if info.HasError && info.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d failed queries", info.ErrorCount))
	}
	switch {
	case info.ResultCount != nil:
		parts = append(parts, fmt.Sprintf("%d rows", *info.ResultCount))
		if len(info.SampleRow) > 0 {
			parts = append(parts, renderSample(info.SampleRow))
		}
	case info.HasResults:
		parts = append(parts, "results returned")
	}

	if len(parts) == 0 {
		return fmt.Sprintf("[Tool: %s chars]", formatThousands(utf8.RuneCountInString(content)))
	}
	return "[Tool: " + strings.Join(parts, digestFieldSep) + "]"
}

func renderSample(row Row) string {
	s := RenderRow(row)
	if utf8.RuneCountInString(s) > sampleMaxLen {
		s = prefixRunes(s, sampleMaxLen) + sampleTruncatedTail
	}
	return s
}

// trailingCommentary returns the prose after the last payload end marker, or
// "" when too little text remains to be worth keeping.
func trailingCommentary(content string) string {
	decoded := html.UnescapeString(content)
	end := -1
	for _, marker := range payloadEndMarkers {
		if i := strings.LastIndex(decoded, marker); i > end {
			end = i
		}
	}
	if end <= 0 {
		return ""
	}

	after := strings.TrimSpace(decoded[end+2:])
	cleaned := strings.TrimLeftFunc(after, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\''
	})
	if utf8.RuneCountInString(cleaned) <= commentaryMinLen {
		return ""
	}
	if utf8.RuneCountInString(cleaned) > commentaryMaxLen {
		cleaned = prefixRunes(cleaned, commentaryMaxLen) + "..."
	}
	return cleaned
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderRow renders row as a JSON object with ": " and ", " separators,
// keeping key order and non-ASCII text as is.
func RenderRow(row Row) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range row {
		if i > 0 {
			b.WriteString(", ")
		}
		writeJSONString(&b, f.Key)
		b.WriteString(": ")
		writeValue(&b, f.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		writeJSONString(b, val)
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case json.Number:
		b.WriteString(val.String())
	case json.RawMessage:
		writeRaw(b, gjson.ParseBytes(val))
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			b.WriteString("null")
			return
		}
		writeRaw(b, gjson.ParseBytes(raw))
	}
}

func writeRaw(b *strings.Builder, r gjson.Result) {
	switch {
	case r.IsObject():
		b.WriteByte('{')
		first := true
		r.ForEach(func(key, value gjson.Result) bool {
			if !first {
				b.WriteString(", ")
			}
			first = false
			writeJSONString(b, key.String())
			b.WriteString(": ")
			writeRaw(b, value)
			return true
		})
		b.WriteByte('}')
	case r.IsArray():
		b.WriteByte('[')
		first := true
		r.ForEach(func(_, value gjson.Result) bool {
			if !first {
				b.WriteString(", ")
			}
			first = false
			writeRaw(b, value)
			return true
		})
		b.WriteByte(']')
	case r.Type == gjson.String:
		writeJSONString(b, r.String())
	case r.Type == gjson.Number:
		b.WriteString(canonicalNumber(r.Raw))
	case r.Type == gjson.Null || r.Raw == "":
		b.WriteString("null")
	default:
		b.WriteString(r.Raw)
	}
}

func writeJSONString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		b.WriteString(`""`)
		return
	}
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// formatThousands renders n with comma separators: 12345 -> "12,345".
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

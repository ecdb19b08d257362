// Package summarization - extract.go detects tool output embedded in chat text.
//
// DESIGN: Open WebUI serializes tool results into the assistant message as
// text, HTML-entity escaped and often backslash-escaped a second time. The
// extractor recovers approximate structure in layers:
//
//  1. bracket-balanced search for {"results": [...]} (strict parse)
//  2. regex-bounded reconstruction of the same shape
//  3. any balanced array of objects
//  4. signature detection only (no structure)
//
// Each layer degrades precision, never raises.
package summarization

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	detectionWindow    = 1000 // runes of content inspected by HasEmbeddedResult
	sampleValueMaxLen  = 40
	maxParseCandidates = 32
	failurePhrase      = "query execution failed"
	digestPrefix       = "[Tool:"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Field is one key/value pair of a sample row.
//
// Value is one of: string, json.Number, bool, nil, or json.RawMessage for
// nested objects and arrays.
type Field struct {
	Key   string
	Value any
}

// Row is an ordered mapping. Key order follows the payload.
type Row []Field

// Get returns the value for key.
func (r Row) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// ParseOutcome is the result of ParseEmbeddedResult: one of Parsed,
// DetectedOnly or NotDetected.
type ParseOutcome interface {
	isParseOutcome()
}

// Parsed means a result array was recovered.
type Parsed struct {
	Count  int
	Sample Row // nil unless the first element is an object
}

// DetectedOnly means the content looks like tool output but no structure
// could be recovered.
type DetectedOnly struct{}

// NotDetected means the content carries no tool output.
type NotDetected struct{}

func (Parsed) isParseOutcome()       {}
func (DetectedOnly) isParseOutcome() {}
func (NotDetected) isParseOutcome()  {}

// ResultInfo summarizes the embedded payload of one assistant message.
type ResultInfo struct {
	HasResults  bool
	ResultCount *int // nil when results were detected but not counted
	SampleRow   Row
	HasError    bool
	ErrorCount  int
}

// =============================================================================
// DETECTION
// =============================================================================

var (
	resultsOpenRe    = regexp.MustCompile(`\{\s*"results"\s*:\s*\[`)
	resultsBoundedRe = regexp.MustCompile(`\{\s*"results"\s*:\s*\[([\s\S]*?)\]\s*\}`)
	arrayOpenRe      = regexp.MustCompile(`\[\s*\{`)
	arrayBoundedRe   = regexp.MustCompile(`\[\s*\{[\s\S]*?\}\s*\]`)
	failureRe        = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(failurePhrase))
)

// resultSignatures are checked in order against the start of the content.
var resultSignatures = []func(string) bool{
	containsFunc(`&quot;results&quot;`),
	containsFunc(`&quot;error&quot;`),
	containsFunc(`\&quot;results\&quot;`),
	containsFunc(`\"results\"`),
	regexp.MustCompile(`^\s*\{["']results`).MatchString,
	regexp.MustCompile(`^\s*\[\{`).MatchString,
	regexp.MustCompile(`^\s*"&quot;`).MatchString,
}

func containsFunc(substr string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, substr) }
}

// HasEmbeddedResult reports whether content looks like it carries tool output.
// Only the first 1000 characters are inspected.
func HasEmbeddedResult(content string) bool {
	if content == "" || isDigest(content) {
		return false
	}
	window := prefixRunes(content, detectionWindow)
	for _, match := range resultSignatures {
		if match(window) {
			return true
		}
	}
	return false
}

// isDigest reports whether content was produced by Compact. Digests are never
// treated as payloads, so compaction is idempotent.
func isDigest(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), digestPrefix)
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractResultInfo recovers what it can about the payload in content.
func ExtractResultInfo(content string) ResultInfo {
	var info ResultInfo
	if content == "" || isDigest(content) {
		return info
	}

	decoded := decodeContent(content)

	// The upstream serializer writes the failure phrase twice per failed call.
	if n := len(failureRe.FindAllStringIndex(decoded, -1)); n > 0 {
		info.HasError = true
		info.ErrorCount = n / 2
	}

	switch outcome := parseDecoded(content, decoded).(type) {
	case Parsed:
		count := outcome.Count
		info.HasResults = true
		info.ResultCount = &count
		info.SampleRow = outcome.Sample
	case DetectedOnly:
		info.HasResults = true
	case NotDetected:
	}
	return info
}

// ParseEmbeddedResult runs the layered structure recovery on content.
func ParseEmbeddedResult(content string) ParseOutcome {
	if content == "" || isDigest(content) {
		return NotDetected{}
	}
	return parseDecoded(content, decodeContent(content))
}

func parseDecoded(original, decoded string) ParseOutcome {
	if p, ok := parseResultsObject(decoded); ok {
		return p
	}
	if p, ok := parseObjectArray(decoded); ok {
		return p
	}
	if HasEmbeddedResult(original) {
		return DetectedOnly{}
	}
	return NotDetected{}
}

// decodeContent undoes HTML-entity escaping and one level of backslash
// escaping of quotes and newlines.
func decodeContent(content string) string {
	return unescapeJSONText(html.UnescapeString(content))
}

var jsonTextUnescaper = strings.NewReplacer(`\"`, `"`, `\n`, "\n")

func unescapeJSONText(s string) string {
	return jsonTextUnescaper.Replace(s)
}

// parseResultsObject looks for a {"results": [...]} object.
func parseResultsObject(decoded string) (Parsed, bool) {
	for i, loc := range resultsOpenRe.FindAllStringIndex(decoded, -1) {
		if i >= maxParseCandidates {
			break
		}
		end := matchBracket(decoded, loc[0])
		if end < 0 {
			continue
		}
		candidate := decoded[loc[0] : end+1]
		for _, raw := range []string{candidate, unescapeJSONText(candidate)} {
			if !gjson.Valid(raw) {
				continue
			}
			if results := gjson.Get(raw, "results"); results.IsArray() {
				return parsedFromArray(results), true
			}
		}
	}

	m := resultsBoundedRe.FindStringSubmatch(decoded)
	if m == nil {
		return Parsed{}, false
	}
	raw := unescapeJSONText(`{"results": [` + m[1] + `]}`)
	if !gjson.Valid(raw) {
		return Parsed{}, false
	}
	return parsedFromArray(gjson.Get(raw, "results")), true
}

// parseObjectArray looks for any non-empty array that starts with an object.
func parseObjectArray(decoded string) (Parsed, bool) {
	for i, loc := range arrayOpenRe.FindAllStringIndex(decoded, -1) {
		if i >= maxParseCandidates {
			break
		}
		end := matchBracket(decoded, loc[0])
		if end < 0 {
			continue
		}
		candidate := decoded[loc[0] : end+1]
		for _, raw := range []string{candidate, unescapeJSONText(candidate)} {
			if !gjson.Valid(raw) {
				continue
			}
			if arr := gjson.Parse(raw); arr.IsArray() && len(arr.Array()) > 0 {
				return parsedFromArray(arr), true
			}
		}
	}

	m := arrayBoundedRe.FindString(decoded)
	if m == "" {
		return Parsed{}, false
	}
	raw := unescapeJSONText(m)
	if !gjson.Valid(raw) {
		return Parsed{}, false
	}
	arr := gjson.Parse(raw)
	if !arr.IsArray() || len(arr.Array()) == 0 {
		return Parsed{}, false
	}
	return parsedFromArray(arr), true
}

func parsedFromArray(arr gjson.Result) Parsed {
	var p Parsed
	arr.ForEach(func(_, value gjson.Result) bool {
		if p.Count == 0 && value.IsObject() {
			p.Sample = sampleRow(value)
		}
		p.Count++
		return true
	})
	return p
}

// sampleRow copies obj in key order, shortening long strings.
func sampleRow(obj gjson.Result) Row {
	row := Row{}
	obj.ForEach(func(key, value gjson.Result) bool {
		row = append(row, Field{Key: key.String(), Value: fieldValue(value)})
		return true
	})
	return row
}

func fieldValue(v gjson.Result) any {
	switch v.Type {
	case gjson.String:
		s := v.String()
		if utf8.RuneCountInString(s) > sampleValueMaxLen {
			return prefixRunes(s, sampleValueMaxLen) + "..."
		}
		return s
	case gjson.Number:
		return json.Number(canonicalNumber(v.Raw))
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		return json.RawMessage(v.Raw)
	}
}

// canonicalNumber renders a JSON number for a digest. Integers keep their
// digits. Other numbers take the shortest round-trip form ("1.50" becomes
// "1.5", "2e0" becomes "2.0"), with an exponent below 1e-4 or from 1e16 up.
// Numbers out of float64 range are kept as written.
func canonicalNumber(raw string) string {
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	exp := strconv.FormatFloat(f, 'e', -1, 64)
	if n, _ := strconv.Atoi(exp[strings.LastIndexByte(exp, 'e')+1:]); f != 0 && (n < -4 || n >= 16) {
		return exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// matchBracket returns the index of the bracket closing the one at s[open],
// or -1. Brackets inside JSON strings are ignored.
func matchBracket(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// prefixRunes returns at most n runes of s.
func prefixRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

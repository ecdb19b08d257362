package summarization_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

// =============================================================================
// DETECTION
// =============================================================================

func TestHasEmbeddedResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"html_escaped_results", "&quot;results&quot;: [{...}]", true},
		{"html_escaped_error", "&quot;error&quot;: &quot;timeout&quot;", true},
		{"double_escaped_results", `\&quot;results\&quot;: [{...}]`, true},
		{"backslash_quoted_results", `\"results\": [{...}]`, true},
		{"raw_results_object", `{"results": []}`, true},
		{"single_quoted_results", `  {'results': []}`, true},
		{"array_of_objects", `[{"epic_mrn": "123"}]`, true},
		{"leading_escaped_quote", "\n\"&quot;{\\n", true},
		{"open_webui_turn", openWebUIToolTurn, true},
		{"plain_text", "Here is my response to your question about the data.", false},
		{"empty", "", false},
		{"array_later_in_text", `The rows were [{"a": 1}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarization.HasEmbeddedResult(tt.content))
		})
	}
}

func TestHasEmbeddedResult_OnlyInspectsFirst1000Chars(t *testing.T) {
	late := strings.Repeat("x", 1000) + "&quot;results&quot;"
	assert.False(t, summarization.HasEmbeddedResult(late))

	early := strings.Repeat("x", 980) + "&quot;results&quot;"
	assert.True(t, summarization.HasEmbeddedResult(early))

	// The window is measured in characters, not bytes.
	wide := strings.Repeat("é", 900) + "&quot;results&quot;"
	assert.True(t, summarization.HasEmbeddedResult(wide))
}

// =============================================================================
// EXTRACTION
// =============================================================================

func TestExtractResultInfo_Empty(t *testing.T) {
	info := summarization.ExtractResultInfo("")
	assert.False(t, info.HasResults)
	assert.Nil(t, info.ResultCount)
	assert.Nil(t, info.SampleRow)
	assert.False(t, info.HasError)
}

func TestExtractResultInfo_Counts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"json_array", `[{"a": 1}, {"a": 2}, {"a": 3}]`, 3},
		{"results_object", `{"results": [{"id": 1}, {"id": 2}]}`, 2},
		{"rows_object", `{"rows": [{"col": "a"}, {"col": "b"}, {"col": "c"}, {"col": "d"}]}`, 4},
		{"nested_values", `{"results": [{"nested": {"deep": [1, 2, 3]}}]}`, 1},
		{"nested_arrays_of_objects", `{"results": [{"tags": [{"k": "a"}, {"k": "b"}]}, {"tags": []}]}`, 2},
		{"brackets_inside_strings", `{"results": [{"q": "select ] from }"}, {"q": "ok"}]}`, 2},
		{"empty_results", `{"results": []}`, 0},
		{"open_webui_turn", openWebUIToolTurn, 2},
		{"results_after_prose", `I ran the query: {"results": [{"n": 1}]} and that's it.`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := summarization.ExtractResultInfo(tt.content)
			assert.True(t, info.HasResults)
			require.NotNil(t, info.ResultCount)
			assert.Equal(t, tt.want, *info.ResultCount)
		})
	}
}

func TestExtractResultInfo_ConcreteScenario(t *testing.T) {
	info := summarization.ExtractResultInfo(`{"results": [{"id":1},{"id":2},{"id":3}]}`)

	assert.True(t, info.HasResults)
	require.NotNil(t, info.ResultCount)
	assert.Equal(t, 3, *info.ResultCount)
	require.Len(t, info.SampleRow, 1)
	assert.Equal(t, summarization.Field{Key: "id", Value: json.Number("1")}, info.SampleRow[0])
}

func TestExtractResultInfo_SampleNumbers(t *testing.T) {
	tests := []struct {
		raw  string
		want json.Number
	}{
		{"42", "42"},
		{"-7", "-7"},
		{"12345678901234567890", "12345678901234567890"},
		{"1.50", "1.5"},
		{"2.0", "2.0"},
		{"2e0", "2.0"},
		{"-0.0", "-0.0"},
		{"0.0001", "0.0001"},
		{"0.00001", "1e-05"},
		{"1234567.5", "1234567.5"},
		{"1e16", "1e+16"},
		{"1.5E21", "1.5e+21"},
		{"1e400", "1e400"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			info := summarization.ExtractResultInfo(`{"results": [{"n": ` + tt.raw + `}]}`)

			n, ok := info.SampleRow.Get("n")
			require.True(t, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestExtractResultInfo_SampleRow(t *testing.T) {
	long := strings.Repeat("abcdefghij", 5)
	content := `[{"name": "` + long + `", "age": 30, "active": true, "note": null, "tags": ["a", "b"], "short": "ok"}]`

	info := summarization.ExtractResultInfo(content)
	require.NotNil(t, info.SampleRow)

	keys := make([]string, 0, len(info.SampleRow))
	for _, f := range info.SampleRow {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"name", "age", "active", "note", "tags", "short"}, keys, "key order is kept")

	name, _ := info.SampleRow.Get("name")
	assert.Equal(t, long[:40]+"...", name)
	age, _ := info.SampleRow.Get("age")
	assert.Equal(t, json.Number("30"), age)
	active, _ := info.SampleRow.Get("active")
	assert.Equal(t, true, active)
	note, ok := info.SampleRow.Get("note")
	assert.True(t, ok)
	assert.Nil(t, note)
	tags, _ := info.SampleRow.Get("tags")
	assert.Equal(t, json.RawMessage(`["a", "b"]`), tags)
	short, _ := info.SampleRow.Get("short")
	assert.Equal(t, "ok", short)
}

func TestExtractResultInfo_SampleTruncationCountsCharacters(t *testing.T) {
	value := strings.Repeat("日", 45)
	info := summarization.ExtractResultInfo(`[{"v": "` + value + `"}]`)

	v, _ := info.SampleRow.Get("v")
	assert.Equal(t, strings.Repeat("日", 40)+"...", v)
}

func TestExtractResultInfo_NonObjectFirstElement(t *testing.T) {
	info := summarization.ExtractResultInfo(`{"results": [1, 2, 3]}`)
	require.NotNil(t, info.ResultCount)
	assert.Equal(t, 3, *info.ResultCount)
	assert.Nil(t, info.SampleRow)
}

func TestExtractResultInfo_Errors(t *testing.T) {
	t.Run("duplicated_phrase", func(t *testing.T) {
		info := summarization.ExtractResultInfo("query execution failed: query execution failed: Connection failed to database")
		assert.True(t, info.HasError)
		assert.Equal(t, 1, info.ErrorCount)
	})

	t.Run("single_phrase_rounds_down", func(t *testing.T) {
		info := summarization.ExtractResultInfo("Query Execution Failed: timeout")
		assert.True(t, info.HasError)
		assert.Equal(t, 0, info.ErrorCount)
	})

	t.Run("no_errors", func(t *testing.T) {
		info := summarization.ExtractResultInfo(`[{"a": 1}]`)
		assert.False(t, info.HasError)
		assert.Equal(t, 0, info.ErrorCount)
	})
}

func TestExtractResultInfo_DetectedWithoutStructure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"html_escaped_scalar_array", "&quot;results&quot;: [1, 2, 3]"},
		{"malformed_json", "&quot;results&quot;: [not valid json &quot;epic_mrn&quot;: &quot;123&quot;, &quot;message_dt&quot;: &quot;2023&quot;"},
		{"truncated_payload", `{"results": [{"a": 1}, {"a": 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := summarization.ExtractResultInfo(tt.content)
			assert.True(t, info.HasResults)
			assert.Nil(t, info.ResultCount)
			assert.Nil(t, info.SampleRow)
		})
	}
}

func TestExtractResultInfo_RealTrinoResponse(t *testing.T) {
	info := summarization.ExtractResultInfo(trinoToolTurn)

	assert.True(t, info.HasError)
	assert.Equal(t, 1, info.ErrorCount)
	assert.True(t, info.HasResults)
	require.NotNil(t, info.ResultCount)
	assert.Equal(t, 2, *info.ResultCount)

	diagnosis, ok := info.SampleRow.Get("diagnosis")
	require.True(t, ok)
	assert.Equal(t, "Malignant neoplasm of lung", diagnosis)
	count, _ := info.SampleRow.Get("patient_count")
	assert.Equal(t, json.Number("5"), count)
}

func TestExtractResultInfo_PlainProse(t *testing.T) {
	info := summarization.ExtractResultInfo("I think the answer is 42, but let me double check.")
	assert.False(t, info.HasResults)
	assert.Nil(t, info.ResultCount)
}

// =============================================================================
// PARSE OUTCOME
// =============================================================================

func TestParseEmbeddedResult(t *testing.T) {
	switch o := summarization.ParseEmbeddedResult(`[{"a": 1}, {"a": 2}]`).(type) {
	case summarization.Parsed:
		assert.Equal(t, 2, o.Count)
		assert.Len(t, o.Sample, 1)
	default:
		t.Fatalf("expected Parsed, got %T", o)
	}

	assert.IsType(t, summarization.DetectedOnly{}, summarization.ParseEmbeddedResult("&quot;results&quot;: [1, 2]"))
	assert.IsType(t, summarization.NotDetected{}, summarization.ParseEmbeddedResult("no payload here"))
	assert.IsType(t, summarization.NotDetected{}, summarization.ParseEmbeddedResult(""))
}

func TestExtractResultInfo_DigestIsNotAPayload(t *testing.T) {
	inputs := []string{
		`{"results": [{"id":1},{"id":2},{"id":3}]}`,
		`[{"tags": [{"k": "a"}], "id": 7}]`,
		trinoToolTurn,
		openWebUIToolTurn,
	}
	for _, in := range inputs {
		digest := summarization.Compact(assistant(in)).Text()
		require.True(t, strings.HasPrefix(digest, "[Tool:"), digest)

		info := summarization.ExtractResultInfo(digest)
		assert.False(t, info.HasResults, "digest %q", digest)
		assert.False(t, summarization.HasEmbeddedResult(digest))
		assert.IsType(t, summarization.NotDetected{}, summarization.ParseEmbeddedResult(digest))
	}
}

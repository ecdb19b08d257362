package summarization_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

var (
	counterOnce   sync.Once
	sharedCounter *summarization.TokenCounter
)

func counter() *summarization.TokenCounter {
	counterOnce.Do(func() {
		sharedCounter = summarization.NewTokenCounter("cl100k_base", 4)
	})
	return sharedCounter
}

func user(text string) summarization.Message {
	return summarization.NewMessage(summarization.RoleUser, text)
}

func assistant(text string) summarization.Message {
	return summarization.NewMessage(summarization.RoleAssistant, text)
}

func system(text string) summarization.Message {
	return summarization.NewMessage(summarization.RoleSystem, text)
}

// numbered returns n user messages "msg0".."msgN-1".
func numbered(n int) []summarization.Message {
	out := make([]summarization.Message, n)
	for i := range out {
		out[i] = user(fmt.Sprintf("msg%d", i))
	}
	return out
}

// wordy returns n user messages that are each roughly 50 tokens long.
func wordy(n int) []summarization.Message {
	out := make([]summarization.Message, n)
	for i := range out {
		out[i] = user(fmt.Sprintf("turn %d: %s", i, strings.Repeat("lorem ipsum ", 25)))
	}
	return out
}

// objectArray renders [{"x": 0}, {"x": 1}, ...] with n elements.
func objectArray(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"x": %d}`, i)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var (
	messageCmp     = cmp.AllowUnexported(summarization.Content{}, summarization.ContentPart{})
	cmpEquateEmpty = cmpopts.EquateEmpty()
)

// Captured Open WebUI assistant turn: the tool result is HTML-entity escaped
// with literal \n and \&quot; sequences, followed by the assistant's prose.
const openWebUIToolTurn = "\n" + `"&quot;{\n  \&quot;results\&quot;: [\n    {\n      \&quot;epic_mrn\&quot;: \&quot;EPIC123\&quot;,\n      \&quot;report_text\&quot;: \&quot;Sample report\&quot;\n    },\n    {\n      \&quot;epic_mrn\&quot;: \&quot;EPIC456\&quot;,\n      \&quot;report_text\&quot;: \&quot;Another report\&quot;\n    }\n  ]\n}&quot;"` + "\n\nHere are the results from the database query.\n"

// Trino MCP turn: one failed call (the failure phrase is written twice) and
// one successful result set.
const trinoToolTurn = `"&quot;[{&#x27;type&#x27;: &#x27;text&#x27;, &#x27;text&#x27;: &#x27;query execution failed: query execution failed: trino: query failed&#x27;}]&quot;"` +
	"\n\n" +
	`"&quot;{\n  \&quot;results\&quot;: [\n    {\n      \&quot;diagnosis\&quot;: \&quot;Malignant neoplasm of lung\&quot;,\n      \&quot;patient_count\&quot;: 5\n    },\n    {\n      \&quot;diagnosis\&quot;: \&quot;Brain tumor\&quot;,\n      \&quot;patient_count\&quot;: 3\n    }\n  ]\n}&quot;"` +
	"\n\n**Most common diagnoses:**\n\n| Diagnosis | Count |\n|---|---|\n| Lung | 5 |\n| Brain | 3 |\n\nThe data shows lung cancer is the most common."

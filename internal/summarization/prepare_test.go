package summarization_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

// =============================================================================
// PREPARATION
// =============================================================================

func TestPrepareForSummarization_PassesUserAndAssistant(t *testing.T) {
	msgs := []summarization.Message{user("question"), assistant("answer")}

	prepared, tools := summarization.PrepareForSummarization(msgs, counter(), 500)

	require.Len(t, prepared, 2)
	assert.Equal(t, "question", prepared[0].Text())
	assert.Equal(t, "answer", prepared[1].Text())
	assert.Empty(t, tools)
}

func TestPrepareForSummarization_DropsSystemMessages(t *testing.T) {
	msgs := []summarization.Message{system("RAG content"), user("question")}

	prepared, _ := summarization.PrepareForSummarization(msgs, counter(), 500)

	require.Len(t, prepared, 1)
	assert.Equal(t, summarization.RoleUser, prepared[0].Role)
}

func TestPrepareForSummarization_KeepsUnknownRoles(t *testing.T) {
	tool := summarization.NewMessage("tool", "lookup result")

	prepared, _ := summarization.PrepareForSummarization([]summarization.Message{tool}, counter(), 500)

	require.Len(t, prepared, 1)
	assert.Equal(t, tool, prepared[0])
}

func TestPrepareForSummarization_CompactsLargeToolResults(t *testing.T) {
	msgs := []summarization.Message{assistant(objectArray(100))}

	prepared, tools := summarization.PrepareForSummarization(msgs, counter(), 50)

	require.Len(t, prepared, 1)
	assert.Equal(t, `[Tool: 100 rows | {"x": 0}]`, prepared[0].Text())
	require.Len(t, tools, 1)
	assert.Equal(t, `[Tool: 100 rows | {"x": 0}]`, tools[0])
}

func TestPrepareForSummarization_DigestWithBracketsInSample(t *testing.T) {
	content := `[{"ids": [1, 2], "label": "a]b"}, ` + strings.TrimPrefix(objectArray(80), "[")
	prepared, tools := summarization.PrepareForSummarization([]summarization.Message{assistant(content)}, counter(), 10)

	require.Len(t, tools, 1)
	assert.Equal(t, `[Tool: 81 rows | {"ids": [1, 2], "label": "a]b"}]`, tools[0])
	assert.Equal(t, tools[0], prepared[0].Text())
}

func TestPrepareForSummarization_KeepsSmallToolResults(t *testing.T) {
	small := `[{"x": 1}]`

	prepared, tools := summarization.PrepareForSummarization([]summarization.Message{assistant(small)}, counter(), 1000)

	require.Len(t, prepared, 1)
	assert.Equal(t, small, prepared[0].Text())
	assert.Empty(t, tools)
}

func TestPrepareForSummarization_LargeProseUntouched(t *testing.T) {
	prose := strings.Repeat("This is a long explanation without any payload. ", 100)

	prepared, tools := summarization.PrepareForSummarization([]summarization.Message{assistant(prose)}, counter(), 10)

	assert.Equal(t, prose, prepared[0].Text())
	assert.Empty(t, tools)
}

// =============================================================================
// PROMPT
// =============================================================================

func TestBuildSummarizationPrompt(t *testing.T) {
	prompt := summarization.BuildSummarizationPrompt([]summarization.Message{
		user("What is 2+2?"),
		assistant("2+2 equals 4."),
	})

	want := "Summarize the following conversation concisely, preserving key facts, decisions, queries made, and context needed to continue the conversation:\n\n" +
		"USER: What is 2+2?\n\nASSISTANT: 2+2 equals 4.\n\n" +
		"Provide a clear, factual summary in 2-3 paragraphs."
	assert.Equal(t, want, prompt)
}

func TestBuildSummarizationPrompt_SkipsBlankMessages(t *testing.T) {
	prompt := summarization.BuildSummarizationPrompt([]summarization.Message{
		user(""),
		user("   \n\t"),
		assistant("response"),
	})

	assert.Contains(t, prompt, "ASSISTANT: response")
	assert.NotContains(t, prompt, "USER:")
}

func TestBuildSummarizationPrompt_Empty(t *testing.T) {
	assert.Equal(t, "", summarization.BuildSummarizationPrompt(nil))
	assert.Equal(t, "", summarization.BuildSummarizationPrompt([]summarization.Message{user(" ")}))
}

func TestBuildSummarizationPrompt_MultipartText(t *testing.T) {
	msg := summarization.Message{
		Role: summarization.RoleUser,
		Content: summarization.PartsContent(
			summarization.TextPart("look at this"),
			summarization.ContentPart{Type: "image_url"},
		),
	}
	assert.Contains(t, summarization.BuildSummarizationPrompt([]summarization.Message{msg}), "USER: look at this")
}

func TestBuildSummarizationPrompt_PercentSignsKept(t *testing.T) {
	prompt := summarization.BuildSummarizationPrompt([]summarization.Message{user("growth was 50%s and %d")})
	assert.Contains(t, prompt, "USER: growth was 50%s and %d")
}

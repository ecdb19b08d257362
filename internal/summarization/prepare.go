package summarization

import "strings"

const promptTemplate = `Summarize the following conversation concisely, preserving key facts, decisions, queries made, and context needed to continue the conversation:

%s

Provide a clear, factual summary in 2-3 paragraphs.`

// PrepareForSummarization readies the old segment for the summarizer.
//
// System messages are dropped. Assistant messages carrying a tool payload
// larger than the configured threshold are compacted, and their digest lines
// are collected separately so they can be carried verbatim past the summary.
// Everything else passes through unchanged.
func PrepareForSummarization(old []Message, counter *TokenCounter, toolThreshold int) (prepared []Message, toolSummaries []string) {
	prepared = make([]Message, 0, len(old))
	for _, msg := range old {
		switch msg.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			text := msg.Text()
			if !HasEmbeddedResult(text) || counter.Count(text) <= toolThreshold {
				prepared = append(prepared, msg)
				continue
			}
			compacted, digest := compact(msg)
			prepared = append(prepared, compacted)
			if digest != "" {
				toolSummaries = append(toolSummaries, digest)
			}
		default:
			prepared = append(prepared, msg)
		}
	}
	return prepared, toolSummaries
}

// BuildSummarizationPrompt renders prepared messages as a "ROLE: content"
// transcript inside the summarization instruction. Messages without text are
// skipped; the result is "" when nothing remains.
func BuildSummarizationPrompt(prepared []Message) string {
	var parts []string
	for _, msg := range prepared {
		text := msg.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := string(msg.Role)
		if role == "" {
			role = "unknown"
		}
		parts = append(parts, strings.ToUpper(role)+": "+text)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Replace(promptTemplate, "%s", strings.Join(parts, "\n\n"), 1)
}

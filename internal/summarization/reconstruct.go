package summarization

import "strings"

const (
	summaryHeader    = "[Previous conversation summary]\n"
	summaryFooter    = "\n[End of summary - recent messages follow]"
	truncationNote   = "[Note: Earlier conversation was truncated due to context limits. Some context may be missing.]"
	toolBlockHeading = "\n\n[Tool calls from earlier in conversation]\n"
)

// Reconstruct assembles the final conversation: the base prompt (if any), one
// synthesized system message and the recent tail, in that order.
//
// OutcomeSuccess yields a summary message. OutcomeEmpty and OutcomeFailure
// (or a nil outcome) yield the truncation note. Tool summaries are listed
// verbatim in either form.
func Reconstruct(base []Message, outcome SummaryOutcome, toolSummaries []string, recent []Message) []Message {
	out := make([]Message, 0, len(base)+1+len(recent))
	out = append(out, base...)
	out = append(out, NewMessage(RoleSystem, synthesizedContent(outcome, toolSummaries)))
	out = append(out, recent...)
	return out
}

func synthesizedContent(outcome SummaryOutcome, toolSummaries []string) string {
	var b strings.Builder
	success, ok := outcome.(OutcomeSuccess)
	if ok && strings.TrimSpace(success.Text) != "" {
		b.WriteString(summaryHeader)
		b.WriteString(success.Text)
		writeToolBlock(&b, toolSummaries)
		b.WriteString(summaryFooter)
		return b.String()
	}
	b.WriteString(truncationNote)
	writeToolBlock(&b, toolSummaries)
	return b.String()
}

func writeToolBlock(b *strings.Builder, toolSummaries []string) {
	if len(toolSummaries) == 0 {
		return
	}
	b.WriteString(toolBlockHeading)
	for i, ts := range toolSummaries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(ts)
	}
}

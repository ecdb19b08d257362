package summarization

// ExtractBasePrompt splits off the base system prompt. Only index 0 is
// inspected: a system message anywhere else is part of the conversation.
func ExtractBasePrompt(messages []Message) (base, rest []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return clone(messages[:1]), clone(messages[1:])
	}
	return nil, clone(messages)
}

// SplitConversation returns the last keepCount messages as recent and
// everything before them as old. old is empty when there is nothing to
// summarize. A negative keepCount is treated as 0.
func SplitConversation(messages []Message, keepCount int) (old, recent []Message) {
	if keepCount < 0 {
		keepCount = 0
	}
	if len(messages) <= keepCount {
		return nil, clone(messages)
	}
	at := len(messages) - keepCount
	return clone(messages[:at]), clone(messages[at:])
}

// FindDynamicSplit keeps as many recent messages as possible while still
// leaving something to summarize. It starts at initialKeep and halves the keep
// count until old is non-empty or the count drops below minKeep; after that it
// keeps exactly minKeep messages if the conversation is longer than that.
func FindDynamicSplit(messages []Message, initialKeep, minKeep int) (old, recent []Message) {
	for keep := initialKeep; keep >= minKeep; keep /= 2 {
		old, recent = SplitConversation(messages, keep)
		if len(old) > 0 {
			return old, recent
		}
		if keep == 0 {
			break
		}
	}

	floor := minKeep
	if floor < 1 {
		floor = 1
	}
	if len(messages) > floor {
		at := len(messages) - floor
		return clone(messages[:at]), clone(messages[at:])
	}
	return nil, clone(messages)
}

// clone returns a deep copy of messages so results never alias caller
// storage, down to Extra and content parts.
func clone(messages []Message) []Message {
	if len(messages) == 0 {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

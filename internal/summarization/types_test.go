package summarization_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washu-tag/context-gateway/internal/summarization"
)

func TestMessage_DecodeStringContent(t *testing.T) {
	var msg summarization.Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hello","name":"alice"}`), &msg))

	assert.Equal(t, summarization.RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Text())
	assert.False(t, msg.Content.IsMultipart())
	assert.JSONEq(t, `"alice"`, string(msg.Extra["name"]))
}

func TestMessage_DecodeMultipartContent(t *testing.T) {
	raw := `{"role":"user","content":[{"type":"text","text":"describe this"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}},{"type":"text","text":"please"}]}`

	var msg summarization.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.True(t, msg.Content.IsMultipart())
	require.Len(t, msg.Content.Parts, 3)
	assert.Equal(t, "describe this\nplease", msg.Text())

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out), "image parts round-trip untouched")
}

func TestMessage_RoundTripKeepsUnknownFields(t *testing.T) {
	raw := `{"role":"assistant","content":"done","id":"m-1","tool_calls":[{"id":"c1"}]}`

	var msg summarization.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	out, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.JSONEq(t, raw, string(out))
}

func TestMessage_NullAndOddContent(t *testing.T) {
	var msg summarization.Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":null}`), &msg))
	assert.Equal(t, "", msg.Text())

	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":{"weird":true}}`), &msg))
	assert.Equal(t, "", msg.Text())
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":{"weird":true}}`, string(out))
}

func TestMessage_DecodeErrors(t *testing.T) {
	var msg summarization.Message
	assert.Error(t, json.Unmarshal([]byte(`"not an object"`), &msg))
	assert.Error(t, json.Unmarshal([]byte(`{"role":5,"content":"x"}`), &msg))
}

func TestStatusEvent_JSON(t *testing.T) {
	ev := summarization.StatusEvent{
		Type: "status",
		Data: summarization.StatusData{Description: "Summarized: 1,000 → 200 tokens", Done: true},
	}

	out, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","data":{"description":"Summarized: 1,000 → 200 tokens","done":true}}`, string(out))
}

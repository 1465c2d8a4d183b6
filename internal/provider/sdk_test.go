package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTranscript = []Turn{
	{Role: RoleSystem, Content: "Image text: x = 2"},
	{Role: RoleUser, Content: "Solve it"},
	{Role: RoleAssistant, Content: "Which part?"},
	{Role: RoleUser, Content: "All of it"},
}

func TestOpenAIProvider_Answer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "x equals two"}}]
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "")
	assert.Equal(t, "openai", p.Name())

	answer, err := p.Answer(context.Background(), sampleTranscript)
	require.NoError(t, err)
	assert.Equal(t, "x equals two", answer)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestOpenAIProvider_NameFromBaseURL(t *testing.T) {
	assert.Equal(t, "deepseek", NewOpenAIProvider("k", "https://api.deepseek.com", "").Name())
	assert.Equal(t, "groq", NewOpenAIProvider("k", "https://api.groq.com/openai/v1", "").Name())
}

func TestAnthropicProvider_Answer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "x equals two"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "", anthropicoption.WithBaseURL(srv.URL))
	answer, err := p.Answer(context.Background(), sampleTranscript)
	require.NoError(t, err)
	assert.Equal(t, "x equals two", answer)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3, "system turns move to the system parameter")
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "Image text: x = 2", system[0].(map[string]any)["text"])
}

func TestBuildAnthropicMessages_NoSystem(t *testing.T) {
	system, msgs := buildAnthropicMessages([]Turn{{Role: RoleUser, Content: "hi"}})
	assert.Empty(t, system)
	assert.Len(t, msgs, 1)
}

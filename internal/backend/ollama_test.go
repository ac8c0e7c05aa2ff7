package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChatRoundTrip(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "create_file", "arguments": {"filename": "a.md"}}}]
			},
			"done": true,
			"prompt_eval_count": 42,
			"eval_count": 7
		}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "test-model", time.Second, nil)
	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "make a.md"},
		},
		Tools:     []ToolSchema{{Name: "create_file", Description: "Create a file", Parameters: map[string]any{"type": "object"}}},
		MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "function", got.Tools[0].Type)
	assert.Equal(t, "create_file", got.Tools[0].Function.Name)
	assert.Equal(t, float64(256), got.Options["num_predict"])

	assert.True(t, resp.HasToolCalls())
	assert.Equal(t, []ToolCall{{Name: "create_file", Arguments: map[string]any{"filename": "a.md"}}}, resp.ToolCalls)
	assert.Equal(t, 42, resp.PromptTokens)
	assert.Equal(t, 7, resp.CompletionTokens)
}

func TestOllamaToolMessagesForwarded(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "done"}, "done": true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0, nil)
	resp, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "list_files", Arguments: map[string]any{}}}},
		{Role: RoleTool, ToolName: "list_files", Content: "a.md"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)
	assert.False(t, resp.HasToolCalls())

	assert.Equal(t, DefaultModel, got.Model)
	assert.Nil(t, got.Options)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "list_files", got.Messages[0].ToolCalls[0].Function.Name)
	assert.Equal(t, "list_files", got.Messages[1].ToolName)
}

func TestOllamaServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "m", time.Second, nil).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.True(t, IsUnavailable(err))
}

func TestOllamaClientErrorIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "missing", time.Second, nil).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaClient(url, "m", time.Second, nil).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestOllamaCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOllamaClient(srv.URL, "m", time.Second, nil).Chat(ctx, ChatRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

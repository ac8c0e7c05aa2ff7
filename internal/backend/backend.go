/*
Package backend talks to the language model that answers turns the router
does not execute directly.

Client is the seam the pipeline depends on; OllamaClient implements it
against an Ollama-compatible /api/chat endpoint.
*/
package backend

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrBackendUnavailable marks failures to reach the model at all, as opposed
// to a reachable model returning an error.
var ErrBackendUnavailable = errors.New("model backend unavailable")

// Client sends one chat exchange to a model.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
}

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolName names the tool whose output a RoleTool message carries.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolSchema advertises a callable tool to the model.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatRequest is the input of Client.Chat.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolSchema
	// MaxTokens caps the response length; 0 leaves it to the backend.
	MaxTokens int
}

// Response is the model's reply.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	// PromptTokens and CompletionTokens are reported when the backend knows them.
	PromptTokens     int
	CompletionTokens int
}

// HasToolCalls reports whether the model asked for any tool.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

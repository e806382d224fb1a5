// Package llm defines a provider-neutral chat interface with tool calling.
package llm

import "context"

// Role tags a message in the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model to run a named tool.
// Arguments is the raw JSON the model produced and is not trusted.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a single turn in a conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that request tools.
	ToolCalls []ToolCall
	// ToolCallID and Name are set on tool messages.
	ToolCallID string
	Name       string
}

// ToolDefinition declares a callable tool with a JSON schema for its input.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDefinition
}

// ChatResponse is the assistant message returned by the model.
type ChatResponse struct {
	Message      Message
	FinishReason string
}

// HasToolCalls reports whether the model asked for at least one tool.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

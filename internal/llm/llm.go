package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to a provider.
// Raw carries the provider's native output for assistant turns so it can be
// replayed losslessly; providers that don't recognise it fall back to Content
// and ToolCalls.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Raw        any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Response struct {
	Text      string
	ToolCalls []ToolCall
	Model     string
	Usage     Usage
	Raw       any
}

type Provider interface {
	ChatStream(ctx context.Context, messages []Message, tools []ToolSpec, onToken func(string)) (*Response, error)
}

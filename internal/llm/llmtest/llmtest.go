// Package llmtest provides scripted llm.Provider implementations for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"calcagent/internal/llm"
)

// Func adapts a function to llm.Provider.
type Func func(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec, onToken func(string)) (*llm.Response, error)

func (f Func) ChatStream(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec, onToken func(string)) (*llm.Response, error) {
	return f(ctx, messages, tools, onToken)
}

// ToolEcho requests Tool with Arguments once per user message and then
// answers "The answer is <tool output>", streaming the answer word by word.
// It never computes anything itself, so a correct answer proves the tool ran.
type ToolEcho struct {
	Tool      string
	Arguments string

	mu    sync.Mutex
	calls [][]llm.Message
}

func NewToolEcho(tool, arguments string) *ToolEcho {
	return &ToolEcho{Tool: tool, Arguments: arguments}
}

func (p *ToolEcho) ChatStream(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec, onToken func(string)) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, append([]llm.Message(nil), messages...))
	n := len(p.calls)
	p.mu.Unlock()

	if result, ok := lastToolResult(messages); ok {
		answer := "The answer is " + result
		words := strings.SplitAfter(answer, " ")
		for _, w := range words {
			if onToken != nil {
				onToken(w)
			}
		}
		return &llm.Response{Text: answer, Model: "fake"}, nil
	}

	return &llm.Response{
		Model: "fake",
		ToolCalls: []llm.ToolCall{{
			ID:        fmt.Sprintf("call_%d", n),
			Name:      p.Tool,
			Arguments: p.Arguments,
		}},
	}, nil
}

// Calls returns the message lists the provider was invoked with.
func (p *ToolEcho) Calls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.calls...)
}

// lastToolResult returns the newest tool output given after the latest user
// message.
func lastToolResult(messages []llm.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case llm.RoleTool:
			return messages[i].Content, true
		case llm.RoleUser:
			return "", false
		}
	}
	return "", false
}

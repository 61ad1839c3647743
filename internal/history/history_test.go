package history

import (
	"testing"

	"calcagent/internal/llm"

	"github.com/stretchr/testify/assert"
)

func turn(user, answer string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleUser, Content: user},
		{Role: llm.RoleAssistant, Content: answer},
	}
}

func TestStoreLoadReturnsTurnsInOrder(t *testing.T) {
	s := NewStore(DefaultMaxMessages)
	s.SaveTurn("ctx", turn("1+1", "2"))
	s.SaveTurn("ctx", turn("2+2", "4"))
	s.SaveTurn("other", turn("3+3", "6"))

	got := s.Load("ctx")
	assert.Len(t, got, 4)
	assert.Equal(t, "1+1", got[0].Content)
	assert.Equal(t, "4", got[3].Content)
	assert.Len(t, s.Load("other"), 2)
	assert.Empty(t, s.Load("missing"))
}

func TestStoreEvictsWholeTurns(t *testing.T) {
	s := NewStore(4)
	s.SaveTurn("ctx", turn("a", "1"))
	s.SaveTurn("ctx", turn("b", "2"))
	s.SaveTurn("ctx", []llm.Message{
		{Role: llm.RoleUser, Content: "c"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "calculator"}}},
		{Role: llm.RoleTool, ToolCallID: "call_1", Content: "3"},
	})

	got := s.Load("ctx")
	assert.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Content)
}

func TestStoreIgnoresEmptyContext(t *testing.T) {
	s := NewStore(DefaultMaxMessages)
	s.SaveTurn("", turn("a", "1"))
	assert.Empty(t, s.Load(""))

	s.SaveTurn("ctx", turn("a", "1"))
	s.Forget("ctx")
	assert.Empty(t, s.Load("ctx"))
}

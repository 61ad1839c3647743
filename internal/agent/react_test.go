package agent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"calcagent/internal/agent"
	"calcagent/internal/history"
	"calcagent/internal/llm"
	"calcagent/internal/llm/llmtest"
	"calcagent/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []agent.Event
}

func (r *recorder) emit(ev agent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) OnEvent(_ context.Context, ev agent.Event) { r.emit(ev) }

func (r *recorder) types() []agent.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]agent.EventType, 0, len(r.events))
	for _, ev := range r.events {
		if ev.Type != agent.EventToken {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (r *recorder) last() agent.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) tokens() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, ev := range r.events {
		if ev.Type == agent.EventToken {
			sb.WriteString(ev.Data.(string))
		}
	}
	return sb.String()
}

func newCalculatorAgent(provider llm.Provider, opts ...agent.Option) *agent.Agent {
	return agent.New(provider, agent.NewRegistry(tools.NewCalculator()), agent.Profile{
		Name:        "Calculator Agent",
		Description: "A calculator agent that can perform basic arithmetic operations.",
	}, opts...)
}

func TestRunUsesCalculatorTool(t *testing.T) {
	provider := llmtest.NewToolEcho("calculator", `{"expression":"2+2","precision":-1}`)
	a := newCalculatorAgent(provider)

	rec := &recorder{}
	err := a.Run(context.Background(), "ctx-1", "what is 2+2", rec.emit)
	require.NoError(t, err)

	assert.Equal(t, []agent.EventType{
		agent.EventToolCall,
		agent.EventToolResult,
		agent.EventDone,
	}, rec.types())

	done := rec.last()
	assert.Equal(t, agent.EventDone, done.Type)
	assert.Equal(t, "The answer is 4", done.Data)
	assert.Equal(t, "The answer is 4", rec.tokens())

	for _, ev := range rec.events {
		if ev.Type == agent.EventToolResult {
			assert.Equal(t, map[string]string{"name": "calculator", "content": "4"}, ev.Data)
		}
	}

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, llm.RoleSystem, calls[0][0].Role)
	assert.NotEmpty(t, calls[0][0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "what is 2+2"}, calls[0][1])

	second := calls[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "4", toolMsg.Content)
}

func TestRunFeedsToolErrorsBack(t *testing.T) {
	provider := llmtest.NewToolEcho("calculator", `{"expression":"1/0","precision":-1}`)
	a := newCalculatorAgent(provider)

	rec := &recorder{}
	require.NoError(t, a.Run(context.Background(), "ctx-1", "what is 1/0", rec.emit))

	done := rec.last()
	assert.True(t, strings.HasPrefix(done.Data.(string), "The answer is error: "), done.Data)
}

func TestRunUnknownTool(t *testing.T) {
	provider := llmtest.NewToolEcho("shell", `{}`)
	a := newCalculatorAgent(provider)

	rec := &recorder{}
	require.NoError(t, a.Run(context.Background(), "ctx-1", "rm -rf /", rec.emit))
	assert.Equal(t, "The answer is error: unknown tool", rec.last().Data)
}

func TestRunMaxIterations(t *testing.T) {
	calls := 0
	provider := llmtest.Func(func(ctx context.Context, _ []llm.Message, _ []llm.ToolSpec, _ func(string)) (*llm.Response, error) {
		calls++
		return &llm.Response{ToolCalls: []llm.ToolCall{{
			ID: "call", Name: "calculator", Arguments: `{"expression":"1+1","precision":-1}`,
		}}}, nil
	})
	a := agent.New(provider, agent.NewRegistry(tools.NewCalculator()), agent.Profile{
		Name:          "loop",
		MaxIterations: 3,
	})

	rec := &recorder{}
	err := a.Run(context.Background(), "ctx-1", "loop forever", rec.emit)
	require.ErrorIs(t, err, agent.ErrMaxIterations)
	assert.Equal(t, 3, calls)
	assert.Equal(t, agent.EventError, rec.last().Type)
}

func TestRunProviderError(t *testing.T) {
	boom := errors.New("boom")
	provider := llmtest.Func(func(context.Context, []llm.Message, []llm.ToolSpec, func(string)) (*llm.Response, error) {
		return nil, boom
	})
	a := newCalculatorAgent(provider)

	rec := &recorder{}
	err := a.Run(context.Background(), "ctx-1", "hi", rec.emit)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, agent.Event{Type: agent.EventError, Data: "llm call: boom"}, rec.last())
}

func TestRunCancelledContext(t *testing.T) {
	a := newCalculatorAgent(llmtest.NewToolEcho("calculator", `{"expression":"2+2","precision":-1}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx, "ctx-1", "what is 2+2", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunNotifiesObserver(t *testing.T) {
	obs := &recorder{}
	a := newCalculatorAgent(
		llmtest.NewToolEcho("calculator", `{"expression":"3*3","precision":-1}`),
		agent.WithObserver(obs),
	)

	require.NoError(t, a.Run(context.Background(), "ctx-1", "what is 3*3", nil))
	assert.Equal(t, []agent.EventType{
		agent.EventToolCall,
		agent.EventToolResult,
		agent.EventDone,
	}, obs.types())
	assert.Equal(t, "The answer is 9", obs.last().Data)
}

func TestRunCarriesHistoryWithinContext(t *testing.T) {
	provider := llmtest.NewToolEcho("calculator", `{"expression":"2+2","precision":-1}`)
	store := history.NewStore(history.DefaultMaxMessages)
	a := newCalculatorAgent(provider, agent.WithHistory(store))

	require.NoError(t, a.Run(context.Background(), "ctx-1", "what is 2+2", nil))
	require.NoError(t, a.Run(context.Background(), "ctx-1", "and again?", nil))
	require.NoError(t, a.Run(context.Background(), "ctx-2", "fresh", nil))

	calls := provider.Calls()
	require.Len(t, calls, 6)

	// system + previous turn (user, assistant call, tool, assistant answer) + user
	third := calls[2]
	require.Len(t, third, 6)
	assert.Equal(t, "what is 2+2", third[1].Content)
	assert.Equal(t, "The answer is 4", third[4].Content)
	assert.Equal(t, "and again?", third[5].Content)

	// a different context starts empty
	fifth := calls[4]
	require.Len(t, fifth, 2)
	assert.Equal(t, "fresh", fifth[1].Content)
}

func TestRunWithoutContextKeepsNoHistory(t *testing.T) {
	provider := llmtest.NewToolEcho("calculator", `{"expression":"2+2","precision":-1}`)
	a := newCalculatorAgent(provider, agent.WithHistory(history.NewStore(history.DefaultMaxMessages)))

	require.NoError(t, a.Run(context.Background(), "", "what is 2+2", nil))
	require.NoError(t, a.Run(context.Background(), "", "and again?", nil))

	calls := provider.Calls()
	require.Len(t, calls, 4)
	third := calls[2]
	require.Len(t, third, 2)
	assert.Equal(t, "and again?", third[1].Content)
}

func TestNewAppliesProfileDefaults(t *testing.T) {
	a := newCalculatorAgent(nil)
	assert.Equal(t, "Calculator Agent", a.Name())
	assert.Equal(t, "A calculator agent that can perform basic arithmetic operations.", a.Description())
	require.Len(t, a.Tools(), 1)
	assert.Equal(t, "calculator", a.Tools()[0].Name())
}

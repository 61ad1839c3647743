package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"calcagent/internal/history"
	"calcagent/internal/llm"
	"calcagent/internal/metrics"
	"calcagent/internal/trace"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ErrMaxIterations is returned when the model keeps requesting tools past
// the profile's iteration limit.
var ErrMaxIterations = errors.New("maximum agent iterations reached")

// Agent implements a ReAct (Reason + Act) loop over a fixed tool set.
// The agent keeps thinking and acting until the model returns no more tool
// calls, the iteration limit is hit or the context is cancelled.
type Agent struct {
	profile  Profile
	provider llm.Provider
	registry *Registry
	specs    []llm.ToolSpec
	observer Observer
	history  *history.Store
}

func (a *Agent) Name() string        { return a.profile.Name }
func (a *Agent) Description() string { return a.profile.Description }
func (a *Agent) Tools() []Tool       { return a.registry.All() }

// Run answers message within contextID. An empty contextID starts a
// conversation nobody else can continue.
func (a *Agent) Run(ctx context.Context, contextID string, message string, emit func(Event)) error {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	emit = a.fanout(ctx, emit)
	ctx = ContextWithContextID(ctx, contextID)

	truncatedMsg := message
	if len(truncatedMsg) > 200 {
		truncatedMsg = truncatedMsg[:200]
	}
	ctx, span := trace.Tracer().Start(ctx, "agent.run",
		oteltrace.WithAttributes(
			attribute.String("gen_ai.agent.name", a.profile.Name),
			attribute.String("a2a.context_id", contextID),
			attribute.String("user.message", truncatedMsg),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.AgentLatency.WithLabelValues(a.profile.Name).Observe(time.Since(start).Seconds())
	}()

	input := []llm.Message{{Role: llm.RoleSystem, Content: a.profile.SystemPrompt}}
	input = append(input, a.history.Load(contextID)...)
	slog.Debug("agent: history loaded", "context_id", contextID, "messages", len(input)-1)

	user := llm.Message{Role: llm.RoleUser, Content: message}
	input = append(input, user)
	turnStart := len(input) - 1

	answer, input, err := a.loop(ctx, input, emit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AgentRuns.WithLabelValues(a.profile.Name, "error").Inc()
		emit(Event{Type: EventError, Data: err.Error()})
		return err
	}

	a.history.SaveTurn(contextID, input[turnStart:])
	metrics.AgentRuns.WithLabelValues(a.profile.Name, "success").Inc()

	emit(Event{Type: EventDone, Data: answer})
	return nil
}

// fanout serialises emit (tools run in parallel) and copies every event to
// the observer.
func (a *Agent) fanout(ctx context.Context, emit func(Event)) func(Event) {
	var mu sync.Mutex
	return func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		a.observer.OnEvent(ctx, ev)
		if emit != nil {
			emit(ev)
		}
	}
}

// loop is the core ReAct cycle. Each iteration is a single LLM call where the
// model reasons about the current state and picks actions in one step. When a
// tool fails, the error goes back into context and the model sees it on the
// next iteration.
func (a *Agent) loop(ctx context.Context, input []llm.Message, emit func(Event)) (string, []llm.Message, error) {
	for iteration := 0; iteration < a.profile.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", input, err
		}

		llmCtx, llmSpan := trace.Tracer().Start(ctx, "llm.react",
			oteltrace.WithAttributes(attribute.Int("llm.iteration", iteration)),
		)

		resp, err := a.provider.ChatStream(llmCtx, input, a.specs, func(token string) {
			emit(Event{Type: EventToken, Data: token})
		})
		if err != nil {
			llmSpan.RecordError(err)
			llmSpan.SetStatus(codes.Error, err.Error())
			llmSpan.End()
			return "", input, fmt.Errorf("llm call: %w", err)
		}

		llmSpan.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int64("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int64("llm.output_tokens", resp.Usage.OutputTokens),
		)
		llmSpan.End()

		input = append(input, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
			Raw:       resp.Raw,
		})

		// No tool calls: the agent considers the task done.
		if len(resp.ToolCalls) == 0 {
			return resp.Text, input, nil
		}

		input = append(input, a.act(ctx, resp.ToolCalls, emit)...)
	}

	return "", input, fmt.Errorf("%w (%d)", ErrMaxIterations, a.profile.MaxIterations)
}

// act executes tool calls in parallel, emitting events for each, and returns
// the results as tool messages in call order.
func (a *Agent) act(ctx context.Context, calls []llm.ToolCall, emit func(Event)) []llm.Message {
	for _, call := range calls {
		emit(Event{Type: EventToolCall, Data: map[string]string{
			"name":      call.Name,
			"arguments": call.Arguments,
		}})
	}

	var wg sync.WaitGroup
	results := make([]llm.Message, len(calls))

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			content := a.execute(ctx, call)
			results[i] = llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: content}
			emit(Event{Type: EventToolResult, Data: map[string]string{
				"name":    call.Name,
				"content": content,
			}})
		}(i, call)
	}

	wg.Wait()
	return results
}

func (a *Agent) execute(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.registry.Get(call.Name)
	if !ok {
		slog.Warn("unknown tool call", "name", call.Name)
		return "error: unknown tool"
	}

	result, err := withTrace(tool).Execute(ctx, call.Arguments)
	if err != nil {
		slog.Warn("tool execution failed", "name", call.Name, "error", err)
		return "error: " + err.Error()
	}
	return result
}

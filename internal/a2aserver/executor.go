package a2aserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"calcagent/internal/agent"
	"calcagent/internal/metrics"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

const artifactName = "agent_response"

var _ a2asrv.AgentExecutor = (*Executor)(nil)

type run struct {
	cancel   context.CancelFunc
	canceled bool
	finished bool
}

// Executor runs an agent.Runner for each A2A message and translates its
// events into task status and artifact updates.
type Executor struct {
	runner agent.Runner

	// mu serialises the end of a run against tasks/cancel.
	mu      sync.Mutex
	running map[a2a.TaskID]*run
}

func NewExecutor(r agent.Runner) *Executor {
	return &Executor{runner: r, running: make(map[a2a.TaskID]*run)}
}

func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	text := messageText(reqCtx.Message)
	if text == "" {
		return fmt.Errorf("%w: message has no text content", a2a.ErrInvalidParams)
	}
	if task := reqCtx.StoredTask; task != nil && terminal(task.Status.State) {
		return fmt.Errorf("%w: task %s is in terminal state %s", a2a.ErrInvalidParams, task.ID, task.Status.State)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r, err := e.track(reqCtx.TaskID, cancel)
	if err != nil {
		return err
	}
	defer e.untrack(reqCtx.TaskID)

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewSubmittedTask(reqCtx, reqCtx.Message)); err != nil {
			return fmt.Errorf("writing submitted task: %w", err)
		}
	}
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return fmt.Errorf("writing working status: %w", err)
	}

	artifactID := responseArtifactID(reqCtx.Message)
	streamed := false
	var answer string
	runErr := e.runner.Run(ctx, reqCtx.ContextID, text, func(ev agent.Event) {
		var update a2a.Event
		switch ev.Type {
		case agent.EventToken:
			token, _ := ev.Data.(string)
			update = &a2a.TaskArtifactUpdateEvent{
				TaskID:    reqCtx.TaskID,
				ContextID: reqCtx.ContextID,
				Artifact: &a2a.Artifact{
					ID:    artifactID,
					Name:  artifactName,
					Parts: []a2a.Part{a2a.TextPart{Text: token}},
				},
				Append: streamed,
			}
			streamed = true
		case agent.EventToolCall, agent.EventToolResult:
			data, _ := ev.Data.(map[string]string)
			payload := map[string]any{"event": string(ev.Type)}
			for k, v := range data {
				payload[k] = v
			}
			msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.DataPart{Data: payload})
			update = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, msg)
		case agent.EventDone:
			answer, _ = ev.Data.(string)
		}
		if update != nil {
			if err := queue.Write(ctx, update); err != nil {
				slog.Debug("a2a: dropping agent event", "task_id", reqCtx.TaskID, "type", ev.Type, "error", err)
			}
		}
	})

	return e.finish(context.WithoutCancel(ctx), reqCtx, queue, r, artifactID, answer, runErr)
}

func (e *Executor) finish(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, r *run, artifactID a2a.ArtifactID, answer string, runErr error) error {
	e.mu.Lock()
	canceled := r.canceled
	r.finished = true
	e.mu.Unlock()
	if canceled {
		// Cancel already published the final state.
		return nil
	}

	var final *a2a.TaskStatusUpdateEvent
	switch {
	case errors.Is(runErr, context.Canceled):
		final = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	case runErr != nil:
		slog.Warn("a2a: agent run failed", "task_id", reqCtx.TaskID, "error", runErr)
		msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: runErr.Error()})
		final = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	default:
		// The complete answer replaces whatever was streamed token by token.
		full := &a2a.TaskArtifactUpdateEvent{
			TaskID:    reqCtx.TaskID,
			ContextID: reqCtx.ContextID,
			Artifact: &a2a.Artifact{
				ID:    artifactID,
				Name:  artifactName,
				Parts: []a2a.Part{a2a.TextPart{Text: answer}},
			},
			LastChunk: true,
		}
		if err := queue.Write(ctx, full); err != nil {
			return fmt.Errorf("writing answer artifact: %w", err)
		}
		msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: answer})
		final = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, msg)
	}
	final.Final = true

	metrics.Tasks.WithLabelValues(string(final.Status.State)).Inc()
	if err := queue.Write(ctx, final); err != nil {
		return fmt.Errorf("writing final status: %w", err)
	}
	return nil
}

func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	if task := reqCtx.StoredTask; task != nil && terminal(task.Status.State) {
		return fmt.Errorf("%w: task %s is %s", a2a.ErrTaskNotCancelable, task.ID, task.Status.State)
	}

	e.mu.Lock()
	if r, ok := e.running[reqCtx.TaskID]; ok {
		if r.finished {
			e.mu.Unlock()
			return fmt.Errorf("%w: task %s already finished", a2a.ErrTaskNotCancelable, reqCtx.TaskID)
		}
		r.canceled = true
		r.cancel()
	}
	e.mu.Unlock()

	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	metrics.Tasks.WithLabelValues(string(a2a.TaskStateCanceled)).Inc()
	slog.Info("a2a: task canceled", "task_id", reqCtx.TaskID)
	return queue.Write(ctx, ev)
}

// track registers a run for id. A task accepts one message at a time.
func (e *Executor) track(id a2a.TaskID, cancel context.CancelFunc) (*run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.running[id]; busy {
		return nil, fmt.Errorf("%w: task %s is still working on a previous message", a2a.ErrInvalidParams, id)
	}
	r := &run{cancel: cancel}
	e.running[id] = r
	return r, nil
}

func (e *Executor) untrack(id a2a.TaskID) {
	e.mu.Lock()
	delete(e.running, id)
	e.mu.Unlock()
}

func terminal(state a2a.TaskState) bool {
	switch state {
	case a2a.TaskStateCompleted, a2a.TaskStateCanceled, a2a.TaskStateFailed, a2a.TaskStateRejected:
		return true
	}
	return false
}

// messageText joins the text parts of msg.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case a2a.TextPart:
			b.WriteString(v.Text)
		case *a2a.TextPart:
			b.WriteString(v.Text)
		}
	}
	return b.String()
}

// responseArtifactID names the artifact holding the answer to msg, so
// streamed chunks and the final artifact agree on it.
func responseArtifactID(msg *a2a.Message) a2a.ArtifactID {
	return a2a.ArtifactID("artifact-" + msg.ID)
}

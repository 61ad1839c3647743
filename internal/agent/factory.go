package agent

import (
	"calcagent/internal/history"
	"calcagent/internal/llm"
)

type Option func(*Agent)

// WithObserver sets the hook notified of every event. Defaults to NopObserver.
func WithObserver(o Observer) Option {
	return func(a *Agent) { a.observer = o }
}

// WithHistory sets the conversation store used to carry turns across runs
// sharing a context ID.
func WithHistory(h *history.Store) Option {
	return func(a *Agent) { a.history = h }
}

// New builds an agent for profile using the profile's subset of registry.
func New(provider llm.Provider, registry *Registry, profile Profile, opts ...Option) *Agent {
	if profile.SystemPrompt == "" {
		profile.SystemPrompt = defaultSystemPrompt
	}
	if profile.MaxIterations <= 0 {
		profile.MaxIterations = defaultMaxIterations
	}

	a := &Agent{
		profile:  profile,
		provider: provider,
		registry: registry.Scope(profile.Tools),
		observer: NopObserver{},
		history:  history.NewStore(history.DefaultMaxMessages),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.specs = a.registry.Specs()
	return a
}

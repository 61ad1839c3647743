package agent

import (
	"context"
	"sort"

	"calcagent/internal/llm"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() any
	Execute(ctx context.Context, input string) (string, error)
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the registered tools sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Scope returns a registry restricted to the named tools. An empty list keeps
// every tool; unknown names are ignored.
func (r *Registry) Scope(names []string) *Registry {
	if len(names) == 0 {
		return r
	}
	scoped := NewRegistry()
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			scoped.Register(t)
		}
	}
	return scoped
}

// Specs describes the registered tools for the LLM provider.
func (r *Registry) Specs() []llm.ToolSpec {
	tools := r.All()
	specs := make([]llm.ToolSpec, 0, len(tools))
	for _, t := range tools {
		schema, _ := t.InputSchema().(map[string]any)
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schema,
		})
	}
	return specs
}

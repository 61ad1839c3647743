package agent_test

import (
	"context"
	"testing"

	"calcagent/internal/agent"
	"calcagent/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{ name string }

func (e echoTool) Name() string        { return e.name }
func (e echoTool) Description() string { return "echoes its input" }
func (e echoTool) InputSchema() any    { return map[string]any{"type": "object"} }
func (e echoTool) Execute(_ context.Context, input string) (string, error) {
	return input, nil
}

func TestRegistry(t *testing.T) {
	r := agent.NewRegistry(echoTool{"zeta"}, tools.NewCalculator(), echoTool{"alpha"})

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name())
	assert.Equal(t, "calculator", all[1].Name())
	assert.Equal(t, "zeta", all[2].Name())

	_, ok := r.Get("calculator")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	scoped := r.Scope([]string{"calculator", "missing"})
	require.Len(t, scoped.All(), 1)
	assert.Same(t, r, r.Scope(nil))

	specs := scoped.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "calculator", specs[0].Name)
	assert.Equal(t, false, specs[0].Parameters["additionalProperties"])
}

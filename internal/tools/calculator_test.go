package tools

import (
	"context"
	"testing"

	"calcagent/internal/calc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorExecute(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "integer", input: `{"expression":"2+2","precision":-1}`, want: "4"},
		{name: "precision omitted", input: `{"expression":"1/4"}`, want: "0.25"},
		{name: "rounded", input: `{"expression":"10/3","precision":2}`, want: "3.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorExecuteErrors(t *testing.T) {
	c := NewCalculator()

	_, err := c.Execute(context.Background(), `not json`)
	require.Error(t, err)

	_, err = c.Execute(context.Background(), `{"expression":"2 +* 2","precision":-1}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, calc.ErrInvalidExpression)

	for _, input := range []string{
		`{"expression":"1/3","precision":-2}`,
		`{"expression":"1/3","precision":65}`,
		`{"expression":"1/3","precision":4294967298}`,
		`{"expression":"1/3","precision":5000000}`,
	} {
		_, err := c.Execute(context.Background(), input)
		require.Error(t, err, input)
		assert.ErrorIs(t, err, calc.ErrInvalidExpression, input)
	}
}

func TestCalculatorExecutePrecisionBounds(t *testing.T) {
	c := NewCalculator()

	got, err := c.Execute(context.Background(), `{"expression":"1/4","precision":64}`)
	require.NoError(t, err)
	assert.Equal(t, "0.25", got)

	_, err = c.Execute(context.Background(), `{"expression":"9223372036854775807 + 1","precision":-1}`)
	assert.ErrorIs(t, err, calc.ErrInvalidExpression)
}

func TestCalculatorSchemaIsStrict(t *testing.T) {
	schema, ok := NewCalculator().InputSchema().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []string{"expression", "precision"}, schema["required"])

	precision := schema["properties"].(map[string]any)["precision"].(map[string]any)
	assert.Equal(t, -1, precision["minimum"])
	assert.Equal(t, calc.MaxPrecision, precision["maximum"])
}

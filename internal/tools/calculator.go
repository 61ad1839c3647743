package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"calcagent/internal/calc"
)

// Calculator evaluates arithmetic expressions for the agent.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }
func (c *Calculator) Description() string {
	return "Evaluate an arithmetic expression and return the numeric result. " +
		"Supports + - * / % ^, parentheses, the constants pi and e, and the functions " +
		"sqrt, sin, cos, tan, log, ln, exp, pow, abs, floor, ceil, round, min and max."
}

func (c *Calculator) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The arithmetic expression to evaluate, e.g. \"2 + 2\" or \"sqrt(16) * 3\"",
			},
			"precision": map[string]any{
				"type":        "integer",
				"description": "Number of decimal places to round the result to; -1 keeps full precision",
				"minimum":     -1,
				"maximum":     calc.MaxPrecision,
			},
		},
		"required":             []string{"expression", "precision"},
		"additionalProperties": false,
	}
}

func (c *Calculator) Execute(ctx context.Context, input string) (string, error) {
	args := struct {
		Expression string `json:"expression"`
		Precision  *int   `json:"precision"`
	}{}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("parsing calculator input: %w", err)
	}

	precision := -1
	if args.Precision != nil {
		precision = *args.Precision
	}
	if precision < -1 || precision > calc.MaxPrecision {
		return "", fmt.Errorf("%w: precision must be between -1 and %d, got %d",
			calc.ErrInvalidExpression, calc.MaxPrecision, precision)
	}

	result, err := calc.Evaluate(args.Expression)
	if err != nil {
		return "", err
	}

	out := calc.Format(result, precision)
	slog.Debug("calculator: evaluated", "expression", args.Expression, "result", out)
	return out, nil
}

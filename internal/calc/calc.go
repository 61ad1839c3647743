// Package calc evaluates arithmetic expressions for the calculator tool.
package calc

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/shopspring/decimal"
)

// ErrInvalidExpression is returned for anything that does not evaluate to a
// finite number.
var ErrInvalidExpression = errors.New("invalid expression")

// MaxPrecision bounds the decimal places Format rounds to.
const MaxPrecision = 64

var errOverflow = errors.New("integer overflow")

// Builtins kept enabled on top of the functions defined below.
var builtins = []string{"abs", "ceil", "floor", "round", "max", "min"}

var constants = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]func(args ...float64) (float64, error){
	"sqrt": unary(math.Sqrt),
	"sin":  unary(math.Sin),
	"cos":  unary(math.Cos),
	"tan":  unary(math.Tan),
	"log":  unary(math.Log10),
	"ln":   unary(math.Log),
	"exp":  unary(math.Exp),
	"pow": func(args ...float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("pow expects 2 arguments, got %d", len(args))
		}
		return math.Pow(args[0], args[1]), nil
	},
}

func unary(fn func(float64) float64) func(args ...float64) (float64, error) {
	return func(args ...float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func options() []expr.Option {
	opts := []expr.Option{
		expr.Env(constants),
		expr.DisableAllBuiltins(),
	}
	for _, name := range builtins {
		opts = append(opts, expr.EnableBuiltin(name))
	}
	for name, fn := range checked {
		opts = append(opts, expr.Function(name, fn, new(func(int, int) int)))
	}
	opts = append(opts,
		expr.Function(checkedNeg, negInt, new(func(int) int)),
		expr.Patch(overflowChecks{}),
	)
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			args := make([]float64, len(params))
			for i, p := range params {
				f, ok := toFloat(p)
				if !ok {
					return nil, fmt.Errorf("%s: argument %d is not a number", name, i+1)
				}
				args[i] = f
			}
			return fn(args...)
		}))
	}
	return opts
}

// Evaluate parses and evaluates expression. Integer arithmetic stays exact
// and fails with ErrInvalidExpression on overflow; anything involving
// division or a function is computed in float64.
func Evaluate(expression string) (decimal.Decimal, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return decimal.Zero, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	program, err := expr.Compile(expression, options()...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	out, err := expr.Run(program, constants)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	switch v := out.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: result is not a finite number", ErrInvalidExpression)
		}
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: result of type %T is not a number", ErrInvalidExpression, out)
	}
}

// Format renders d rounded to precision decimal places, capped at
// MaxPrecision. A negative precision keeps every digit.
func Format(d decimal.Decimal, precision int) string {
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	if precision >= 0 {
		d = d.Round(int32(precision))
	}
	return d.String()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

const checkedNeg = "__neg"

// checked replaces the int64 operators expr would otherwise let wrap around.
var checked = map[string]func(params ...any) (any, error){
	"__add": intOp(func(a, b int) (int, bool) {
		return a + b, (b > 0 && a > math.MaxInt-b) || (b < 0 && a < math.MinInt-b)
	}),
	"__sub": intOp(func(a, b int) (int, bool) {
		return a - b, (b < 0 && a > math.MaxInt+b) || (b > 0 && a < math.MinInt+b)
	}),
	"__mul": intOp(func(a, b int) (int, bool) {
		if a == 0 || b == 0 {
			return 0, false
		}
		c := a * b
		return c, c/b != a || (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt)
	}),
}

var checkedOperators = map[string]string{"+": "__add", "-": "__sub", "*": "__mul"}

func intOp(op func(a, b int) (int, bool)) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		a, aok := params[0].(int)
		b, bok := params[1].(int)
		if !aok || !bok {
			return nil, fmt.Errorf("expected integers, got %T and %T", params[0], params[1])
		}
		c, overflow := op(a, b)
		if overflow {
			return nil, errOverflow
		}
		return c, nil
	}
}

func negInt(params ...any) (any, error) {
	a, ok := params[0].(int)
	if !ok {
		return nil, fmt.Errorf("expected integer, got %T", params[0])
	}
	if a == math.MinInt {
		return nil, errOverflow
	}
	return -a, nil
}

var intType = reflect.TypeOf(0)

// overflowChecks rewrites integer +, - and * (and unary minus) into calls to
// the checked functions. Nodes carry types from a check pass that runs
// before patching; ast.Patch drops them, so replacements are re-typed here
// for their parents.
type overflowChecks struct{}

func (overflowChecks) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		name, ok := checkedOperators[n.Operator]
		if !ok || !isInt(n.Left) || !isInt(n.Right) {
			return
		}
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: name},
			Arguments: []ast.Node{n.Left, n.Right},
		})
		(*node).SetType(intType)
	case *ast.UnaryNode:
		if n.Operator != "-" || !isInt(n.Node) {
			return
		}
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: checkedNeg},
			Arguments: []ast.Node{n.Node},
		})
		(*node).SetType(intType)
	}
}

func isInt(n ast.Node) bool {
	t := n.Type()
	return t != nil && t.Kind() == reflect.Int
}

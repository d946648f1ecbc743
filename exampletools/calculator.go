// Package exampletools collects reference tool handlers tagged by effect
// class, for tests and the demo binary: a pure calculator, the state-class
// planning/filesystem tools re-exported for convenience, and an external
// bash handler that runs in a workspace root.
package exampletools

import (
	"context"
	"fmt"

	"deepagent/agent"
)

// CalculatorTool evaluates a small arithmetic expression of the form
// "<number> <op> <number>" where op is one of + - * /. It is
// EffectClassPure: it reads nothing mutable and never touches AgentState.
func CalculatorTool() agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        "calculator",
		Description: "Evaluate a binary arithmetic expression: two numbers and one of + - * /.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"left":     map[string]any{"type": "number"},
				"operator": map[string]any{"type": "string", "enum": []any{"+", "-", "*", "/"}},
				"right":    map[string]any{"type": "number"},
			},
			"required": []any{"left", "operator", "right"},
		},
		EffectClass: agent.EffectClassPure,
		Handler: func(_ context.Context, _ agent.ToolContext, input map[string]any) (any, error) {
			left, ok := toFloat(input["left"])
			if !ok {
				return nil, fmt.Errorf("calculator: left must be a number")
			}
			right, ok := toFloat(input["right"])
			if !ok {
				return nil, fmt.Errorf("calculator: right must be a number")
			}
			operator, _ := input["operator"].(string)

			switch operator {
			case "+":
				return left + right, nil
			case "-":
				return left - right, nil
			case "*":
				return left * right, nil
			case "/":
				if right == 0 {
					return nil, fmt.Errorf("calculator: division by zero")
				}
				return left / right, nil
			default:
				return nil, fmt.Errorf("calculator: unsupported operator %q", operator)
			}
		},
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

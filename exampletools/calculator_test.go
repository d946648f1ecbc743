package exampletools_test

import (
	"context"
	"testing"

	"deepagent/agent"
	"deepagent/exampletools"
)

func TestCalculatorTool_Add(t *testing.T) {
	t.Parallel()

	tool := exampletools.CalculatorTool()
	if tool.EffectClass != agent.EffectClassPure {
		t.Fatalf("expected pure effect class, got %q", tool.EffectClass)
	}

	result, err := tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{
		"left": 2.0, "operator": "+", "right": 3.0,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result != 5.0 {
		t.Fatalf("expected 5, got %v", result)
	}
}

func TestCalculatorTool_DivisionByZero(t *testing.T) {
	t.Parallel()

	tool := exampletools.CalculatorTool()
	_, err := tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{
		"left": 1.0, "operator": "/", "right": 0.0,
	})
	if err == nil {
		t.Fatalf("expected division-by-zero error")
	}
}

func TestCalculatorTool_RejectsNonNumericOperand(t *testing.T) {
	t.Parallel()

	tool := exampletools.CalculatorTool()
	_, err := tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{
		"left": "nope", "operator": "+", "right": 1.0,
	})
	if err == nil {
		t.Fatalf("expected error for non-numeric operand")
	}
}

func TestCalculatorTool_RejectsUnsupportedOperator(t *testing.T) {
	t.Parallel()

	tool := exampletools.CalculatorTool()
	_, err := tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{
		"left": 1.0, "operator": "^", "right": 2.0,
	})
	if err == nil {
		t.Fatalf("expected error for unsupported operator")
	}
}

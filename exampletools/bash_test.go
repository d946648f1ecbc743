package exampletools_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepagent/agent"
	"deepagent/exampletools"
)

func TestNewBashPolicy_ResolvesWorkspaceRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policy, err := exampletools.NewBashPolicy(dir, 0)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if policy.Timeout != exampletools.DefaultBashTimeout {
		t.Fatalf("expected default timeout, got %s", policy.Timeout)
	}
}

func TestNewBashPolicy_RejectsMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := exampletools.NewBashPolicy("", time.Second); err == nil {
		t.Fatalf("expected error for empty workspace root")
	}
}

func TestBashPolicy_ValidateRejectsEmptyCommand(t *testing.T) {
	t.Parallel()

	policy, err := exampletools.NewBashPolicy(t.TempDir(), time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if err := policy.Validate("   "); !errors.Is(err, exampletools.ErrBashCommandEmpty) {
		t.Fatalf("expected ErrBashCommandEmpty, got %v", err)
	}
}

func TestBashPolicy_ValidateRejectsForbiddenToken(t *testing.T) {
	t.Parallel()

	policy, err := exampletools.NewBashPolicy(t.TempDir(), time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if err := policy.Validate("ls && rm -rf /"); !errors.Is(err, exampletools.ErrBashCommandDenied) {
		t.Fatalf("expected ErrBashCommandDenied, got %v", err)
	}
}

func TestBashPolicy_ValidateRejectsDisallowedVerb(t *testing.T) {
	t.Parallel()

	policy, err := exampletools.NewBashPolicy(t.TempDir(), time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if err := policy.Validate("rm file.txt"); !errors.Is(err, exampletools.ErrBashCommandDenied) {
		t.Fatalf("expected ErrBashCommandDenied, got %v", err)
	}
}

func TestBashTool_RunsAllowedCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policy, err := exampletools.NewBashPolicy(dir, 2*time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	tool := exampletools.BashTool(policy)
	if tool.EffectClass != agent.EffectClassExternal {
		t.Fatalf("expected external effect class, got %q", tool.EffectClass)
	}

	result, err := tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{"command": "pwd"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result == "" {
		t.Fatalf("expected non-empty output")
	}
}

func TestBashTool_TimesOutLongRunningCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policy, err := exampletools.NewBashPolicy(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	tool := exampletools.BashTool(policy)

	_, err = tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{"command": "find / -name nonexistent-xyz"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, exampletools.ErrBashExecutionTimedOut) {
		t.Fatalf("expected ErrBashExecutionTimedOut, got %v", err)
	}
}

func TestBashTool_RejectsDeniedCommandBeforeExecuting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policy, err := exampletools.NewBashPolicy(dir, time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	tool := exampletools.BashTool(policy)

	_, err = tool.Handler(context.Background(), agent.ToolContext{}, map[string]any{"command": "curl http://example.com"})
	if !errors.Is(err, exampletools.ErrBashCommandDenied) {
		t.Fatalf("expected ErrBashCommandDenied, got %v", err)
	}
}

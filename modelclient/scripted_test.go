package modelclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepagent/agent"
	"deepagent/modelclient"
)

func TestScriptedModel_ReplaysInOrder(t *testing.T) {
	t.Parallel()

	model := modelclient.NewScriptedModel(
		modelclient.ScriptedResponse{Message: agent.NewAssistantText("first")},
		modelclient.ScriptedResponse{Message: agent.NewAssistantText("second")},
	)

	first, err := model.Generate(context.Background(), agent.ModelRequest{})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if agent.FinalText(first) != "first" {
		t.Fatalf("unexpected first response: %q", agent.FinalText(first))
	}

	second, err := model.Generate(context.Background(), agent.ModelRequest{})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if agent.FinalText(second) != "second" {
		t.Fatalf("unexpected second response: %q", agent.FinalText(second))
	}

	if _, err := model.Generate(context.Background(), agent.ModelRequest{}); err == nil {
		t.Fatalf("expected error once script is exhausted")
	}
}

func TestScriptedModel_ReplaysScriptedError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	model := modelclient.NewScriptedModel(modelclient.ScriptedResponse{Err: boom})

	_, err := model.Generate(context.Background(), agent.ModelRequest{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
}

func TestRateLimit_DelegatesAfterAdmission(t *testing.T) {
	t.Parallel()

	inner := modelclient.NewScriptedModel(modelclient.ScriptedResponse{Message: agent.NewAssistantText("ok")})
	limited, err := modelclient.NewRateLimit(inner, 1000, 1)
	if err != nil {
		t.Fatalf("new rate limit: %v", err)
	}

	msg, err := limited.Generate(context.Background(), agent.ModelRequest{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if agent.FinalText(msg) != "ok" {
		t.Fatalf("unexpected response: %q", agent.FinalText(msg))
	}
}

func TestRateLimit_ContextCancelledDuringWaitReturnsError(t *testing.T) {
	t.Parallel()

	inner := modelclient.NewScriptedModel(modelclient.ScriptedResponse{Message: agent.NewAssistantText("unreachable")})
	limited, err := modelclient.NewRateLimit(inner, 0.001, 1)
	if err != nil {
		t.Fatalf("new rate limit: %v", err)
	}
	// Exhaust the single burst slot so the next call must wait.
	if _, err := limited.Generate(context.Background(), agent.ModelRequest{}); err != nil {
		t.Fatalf("first generate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := limited.Generate(ctx, agent.ModelRequest{}); err == nil {
		t.Fatalf("expected context deadline error while waiting for rate limiter")
	}
}

func TestNewRateLimit_RejectsNilModel(t *testing.T) {
	t.Parallel()

	if _, err := modelclient.NewRateLimit(nil, 1, 1); err == nil {
		t.Fatalf("expected error for nil model")
	}
}

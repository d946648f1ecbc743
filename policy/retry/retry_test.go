package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"deepagent/agent"
)

type modelFunc func(context.Context, agent.ModelRequest) (agent.Message, error)

func (f modelFunc) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	return f(ctx, request)
}

func TestWrapModel_FailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	attempts := 0
	model := modelFunc(func(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
		attempts++
		if attempts < 3 {
			return agent.Message{}, fmt.Errorf("attempt %d failed", attempts)
		}
		return agent.NewAssistantText("done"), nil
	})

	wrapped := WrapModel(model, Config{MaxAttempts: 3})
	msg, err := wrapped.Generate(context.Background(), agent.ModelRequest{})
	if err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
	if agent.FinalText(msg) != "done" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWrapModel_AlwaysFailReturnsLastError(t *testing.T) {
	t.Parallel()

	attempts := 0
	var lastErr error
	model := modelFunc(func(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
		attempts++
		lastErr = fmt.Errorf("attempt %d failed", attempts)
		return agent.Message{}, lastErr
	})

	wrapped := WrapModel(model, Config{MaxAttempts: 4})
	_, err := wrapped.Generate(context.Background(), agent.ModelRequest{})
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error %v, got %v", lastErr, err)
	}
	if attempts != 4 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapModel_ShouldRetryFalseStopsAfterFirstError(t *testing.T) {
	t.Parallel()

	attempts := 0
	model := modelFunc(func(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
		attempts++
		return agent.Message{}, errors.New("retryable")
	})

	wrapped := WrapModel(model, Config{
		MaxAttempts: 5,
		ShouldRetry: func(error) bool { return false },
	})
	if _, err := wrapped.Generate(context.Background(), agent.ModelRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapModel_ContextErrorsDoNotRetryByDefault(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{name: "canceled", err: context.Canceled},
		{name: "deadline_exceeded", err: context.DeadlineExceeded},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			model := modelFunc(func(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
				attempts++
				return agent.Message{}, tc.err
			})
			wrapped := WrapModel(model, Config{MaxAttempts: 5})

			_, err := wrapped.Generate(context.Background(), agent.ModelRequest{})
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if attempts != 1 {
				t.Fatalf("unexpected attempts: %d", attempts)
			}
		})
	}
}

func TestWrapModel_ContextDoneStopsWithoutAttempt(t *testing.T) {
	t.Parallel()

	attempts := 0
	model := modelFunc(func(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
		attempts++
		return agent.Message{}, errors.New("unexpected call")
	})
	wrapped := WrapModel(model, Config{MaxAttempts: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wrapped.Generate(ctx, agent.ModelRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

type toolExecutorFunc func(context.Context, agent.ToolContext, agent.ToolCall) (agent.Block, error)

func (f toolExecutorFunc) Execute(ctx context.Context, toolCtx agent.ToolContext, call agent.ToolCall) (agent.Block, error) {
	return f(ctx, toolCtx, call)
}

func TestWrapToolExecutor_FailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	attempts := 0
	executor := toolExecutorFunc(func(_ context.Context, _ agent.ToolContext, call agent.ToolCall) (agent.Block, error) {
		attempts++
		if attempts < 3 {
			return agent.Block{}, fmt.Errorf("attempt %d failed", attempts)
		}
		return agent.OKToolResultBlock(call.ID, "done"), nil
	})

	wrapped := WrapToolExecutor(executor, Config{MaxAttempts: 3})
	block, err := wrapped.Execute(context.Background(), agent.ToolContext{}, agent.ToolCall{ID: "call-1", Name: "lookup"})
	if err != nil {
		t.Fatalf("execute returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
	if block.Payload != "done" {
		t.Fatalf("unexpected block: %+v", block)
	}
}

func TestWrapToolExecutor_ContextDoneStopsWithoutAttempt(t *testing.T) {
	t.Parallel()

	attempts := 0
	executor := toolExecutorFunc(func(_ context.Context, _ agent.ToolContext, _ agent.ToolCall) (agent.Block, error) {
		attempts++
		return agent.Block{}, errors.New("unexpected call")
	})
	wrapped := WrapToolExecutor(executor, Config{MaxAttempts: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wrapped.Execute(ctx, agent.ToolContext{}, agent.ToolCall{ID: "call-1", Name: "lookup"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

package agent_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"deepagent/agent"
	"deepagent/agent/internal/testkit"
)

func TestConcurrentToolExecutor_ReassemblesInInputOrder(t *testing.T) {
	t.Parallel()

	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"slow": func(ctx context.Context, _ map[string]any) (any, error) {
			time.Sleep(30 * time.Millisecond)
			return "slow-done", nil
		},
		"fast": func(_ context.Context, _ map[string]any) (any, error) {
			return "fast-done", nil
		},
	})
	executor := agent.NewConcurrentToolExecutor(registry, 4, nil)

	calls := []agent.ToolCall{
		{ID: "1", Name: "slow"},
		{ID: "2", Name: "fast"},
		{ID: "3", Name: "fast"},
	}
	results, err := executor.Dispatch(context.Background(), nil, "session-1", calls, map[string]agent.EffectClass{
		"slow": agent.EffectClassPure,
		"fast": agent.EffectClassPure,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "1" || results[1].ID != "2" || results[2].ID != "3" {
		t.Fatalf("results not reassembled in input order: %+v", results)
	}
}

func TestConcurrentToolExecutor_SerializesStateClassCalls(t *testing.T) {
	t.Parallel()

	var concurrent int32
	var maxConcurrent int32
	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"mutate": func(_ context.Context, _ map[string]any) (any, error) {
			current := atomic.AddInt32(&concurrent, 1)
			for {
				observedMax := atomic.LoadInt32(&maxConcurrent)
				if current <= observedMax || atomic.CompareAndSwapInt32(&maxConcurrent, observedMax, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return "ok", nil
		},
	})
	executor := agent.NewConcurrentToolExecutor(registry, 4, nil)
	state := agent.NewAgentState()

	calls := []agent.ToolCall{{ID: "1", Name: "mutate"}, {ID: "2", Name: "mutate"}, {ID: "3", Name: "mutate"}}
	_, err := executor.Dispatch(context.Background(), state, "session-1", calls, map[string]agent.EffectClass{
		"mutate": agent.EffectClassState,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if atomic.LoadInt32(&maxConcurrent) != 1 {
		t.Fatalf("expected state-class calls to never run concurrently, observed max=%d", maxConcurrent)
	}
}

func TestConcurrentToolExecutor_StateClassWithoutStateReturnsErrorBlock(t *testing.T) {
	t.Parallel()

	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"mutate": func(_ context.Context, _ map[string]any) (any, error) { return "ok", nil },
	})
	executor := agent.NewConcurrentToolExecutor(registry, 4, nil)

	calls := []agent.ToolCall{{ID: "1", Name: "mutate"}}
	results, err := executor.Dispatch(context.Background(), nil, "session-1", calls, map[string]agent.EffectClass{
		"mutate": agent.EffectClassState,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if results[0].Status != agent.ToolResultStatusError {
		t.Fatalf("expected error result, got %+v", results[0])
	}
}

func TestConcurrentToolExecutor_ConsentHookCanDenyCall(t *testing.T) {
	t.Parallel()

	var called int32
	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"danger": func(_ context.Context, _ map[string]any) (any, error) {
			atomic.AddInt32(&called, 1)
			return "ok", nil
		},
	})
	denyAll := func(_ context.Context, _ agent.ToolCall) error {
		return context.Canceled
	}
	executor := agent.NewConcurrentToolExecutor(registry, 4, denyAll)

	calls := []agent.ToolCall{{ID: "1", Name: "danger"}}
	results, err := executor.Dispatch(context.Background(), nil, "session-1", calls, map[string]agent.EffectClass{
		"danger": agent.EffectClassExternal,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if results[0].Status != agent.ToolResultStatusError {
		t.Fatalf("expected denied call to yield an error result")
	}
	if atomic.LoadInt32(&called) != 0 {
		t.Fatalf("expected denied call to never reach the handler")
	}
}

func TestConcurrentToolExecutor_CancelledContextYieldsErrorBlocksForAll(t *testing.T) {
	t.Parallel()

	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"noop": func(_ context.Context, _ map[string]any) (any, error) { return "ok", nil },
	})
	executor := agent.NewConcurrentToolExecutor(registry, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := []agent.ToolCall{{ID: "1", Name: "noop"}, {ID: "2", Name: "noop"}}
	results, err := executor.Dispatch(ctx, nil, "session-1", calls, map[string]agent.EffectClass{
		"noop": agent.EffectClassPure,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for _, r := range results {
		if r.Status != agent.ToolResultStatusError {
			t.Fatalf("expected error result for cancelled dispatch, got %+v", r)
		}
	}
}

func TestConcurrentToolExecutor_BoundsParallelism(t *testing.T) {
	t.Parallel()

	var concurrent int32
	var maxConcurrent int32
	var mu sync.Mutex
	registry := testkit.NewRegistry(map[string]testkit.Handler{
		"work": func(_ context.Context, _ map[string]any) (any, error) {
			current := atomic.AddInt32(&concurrent, 1)
			mu.Lock()
			if current > maxConcurrent {
				maxConcurrent = current
			}
			mu.Unlock()
			time.Sleep(15 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return "ok", nil
		},
	})
	executor := agent.NewConcurrentToolExecutor(registry, 2, nil)

	calls := make([]agent.ToolCall, 6)
	effects := map[string]agent.EffectClass{"work": agent.EffectClassPure}
	for i := range calls {
		calls[i] = agent.ToolCall{ID: string(rune('a' + i)), Name: "work"}
	}
	_, err := executor.Dispatch(context.Background(), nil, "session-1", calls, effects)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if maxConcurrent > 2 {
		t.Fatalf("expected at most 2 concurrent invocations, observed %d", maxConcurrent)
	}
}

package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ConcurrentToolExecutor dispatches one batch of tool calls with bounded
// parallelism and reassembles the results in the *input* order, never in
// completion order. State-class calls acquire the AgentState lease for the
// duration of their single
// invocation and release it before the next call in the batch can run, so
// two state-class calls in the same batch are serialized even though
// everything else in the batch proceeds concurrently.
type ConcurrentToolExecutor struct {
	registry    ToolExecutor
	parallelism int64
	consent     ConsentHook
}

// NewConcurrentToolExecutor builds an executor backed by registry, bounded
// to parallelism concurrent in-flight handler invocations. A non-positive
// parallelism falls back to 1 (fully sequential).
func NewConcurrentToolExecutor(registry ToolExecutor, parallelism int, consent ConsentHook) *ConcurrentToolExecutor {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ConcurrentToolExecutor{
		registry:    registry,
		parallelism: int64(parallelism),
		consent:     consent,
	}
}

// Dispatch runs calls concurrently (bounded by the executor's parallelism)
// and returns one Block per call, positioned at the same index as its
// ToolCall in calls. A call whose handler returns an error, whose consent
// hook rejects it, that is state-class with a nil state, or that is not
// started because ctx is already done yields an error ToolResult block at
// its slot. Dispatch waits for every started handler to return: a handler
// that ignores ctx delays the whole batch, and one that succeeds after ctx
// is done keeps its ok result. The returned error is always nil.
func (e *ConcurrentToolExecutor) Dispatch(ctx context.Context, state *AgentState, sessionID string, calls []ToolCall, effects map[string]EffectClass) ([]Block, error) {
	results := make([]Block, len(calls))
	sem := semaphore.NewWeighted(e.parallelism)

	type outcome struct {
		index int
		block Block
	}
	outcomes := make(chan outcome, len(calls))

	for i, call := range calls {
		i, call := i, call
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context already done: every remaining slot becomes a
			// cancelled ToolResult rather than aborting the batch, so a
			// partial batch still reassembles into a full-length result.
			outcomes <- outcome{i, ErrToolResultBlock(call.ID, cancelledPayload(call, ctx.Err()))}
			continue
		}
		go func() {
			defer sem.Release(1)
			outcomes <- outcome{i, e.dispatchOne(ctx, state, sessionID, call, effects[call.Name])}
		}()
	}

	for range calls {
		o := <-outcomes
		results[o.index] = o.block
	}
	return results, nil
}

func (e *ConcurrentToolExecutor) dispatchOne(ctx context.Context, state *AgentState, sessionID string, call ToolCall, effect EffectClass) Block {
	if e.consent != nil {
		if err := e.consent(ctx, call); err != nil {
			return ErrToolResultBlock(call.ID, fmt.Sprintf("%s: %s", ErrToolConsentDenied, err))
		}
	}

	toolCtx := ToolContext{State: state, SessionID: sessionID, CancellationToken: ctx}

	if effect == EffectClassState {
		if state == nil {
			return ErrToolResultBlock(call.ID, "state-class tool invoked without an AgentState")
		}
		state.Lock()
		defer state.Unlock()
	}

	block, err := e.registry.Execute(ctx, toolCtx, call)
	if err != nil {
		if ctx.Err() != nil {
			return ErrToolResultBlock(call.ID, cancelledPayload(call, ctx.Err()))
		}
		return ErrToolResultBlock(call.ID, err.Error())
	}
	return block
}

func cancelledPayload(call ToolCall, err error) string {
	return fmt.Sprintf("%s: %s: %v", ErrToolCancelled, call.Name, err)
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxSteps bounds a turn when RunInput/EngineInput leaves MaxSteps unset.
const DefaultMaxSteps = 8

// DefaultModelRetries is R_model: the number of additional attempts after a
// transient model error before the turn fails outright.
const DefaultModelRetries = 3

// ReactLoop drives the reason-act event loop: request a model completion,
// append it (stopping if it carries no tool calls), dispatch its tool calls
// concurrently, append their answers as one user message, loop. Model
// transients retry with backoff; everything else
// either ends the run or is surfaced as an error ToolResult for the model to
// react to on its next turn.
type ReactLoop struct {
	model        Model
	executor     *ConcurrentToolExecutor
	events       EventSink
	modelRetries uint
}

// ReactLoopOption customizes a ReactLoop built by NewReactLoop.
type ReactLoopOption func(*ReactLoop)

// WithModelRetries overrides DefaultModelRetries, the number of additional
// attempts after a transient model error before the turn fails outright.
func WithModelRetries(retries uint) ReactLoopOption {
	return func(l *ReactLoop) {
		l.modelRetries = retries
	}
}

// NewReactLoop builds a loop over model and executor, publishing to events
// (a noopEventSink if nil).
func NewReactLoop(model Model, executor *ConcurrentToolExecutor, events EventSink, opts ...ReactLoopOption) (*ReactLoop, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}
	if events == nil {
		events = noopEventSink{}
	}
	loop := &ReactLoop{model: model, executor: executor, events: events, modelRetries: DefaultModelRetries}
	for _, opt := range opts {
		opt(loop)
	}
	return loop, nil
}

func (l *ReactLoop) Execute(ctx context.Context, state RunState, input EngineInput) (RunState, error) {
	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	if err := transitionRunStatus(&state, RunStatusRunning); err != nil {
		return state, err
	}
	store := NewMessageStore(state.Messages)

	for state.Step < maxSteps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.cancelRun(ctx, state, store, ctxErr)
		}
		state.Step++

		// Request a model completion.
		assistant, err := l.generateWithRetry(ctx, store, input.SystemPrompt, cloneToolDefinitions(input.Tools))
		if err != nil {
			if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
				return l.cancelRun(ctx, state, store, cancellationErr)
			}
			return l.failRun(ctx, state, store, err)
		}
		if assistant.Role == "" {
			assistant.Role = RoleAssistant
		}

		// Append the assistant message.
		if err := store.AppendAssistant(assistant); err != nil {
			return l.failRun(ctx, state, store, err)
		}
		state.Messages = store.View()
		_ = l.events.Publish(ctx, Event{RunID: state.ID, Step: state.Step, Type: EventTypeAssistantMessage, Message: &assistant})

		toolUses := ToolUseBlocksOf(assistant)
		if len(toolUses) == 0 {
			// No tool calls: this is the final answer.
			if err := transitionRunStatus(&state, RunStatusCompleted); err != nil {
				return state, err
			}
			state.Output = FinalText(assistant)
			_ = l.events.Publish(ctx, Event{RunID: state.ID, Step: state.Step, Type: EventTypeRunCompleted, Description: "assistant returned a final answer"})
			return state, nil
		}

		// Dispatch the batch concurrently, reassembled in input order.
		// Undefined tool names are not rejected here: the executor's
		// underlying registry rejects them with ErrToolUnregistered, which
		// becomes that call's error block without failing its siblings.
		calls := make([]ToolCall, len(toolUses))
		for i, block := range toolUses {
			calls[i] = ToolCallFromBlock(block)
		}
		results, err := l.executor.Dispatch(ctx, input.State, input.SessionID, calls, input.EffectClass)
		if err != nil {
			return l.failRun(ctx, state, store, err)
		}
		for i := range results {
			_ = l.events.Publish(ctx, Event{
				RunID: state.ID, Step: state.Step, Type: EventTypeToolResult,
				ToolCallID: calls[i].ID, ToolName: calls[i].Name, ToolResult: &results[i],
			})
		}

		// Append the single tool-result user message.
		if err := store.AppendUser(NewToolResultMessage(results)); err != nil {
			return l.failRun(ctx, state, store, err)
		}
		state.Messages = store.View()
	}

	if err := transitionRunStatus(&state, RunStatusMaxStepsExceeded); err != nil {
		return state, errors.Join(ErrMaxStepsExceeded, err)
	}
	state.StepBudgetExceeded = true
	state.Error = ErrMaxStepsExceeded.Error()
	_ = l.events.Publish(ctx, Event{RunID: state.ID, Step: state.Step, Type: EventTypeMaxStepsExceeded, Description: ErrMaxStepsExceeded.Error()})
	return state, ErrMaxStepsExceeded
}

// generateWithRetry wraps Model.Generate in an exponential-backoff-with-
// jitter retry loop bounded by l.modelRetries: only errors matching
// ErrModelTransient are retried; everything else is permanent, and retrying
// stops once ctx is done.
func (l *ReactLoop) generateWithRetry(ctx context.Context, store *MessageStore, systemPrompt string, tools []ToolDefinition) (Message, error) {
	request := ModelRequest{SystemPrompt: systemPrompt, Tools: tools}
	operation := func() (Message, error) {
		request.Messages = store.View()
		msg, err := l.model.Generate(ctx, request)
		if err != nil {
			if errors.Is(err, ErrModelTransient) {
				return Message{}, err
			}
			return Message{}, backoff.Permanent(err)
		}
		return msg, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(l.modelRetries+1),
	)
}

func cloneToolDefinitions(in []ToolDefinition) []ToolDefinition {
	out := make([]ToolDefinition, len(in))
	for i := range in {
		out[i] = in[i]
		if in[i].InputSchema != nil {
			out[i].InputSchema = make(map[string]any, len(in[i].InputSchema))
			maps.Copy(out[i].InputSchema, in[i].InputSchema)
		}
	}
	return out
}

func contextCancellationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}

func (l *ReactLoop) failRun(ctx context.Context, state RunState, store *MessageStore, runErr error) (RunState, error) {
	state.Messages = store.View()
	if transitionErr := transitionRunStatus(&state, RunStatusFailed); transitionErr != nil {
		return state, errors.Join(runErr, transitionErr)
	}
	state.Error = runErr.Error()
	_ = l.events.Publish(ctx, Event{RunID: state.ID, Step: state.Step, Type: EventTypeRunFailed, Description: fmt.Sprintf("run failed: %v", runErr)})
	return state, runErr
}

func (l *ReactLoop) cancelRun(ctx context.Context, state RunState, store *MessageStore, runErr error) (RunState, error) {
	if runErr == nil {
		runErr = context.Canceled
	}
	state.Messages = store.View()
	if transitionErr := transitionRunStatus(&state, RunStatusCancelled); transitionErr != nil {
		return state, errors.Join(runErr, transitionErr)
	}
	state.Error = runErr.Error()
	_ = l.events.Publish(ctx, Event{RunID: state.ID, Step: state.Step, Type: EventTypeRunCancelled, Description: runErr.Error()})
	return state, runErr
}

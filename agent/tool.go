package agent

import (
	"context"
	"maps"
)

// EffectClass governs whether a tool call needs the AgentState lease.
type EffectClass string

const (
	// EffectClassPure tools read nothing mutable and hold no lease.
	EffectClassPure EffectClass = "pure"
	// EffectClassState tools mutate AgentState and acquire the single-writer lease.
	EffectClassState EffectClass = "state"
	// EffectClassExternal tools touch the outside world and hold no lease.
	EffectClassExternal EffectClass = "external"
)

// ToolContext is handed to every tool handler.
type ToolContext struct {
	State             *AgentState
	SessionID         string
	CancellationToken context.Context
}

// Handler executes the business logic behind one tool call. A handler that
// returns an error has its error captured into an error ToolResult by the
// executor; handlers must treat ctx.CancellationToken cooperatively.
type Handler func(ctx context.Context, toolCtx ToolContext, input map[string]any) (any, error)

// ToolDefinition declares a callable capability exposed to the model. It is
// the wire-facing subset of a ToolDescriptor (name/description/schema only);
// the handler and effect class never leave the process.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolDescriptor is the registry's full record for one tool.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
	EffectClass EffectClass
}

// Definition projects a ToolDescriptor down to the wire-facing ToolDefinition.
func (d ToolDescriptor) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
}

// ToolCall is one request extracted from an assistant message's ToolUse
// blocks, shaped for registries and executors that predate (or sit
// underneath) the block model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolCallFromBlock converts a ToolUse block to a ToolCall.
func ToolCallFromBlock(block Block) ToolCall {
	return ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input}
}

// ToolCallsFromMessage extracts the ordered ToolCall list from an assistant
// message.
func ToolCallsFromMessage(msg Message) []ToolCall {
	uses := ToolUseBlocksOf(msg)
	calls := make([]ToolCall, len(uses))
	for i, block := range uses {
		calls[i] = ToolCallFromBlock(block)
	}
	return calls
}

// CloneToolCall returns a deep copy of a tool call.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	if in.Arguments != nil {
		out.Arguments = make(map[string]any, len(in.Arguments))
		maps.Copy(out.Arguments, in.Arguments)
	}
	return out
}

// ToolExecutor resolves and executes a single tool call. Concrete
// implementations (tooling/registry.Registry) gate dispatch on schema
// validation; the ConcurrentToolExecutor (executor.go) is the caller that
// fans a batch of calls out across a bounded pool of ToolExecutor.Execute
// invocations.
type ToolExecutor interface {
	Execute(ctx context.Context, toolCtx ToolContext, call ToolCall) (Block, error)
}

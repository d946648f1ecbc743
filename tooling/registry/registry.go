// Package registry gates tool dispatch on schema validation and resolves
// tool names to their descriptor, implementing agent.ToolExecutor.
package registry

import (
	"context"
	"fmt"
	"sync"

	"deepagent/agent"
)

// ErrNilHandler is returned when a registered descriptor carries no handler.
var ErrNilHandler = fmt.Errorf("tool handler is nil")

// Registry stores tool descriptors by name and executes tool calls against
// them, validating arguments against InputSchema before the handler runs.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]agent.ToolDescriptor
}

// New builds a Registry seeded with the given descriptors.
func New(initial ...agent.ToolDescriptor) *Registry {
	r := &Registry{descriptors: make(map[string]agent.ToolDescriptor, len(initial))}
	for _, d := range initial {
		r.descriptors[d.Name] = d
	}
	return r
}

// Register adds or replaces one tool descriptor.
func (r *Registry) Register(d agent.ToolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Name] = d
}

// Lookup returns the descriptor for name, if registered.
func (r *Registry) Lookup(name string) (agent.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Definitions returns the wire-facing ToolDefinition for every registered
// tool, in an unspecified order; callers that need a stable Tools list for
// ModelRequest should sort by name.
func (r *Registry) Definitions() []agent.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.ToolDefinition, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d.Definition())
	}
	return out
}

// EffectClasses returns a name->EffectClass map, used by the
// ConcurrentToolExecutor to decide which calls need the AgentState lease.
func (r *Registry) EffectClasses() map[string]agent.EffectClass {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]agent.EffectClass, len(r.descriptors))
	for name, d := range r.descriptors {
		out[name] = d.EffectClass
	}
	return out
}

// Execute implements agent.ToolExecutor: it resolves call.Name, validates
// call.Arguments against the descriptor's InputSchema, and invokes the
// handler. Any failure maps to an error and is reported by the caller as an
// error ToolResult block.
func (r *Registry) Execute(ctx context.Context, toolCtx agent.ToolContext, call agent.ToolCall) (agent.Block, error) {
	if call.Name == "" {
		return agent.Block{}, agent.ErrToolNameEmpty
	}

	r.mu.RLock()
	descriptor, ok := r.descriptors[call.Name]
	r.mu.RUnlock()
	if !ok {
		return agent.Block{}, fmt.Errorf("%w: %q", agent.ErrToolUnregistered, call.Name)
	}
	if descriptor.Handler == nil {
		return agent.Block{}, fmt.Errorf("%w: %q", ErrNilHandler, call.Name)
	}

	if err := ValidateArguments(descriptor.InputSchema, call.Arguments); err != nil {
		return agent.Block{}, fmt.Errorf("%w: %s", agent.ErrSchemaValidation, err)
	}

	payload, err := descriptor.Handler(ctx, toolCtx, call.Arguments)
	if err != nil {
		return agent.Block{}, fmt.Errorf("%w: %s", agent.ErrToolHandlerError, err)
	}
	return agent.OKToolResultBlock(call.ID, payload), nil
}

package agent

import "context"

// ModelRequest is the minimal LLM input contract required by the loop.
type ModelRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
}

// Model produces assistant messages that may include tool calls. See
// modelclient.Adapter for a streaming implementation that assembles Blocks
// from provider StreamEvents; Model is the synchronous contract the driver
// actually depends on.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (Message, error)
}

// ModelHandle names a model preset or concrete provider model id, resolved
// by a caller-supplied ModelResolver.
type ModelHandle string

// ModelResolver turns a ModelHandle into a concrete Model, letting
// SubAgentConfig.Model stay a small serializable value instead of an
// embedded live dependency.
type ModelResolver interface {
	Resolve(handle ModelHandle) (Model, error)
}

// RunStore persists and reloads run state for continuation and observability.
// Save uses optimistic concurrency based on RunState.Version and bumps it by one on success.
type RunStore interface {
	Save(ctx context.Context, state RunState) error
	Load(ctx context.Context, runID RunID) (RunState, error)
}

// EventSink receives normalized runtime events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// IDGenerator creates run IDs, session ids, and tool-use ids at runtime
// boundaries (idgen/counter.go, idgen/uuid.go).
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// ConsentHook is invoked by the executor immediately before dispatching a
// tool call, unless bypass_tool_consent is set. Returning an error turns
// that one call into an error ToolResult without affecting its batch
// siblings.
type ConsentHook func(ctx context.Context, call ToolCall) error

// SessionStore persists and restores a session's (MessageStore, AgentState)
// pair by session id. Implemented by session.FileManager.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, snapshot SessionSnapshot) error
	Load(ctx context.Context, sessionID string) (SessionSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

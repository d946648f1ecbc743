package agent

import "context"

// Engine executes run state transitions for one runtime execution slice.
type Engine interface {
	Execute(ctx context.Context, state RunState, input EngineInput) (RunState, error)
}

// EngineInput provides execution constraints, tool contracts, and the
// mutable collaborators a ReactLoop needs to run one turn: the shared
// AgentState lease target and the effect-class map the executor consults
// before dispatching each call in a batch.
type EngineInput struct {
	SystemPrompt string
	MaxSteps     int
	Tools        []ToolDefinition
	State        *AgentState
	SessionID    string
	EffectClass  map[string]EffectClass
}

package agent

import (
	"context"
	"fmt"
	"sort"
)

// SubAgentConfig is a declarative sub-agent definition, typically loaded
// from YAML. Tools, if non-empty, restricts the sub-agent to a subset of
// the parent's registered tools.
type SubAgentConfig struct {
	Name         string
	Description  string
	SystemPrompt string
	Model        ModelHandle
	Tools        []string
	ShareFiles   bool
	MaxSteps     int
}

// SubAgentFactory compiles an immutable name -> SubAgentConfig map once at
// construction and builds a brand-new Agent instance (fresh MessageStore,
// fresh AgentState) for every task() call, discarding all references once
// the delegated run returns its final text. There is no live, cached
// sub-agent instance: two calls to task() with the same subagent_type never
// share transcript or state.
type SubAgentFactory struct {
	configs  map[string]SubAgentConfig
	executor *ConcurrentToolExecutor
	effects  map[string]EffectClass
	tools    map[string]ToolDefinition
	resolver ModelResolver
	events   EventSink
	idGen    IDGenerator
}

// NewSubAgentFactory compiles configs once. Names must be unique.
func NewSubAgentFactory(configs []SubAgentConfig, executor *ConcurrentToolExecutor, effects map[string]EffectClass, tools []ToolDefinition, resolver ModelResolver, events EventSink, idGen IDGenerator) (*SubAgentFactory, error) {
	compiled := make(map[string]SubAgentConfig, len(configs))
	for _, c := range configs {
		if _, exists := compiled[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrSubAgentNameConflict, c.Name)
		}
		compiled[c.Name] = c
	}
	toolIndex := indexToolDefinitions(tools)
	return &SubAgentFactory{
		configs:  compiled,
		executor: executor,
		effects:  effects,
		tools:    toolIndex,
		resolver: resolver,
		events:   events,
		idGen:    idGen,
	}, nil
}

// Run compiles a fresh sub-agent for subagentType, seeds it with exactly one
// user message (description), runs it to completion, and returns the
// concatenated Text blocks of its terminal assistant message.
func (f *SubAgentFactory) Run(ctx context.Context, subagentType, description string, parent *AgentState, sessionID string) (string, error) {
	config, ok := f.configs[subagentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSubAgentNotFound, subagentType)
	}

	model, err := f.resolver.Resolve(config.Model)
	if err != nil {
		return "", fmt.Errorf("resolve subagent model %q: %w", config.Model, err)
	}

	allowedTools := f.filteredTools(config.Tools)

	loop, err := NewReactLoop(model, f.executor, f.events)
	if err != nil {
		return "", err
	}

	state := f.newSubAgentState(parent, config)

	runID, err := f.idGen.NewID(ctx)
	if err != nil {
		return "", err
	}

	runState := RunState{ID: RunID(runID), Messages: []Message{NewUserText(description)}}
	final, err := loop.Execute(ctx, runState, EngineInput{
		SystemPrompt: config.SystemPrompt,
		MaxSteps:     config.MaxSteps,
		Tools:        allowedTools,
		State:        state,
		SessionID:    sessionID,
		EffectClass:  f.effects,
	})
	if err != nil && final.Status != RunStatusCompleted {
		return "", err
	}
	if len(final.Messages) == 0 {
		return final.Output, nil
	}
	last := final.Messages[len(final.Messages)-1]
	if last.Role == RoleAssistant {
		return FinalText(last), nil
	}
	return final.Output, nil
}

func (f *SubAgentFactory) newSubAgentState(parent *AgentState, config SubAgentConfig) *AgentState {
	if config.ShareFiles && parent != nil {
		return NewSharedFilesAgentState(parent)
	}
	return NewAgentState()
}

// delegationToolName is the name TaskTool registers under. A sub-agent that
// inherits the lead's full tool set (empty Tools) never inherits this one:
// it may only recurse into task() if explicitly named in its own Tools list.
const delegationToolName = "task"

func (f *SubAgentFactory) filteredTools(names []string) []ToolDefinition {
	if len(names) == 0 {
		out := make([]ToolDefinition, 0, len(f.tools))
		for _, d := range f.tools {
			if d.Name == delegationToolName {
				continue
			}
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}
	out := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		if d, ok := f.tools[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// TaskTool returns the "task" descriptor the lead agent calls to delegate
// to one of factory's compiled sub-agents. It is EffectClassExternal: the
// delegated run is a nested event loop, not a direct AgentState mutation, so
// it never holds the parent's state lease while it runs.
func TaskTool(factory *SubAgentFactory) ToolDescriptor {
	return ToolDescriptor{
		Name:        delegationToolName,
		Description: "Delegate a self-contained unit of work to a named sub-agent and return its final answer.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description":   map[string]any{"type": "string"},
				"subagent_type": map[string]any{"type": "string"},
			},
			"required": []string{"description", "subagent_type"},
		},
		EffectClass: EffectClassExternal,
		Handler: func(ctx context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			description, _ := input["description"].(string)
			subagentType, _ := input["subagent_type"].(string)
			return factory.Run(ctx, subagentType, description, toolCtx.State, toolCtx.SessionID)
		},
	}
}

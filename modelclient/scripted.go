package modelclient

import (
	"context"
	"fmt"
	"sync"

	"deepagent/agent"
)

// ScriptedResponse is one canned turn for ScriptedModel: either a Message
// to return, or an Err to return in its place.
type ScriptedResponse struct {
	Message agent.Message
	Err     error
}

// ScriptedModel replays a fixed sequence of responses, one per Generate
// call, in order. It exists for callers outside the agent package —
// cmd/deepagentd's demo mode and modelclient's own tests — that need a
// deterministic Model without standing up a provider adapter.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []ScriptedResponse
}

// NewScriptedModel copies responses so later caller mutation cannot reach
// back into the script.
func NewScriptedModel(responses ...ScriptedResponse) *ScriptedModel {
	cloned := make([]ScriptedResponse, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ agent.Model = (*ScriptedModel)(nil)

// Generate returns the next scripted response, failing once the script is
// exhausted.
func (m *ScriptedModel) Generate(_ context.Context, _ agent.ModelRequest) (agent.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index >= len(m.responses) {
		return agent.Message{}, fmt.Errorf("modelclient: script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.Message{}, current.Err
	}
	msg := agent.CloneMessage(current.Message)
	if msg.Role == "" {
		msg.Role = agent.RoleAssistant
	}
	return msg, nil
}

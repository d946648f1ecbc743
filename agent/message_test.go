package agent_test

import (
	"encoding/json"
	"testing"

	"deepagent/agent"
)

func TestBlock_MarshalJSONOmitsFieldsOutsideKind(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(agent.TextBlock("hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, hasID := raw["id"]; hasID {
		t.Fatalf("expected text block wire form to omit id, got %s", data)
	}
	if _, hasStatus := raw["status"]; hasStatus {
		t.Fatalf("expected text block wire form to omit status, got %s", data)
	}
}

func TestBlock_RoundTripsEachKindThroughJSON(t *testing.T) {
	t.Parallel()

	cases := []agent.Block{
		agent.TextBlock("hi"),
		agent.ToolUseBlock("call-1", "search", map[string]any{"query": "weather"}),
		agent.OKToolResultBlock("call-1", "sunny"),
		agent.ErrToolResultBlock("call-1", "timeout"),
	}
	for _, original := range cases {
		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("marshal %+v: %v", original, err)
		}
		var decoded agent.Block
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if decoded.Kind != original.Kind {
			t.Fatalf("kind mismatch: want %q got %q", original.Kind, decoded.Kind)
		}
		if decoded.ID != original.ID || decoded.Text != original.Text || decoded.Status != original.Status {
			t.Fatalf("round trip mismatch: want %+v got %+v", original, decoded)
		}
	}
}

func TestBlock_UnmarshalJSONRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	var decoded agent.Block
	err := json.Unmarshal([]byte(`{"type":"bogus"}`), &decoded)
	if err == nil {
		t.Fatalf("expected an error for unknown block kind")
	}
}

func TestFinalText_ConcatenatesOnlyTextBlocks(t *testing.T) {
	t.Parallel()

	msg := agent.Message{
		Role: agent.RoleAssistant,
		Content: []agent.Block{
			agent.TextBlock("part one. "),
			agent.ToolUseBlock("call-1", "search", nil),
			agent.TextBlock("part two."),
		},
	}
	if got := agent.FinalText(msg); got != "part one. part two." {
		t.Fatalf("unexpected final text: %q", got)
	}
}

func TestCloneMessage_DeepCopiesToolUseInput(t *testing.T) {
	t.Parallel()

	original := agent.Message{
		Role:    agent.RoleAssistant,
		Content: []agent.Block{agent.ToolUseBlock("call-1", "search", map[string]any{"query": "weather"})},
	}
	clone := agent.CloneMessage(original)
	clone.Content[0].Input["query"] = "mutated"

	if original.Content[0].Input["query"] != "weather" {
		t.Fatalf("expected original message input to be unaffected by clone mutation")
	}
}

func TestToolUseIDsOf_ReturnsOrderedIDs(t *testing.T) {
	t.Parallel()

	msg := agent.Message{
		Role: agent.RoleAssistant,
		Content: []agent.Block{
			agent.ToolUseBlock("a", "one", nil),
			agent.TextBlock("thinking"),
			agent.ToolUseBlock("b", "two", nil),
		},
	}
	ids := agent.ToolUseIDsOf(msg)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected tool use ids: %v", ids)
	}
}

package agent

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Role identifies the author of a message in the conversation transcript.
// The wire protocol this runtime drives permits exactly two roles; there is
// no RoleTool because tool observations travel as ToolResult blocks inside
// a user message, never as a message role of their own. The system prompt
// is likewise not a transcript message; it is carried
// out-of-band on RunInput / SubAgentConfig.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind tags the shape of one content Block.
type BlockKind string

const (
	BlockKindText       BlockKind = "text"
	BlockKindToolUse    BlockKind = "tool_use"
	BlockKindToolResult BlockKind = "tool_result"
)

// ToolResultStatus is carried by a ToolResult block.
type ToolResultStatus string

const (
	ToolResultStatusOK    ToolResultStatus = "ok"
	ToolResultStatusError ToolResultStatus = "error"
)

// Block is a tagged union over Text, ToolUse, and ToolResult content. Only
// the fields matching Kind are meaningful; the constructors below populate
// the right subset so callers never have to remember which fields apply.
type Block struct {
	Kind BlockKind `json:"type"`

	// Text is set when Kind == BlockKindText.
	Text string `json:"text,omitempty"`

	// ID is the opaque tool-use id, set for ToolUse and ToolResult blocks.
	// A ToolResult's ID must match the ToolUse it answers.
	ID string `json:"id,omitempty"`

	// Name is the tool name, set for ToolUse blocks.
	Name string `json:"name,omitempty"`

	// Input is the tool call argument payload, set for ToolUse blocks.
	Input map[string]any `json:"input,omitempty"`

	// Status and Payload are set for ToolResult blocks.
	Status  ToolResultStatus `json:"status,omitempty"`
	Payload any              `json:"payload,omitempty"`
}

// TextBlock constructs a text content block.
func TextBlock(text string) Block {
	return Block{Kind: BlockKindText, Text: text}
}

// ToolUseBlock constructs a tool-call content block.
func ToolUseBlock(id, name string, input map[string]any) Block {
	return Block{Kind: BlockKindToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock constructs a tool-observation content block.
func ToolResultBlock(id string, status ToolResultStatus, payload any) Block {
	return Block{Kind: BlockKindToolResult, ID: id, Status: status, Payload: payload}
}

// OKToolResultBlock is a convenience for the common success case.
func OKToolResultBlock(id string, payload any) Block {
	return ToolResultBlock(id, ToolResultStatusOK, payload)
}

// ErrToolResultBlock is a convenience for the common failure case.
func ErrToolResultBlock(id string, payload any) Block {
	return ToolResultBlock(id, ToolResultStatusError, payload)
}

// Message is the shared transport object passed between the driver, the
// model adapter, and the executor.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// CloneBlock returns a deep copy suitable for isolation across goroutines
// and component boundaries.
func CloneBlock(in Block) Block {
	out := in
	if in.Input != nil {
		out.Input = make(map[string]any, len(in.Input))
		maps.Copy(out.Input, in.Input)
	}
	return out
}

// CloneMessage returns a deep copy of a message.
func CloneMessage(in Message) Message {
	out := Message{Role: in.Role}
	if len(in.Content) > 0 {
		out.Content = make([]Block, len(in.Content))
		for i := range in.Content {
			out.Content[i] = CloneBlock(in.Content[i])
		}
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}

// ToolUseBlocksOf extracts the ordered ToolUse blocks from a message's content.
func ToolUseBlocksOf(msg Message) []Block {
	var out []Block
	for _, block := range msg.Content {
		if block.Kind == BlockKindToolUse {
			out = append(out, block)
		}
	}
	return out
}

// ToolUseIDsOf returns the ordered tool-use ids in a message, used by the
// store and executor for gap detection and reassembly.
func ToolUseIDsOf(msg Message) []string {
	uses := ToolUseBlocksOf(msg)
	ids := make([]string, len(uses))
	for i, block := range uses {
		ids[i] = block.ID
	}
	return ids
}

// NewUserText builds a single-block user text message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{TextBlock(text)}}
}

// NewAssistantText builds a single-block assistant text message.
func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []Block{TextBlock(text)}}
}

// NewToolResultMessage builds the single user message that answers a batch
// of tool calls. This message must contain only ToolResult blocks, in the
// same order as the ToolUse blocks they answer.
func NewToolResultMessage(results []Block) Message {
	return Message{Role: RoleUser, Content: results}
}

// FinalText concatenates the Text blocks of a message, used by the driver to
// surface a terminal assistant answer and by the sub-agent factory to
// surface a delegated run's output.
func FinalText(msg Message) string {
	var out string
	for _, block := range msg.Content {
		if block.Kind == BlockKindText {
			out += block.Text
		}
	}
	return out
}

// MarshalJSON enforces the tagged-union wire shape: only the fields that
// belong to Kind are emitted, so a saved transcript never carries
// non-meaningful zero values that could be mistaken for real data.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BlockKindText:
		return json.Marshal(struct {
			Kind BlockKind `json:"type"`
			Text string    `json:"text"`
		}{b.Kind, b.Text})
	case BlockKindToolUse:
		return json.Marshal(struct {
			Kind  BlockKind      `json:"type"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input,omitempty"`
		}{b.Kind, b.ID, b.Name, b.Input})
	case BlockKindToolResult:
		return json.Marshal(struct {
			Kind    BlockKind        `json:"type"`
			ID      string           `json:"id"`
			Status  ToolResultStatus `json:"status"`
			Payload any              `json:"payload,omitempty"`
		}{b.Kind, b.ID, b.Status, b.Payload})
	default:
		return nil, fmt.Errorf("marshal block: unknown kind %q", b.Kind)
	}
}

// UnmarshalJSON restores a Block from its tagged-union wire shape.
func (b *Block) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind BlockKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unmarshal block: %w", err)
	}
	switch probe.Kind {
	case BlockKindText:
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal text block: %w", err)
		}
		*b = TextBlock(v.Text)
		return nil
	case BlockKindToolUse:
		var v struct {
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input,omitempty"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal tool_use block: %w", err)
		}
		*b = ToolUseBlock(v.ID, v.Name, v.Input)
		return nil
	case BlockKindToolResult:
		var v struct {
			ID      string           `json:"id"`
			Status  ToolResultStatus `json:"status"`
			Payload any              `json:"payload,omitempty"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal tool_result block: %w", err)
		}
		*b = ToolResultBlock(v.ID, v.Status, v.Payload)
		return nil
	default:
		return fmt.Errorf("unmarshal block: unknown type %q", probe.Kind)
	}
}

package modelclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"deepagent/agent"
)

// BlockAssembler consumes a provider's StreamEvent sequence and produces a
// single well-formed assistant Message. Assembled Blocks preserve the
// model's emission order: a tool call that interrupts running text closes
// the text block first, and a second text run after a tool call opens a
// fresh text block rather than reopening the first.
type BlockAssembler struct {
	blocks     []agent.Block
	openKind   agent.BlockKind
	textBuf    strings.Builder
	toolID     string
	toolName   string
	inputBuf   strings.Builder
	stopReason string
	open       bool
}

// NewBlockAssembler returns an empty assembler ready to consume StreamEvents.
func NewBlockAssembler() *BlockAssembler {
	return &BlockAssembler{}
}

// Push feeds one StreamEvent into the assembler.
func (a *BlockAssembler) Push(event StreamEvent) error {
	switch event.Kind {
	case StreamEventTextDelta:
		if a.open && a.openKind != agent.BlockKindText {
			a.closeBlock()
		}
		if !a.open {
			a.openKind = agent.BlockKindText
			a.open = true
		}
		a.textBuf.WriteString(event.Text)
		return nil

	case StreamEventToolUseStart:
		if a.open {
			a.closeBlock()
		}
		a.openKind = agent.BlockKindToolUse
		a.open = true
		a.toolID = event.ToolUseID
		a.toolName = event.ToolUseName
		a.inputBuf.Reset()
		return nil

	case StreamEventToolUseInputDelta:
		if !a.open || a.openKind != agent.BlockKindToolUse {
			return fmt.Errorf("modelclient: tool_use_input_delta with no open tool_use block")
		}
		a.inputBuf.WriteString(event.InputDelta)
		return nil

	case StreamEventBlockEnd:
		if !a.open {
			return fmt.Errorf("modelclient: block_end with no open block")
		}
		return a.closeBlock()

	case StreamEventStopReason:
		if a.open {
			if err := a.closeBlock(); err != nil {
				return err
			}
		}
		a.stopReason = event.StopReason
		return nil

	default:
		return fmt.Errorf("modelclient: unknown stream event kind %q", event.Kind)
	}
}

func (a *BlockAssembler) closeBlock() error {
	switch a.openKind {
	case agent.BlockKindText:
		a.blocks = append(a.blocks, agent.TextBlock(a.textBuf.String()))
		a.textBuf.Reset()
	case agent.BlockKindToolUse:
		input := map[string]any{}
		raw := strings.TrimSpace(a.inputBuf.String())
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				return fmt.Errorf("modelclient: decode tool_use %q input: %w", a.toolName, err)
			}
		}
		a.blocks = append(a.blocks, agent.ToolUseBlock(a.toolID, a.toolName, input))
		a.toolID, a.toolName = "", ""
		a.inputBuf.Reset()
	}
	a.open = false
	return nil
}

// Message returns the assembled assistant message. Any block still open
// (a stream that ended without an explicit block_end/stop_reason) is
// closed first.
func (a *BlockAssembler) Message() (agent.Message, error) {
	if a.open {
		if err := a.closeBlock(); err != nil {
			return agent.Message{}, err
		}
	}
	if len(a.blocks) == 0 {
		return agent.Message{}, fmt.Errorf("modelclient: stream produced no blocks")
	}
	return agent.Message{Role: agent.RoleAssistant, Content: a.blocks}, nil
}

// StopReason returns the terminal stop signal observed, if any.
func (a *BlockAssembler) StopReason() string {
	return a.stopReason
}

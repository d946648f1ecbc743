// Package modelclient implements the Model contract over a streaming
// provider API: it turns a sequence of StreamEvents into the well-formed
// Blocks the event loop consumes, and adapts an OpenAI-compatible
// chat-completions endpoint to that contract.
package modelclient

// StreamEventKind tags the shape of one StreamEvent.
type StreamEventKind string

const (
	// StreamEventTextDelta appends text to the currently open text block,
	// opening one first if none is open.
	StreamEventTextDelta StreamEventKind = "text_delta"
	// StreamEventToolUseStart closes any open block and opens a new
	// tool-use block with the given id and name.
	StreamEventToolUseStart StreamEventKind = "tool_use_start"
	// StreamEventToolUseInputDelta appends a raw JSON fragment to the
	// currently open tool-use block's argument buffer.
	StreamEventToolUseInputDelta StreamEventKind = "tool_use_input_delta"
	// StreamEventBlockEnd finalizes the currently open block.
	StreamEventBlockEnd StreamEventKind = "block_end"
	// StreamEventStopReason carries the provider's terminal stop signal
	// and closes the stream; it never overlaps with an open block.
	StreamEventStopReason StreamEventKind = "stop_reason"
)

// StreamEvent is one unit of a provider's streaming response. An adapter's
// job is to translate its own wire format into a sequence of these; the
// BlockAssembler consumes the sequence and the driver consumes only the
// resulting whole Blocks, never interior stream events.
type StreamEvent struct {
	Kind StreamEventKind

	// Text is set on StreamEventTextDelta.
	Text string

	// ToolUseID and ToolUseName are set on StreamEventToolUseStart.
	ToolUseID   string
	ToolUseName string

	// InputDelta is set on StreamEventToolUseInputDelta: a fragment of the
	// tool call's argument JSON, to be concatenated in arrival order.
	InputDelta string

	// StopReason is set on StreamEventStopReason.
	StopReason string
}

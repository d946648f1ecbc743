package agent

// EventType is emitted by the runtime and loop for observability and streaming.
type EventType string

const (
	EventTypeRunStarted        EventType = "run_started"
	EventTypeAssistantMessage  EventType = "assistant_message"
	EventTypeToolCallStarted   EventType = "tool_call_started"
	EventTypeToolResult        EventType = "tool_result"
	EventTypeRunCompleted      EventType = "run_completed"
	EventTypeRunFailed         EventType = "run_failed"
	EventTypeRunCancelled      EventType = "run_cancelled"
	EventTypeRunCheckpoint     EventType = "run_checkpoint"
	EventTypeMaxStepsExceeded  EventType = "max_steps_exceeded"
)

// Event is intentionally compact so adapters can map it to logs, metrics, or
// streams. ToolResult carries a single ToolResult block, one Event per
// completed call, so a stream consumer never has to pick apart a batched
// user message to see individual tool outcomes.
type Event struct {
	RunID       RunID     `json:"run_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Step        int       `json:"step"`
	Type        EventType `json:"type"`
	Message     *Message  `json:"message,omitempty"`
	ToolCallID  string    `json:"tool_call_id,omitempty"`
	ToolName    string    `json:"tool_name,omitempty"`
	ToolResult  *Block    `json:"tool_result,omitempty"`
	Description string    `json:"description,omitempty"`
}

package agent

// RunID is the stable identifier for one run, the engine's unit of work. A
// run starts with one turn; a FollowUpCommand appends another user prompt
// and executes a further turn on the same run.
type RunID string

// RunStatus captures coarse execution state for persistence and orchestration.
type RunStatus string

const (
	RunStatusPending          RunStatus = "pending"
	RunStatusRunning          RunStatus = "running"
	RunStatusCancelled        RunStatus = "cancelled"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusFailed           RunStatus = "failed"
	RunStatusMaxStepsExceeded RunStatus = "max_steps_exceeded"
)

// RunInput configures a fresh run.
type RunInput struct {
	RunID        RunID
	SessionID    string
	SystemPrompt string
	UserPrompt   string
	MaxSteps     int
	Tools        []ToolDefinition
	State        *AgentState
	EffectClass  map[string]EffectClass
}

// RunState is the durable runtime state for one run's engine executions.
// Messages holds the full transcript accumulated so far; Step counts the
// loop iterations started, one per model request, including the one that
// yields the final answer.
type RunState struct {
	ID      RunID     `json:"id"`
	Version int64     `json:"version"`
	Step    int       `json:"step"`
	Status  RunStatus `json:"status"`
	Output  string    `json:"output,omitempty"`
	Error   string    `json:"error,omitempty"`

	Messages []Message `json:"messages,omitempty"`

	// StepBudgetExceeded marks that max_steps was reached. This is a flag
	// on the result, not a hard failure; the transcript up to that point
	// remains valid and resumable.
	StepBudgetExceeded bool `json:"step_budget_exceeded,omitempty"`
}

// CloneRunState returns a deep copy, used by in-memory run stores so a
// caller's mutation of a loaded RunState never reaches back into storage.
func CloneRunState(in RunState) RunState {
	out := in
	out.Messages = CloneMessages(in.Messages)
	return out
}

// RunResult is returned by the runtime API after a turn completes, fails, or
// exhausts its step budget.
type RunResult struct {
	State RunState
}

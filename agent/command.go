package agent

// CommandKind identifies the command mutation route.
type CommandKind string

const (
	CommandKindStart    CommandKind = "start"
	CommandKindContinue CommandKind = "continue"
	CommandKindCancel   CommandKind = "cancel"
	CommandKindSteer    CommandKind = "steer"
	CommandKindFollowUp CommandKind = "follow_up"
)

// Command is the typed runtime mutation contract.
type Command interface {
	Kind() CommandKind
}

// StartCommand starts a new run.
type StartCommand struct {
	Input RunInput
}

func (StartCommand) Kind() CommandKind {
	return CommandKindStart
}

// ContinueCommand resumes an existing run that stopped on StepBudgetExceeded
// over its existing transcript. MaxSteps caps the run's cumulative Step
// count, which is not reset, so only MaxSteps minus the current Step further
// model requests are made.
type ContinueCommand struct {
	RunID        RunID
	CommandID    string
	SystemPrompt string
	MaxSteps     int
	Tools        []ToolDefinition
	State        *AgentState
	SessionID    string
	EffectClass  map[string]EffectClass
}

func (ContinueCommand) Kind() CommandKind {
	return CommandKindContinue
}

// CancelCommand cancels an existing non-terminal run.
type CancelCommand struct {
	RunID RunID
}

func (CancelCommand) Kind() CommandKind {
	return CommandKindCancel
}

// SteerCommand appends an instruction to a non-terminal run without executing the engine.
type SteerCommand struct {
	RunID       RunID
	Instruction string
}

func (SteerCommand) Kind() CommandKind {
	return CommandKindSteer
}

// FollowUpCommand appends a prompt to a non-terminal run and executes the engine.
type FollowUpCommand struct {
	RunID        RunID
	UserPrompt   string
	SystemPrompt string
	MaxSteps     int
	Tools        []ToolDefinition
	State        *AgentState
	SessionID    string
	EffectClass  map[string]EffectClass
}

func (FollowUpCommand) Kind() CommandKind {
	return CommandKindFollowUp
}

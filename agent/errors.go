package agent

import "errors"

var (
	// ErrInvariantViolation signals a transcript invariant was about to be
	// broken by an append. This is a programmer bug, never surfaced to the
	// model.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidRunID is returned when a run id is empty where one is required.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrRunStateInvalid is returned by ValidateRunState for structural defects.
	ErrRunStateInvalid = errors.New("run state invalid")
	// ErrRunNotFound is returned by run stores when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunVersionConflict is returned by optimistic-concurrency run stores.
	ErrRunVersionConflict = errors.New("run version conflict")
	// ErrRunNotContinuable is returned when a command targets a terminal run.
	ErrRunNotContinuable = errors.New("run is not continuable")
	// ErrRunNotCancellable is returned when cancel targets a terminal run.
	ErrRunNotCancellable = errors.New("run is not cancellable")
	// ErrInvalidRunStateTransition is returned by the lifecycle state machine.
	ErrInvalidRunStateTransition = errors.New("invalid run state transition")

	// ErrEventInvalid is returned by ValidateEvent for structural defects.
	ErrEventInvalid = errors.New("event invalid")
	// ErrEventPublish wraps an EventSink.Publish failure.
	ErrEventPublish = errors.New("event publish failed")

	// ErrMissingIDGenerator is returned by NewRunner when no IDGenerator is wired.
	ErrMissingIDGenerator = errors.New("missing id generator")
	// ErrMissingRunStore is returned by NewRunner when no RunStore is wired.
	ErrMissingRunStore = errors.New("missing run store")
	// ErrMissingEngine is returned by NewRunner when no Engine is wired.
	ErrMissingEngine = errors.New("missing engine")
	// ErrContextNil is returned when a nil context is passed to a Dispatch call.
	ErrContextNil = errors.New("context is nil")
	// ErrCommandNil is returned when Dispatch receives a nil command.
	ErrCommandNil = errors.New("command is nil")
	// ErrCommandInvalid is returned when a command payload is malformed (e.g. a pointer).
	ErrCommandInvalid = errors.New("command invalid")
	// ErrCommandUnsupported is returned for an unrecognized command kind.
	ErrCommandUnsupported = errors.New("command unsupported")
	// ErrEngineOutputContractViolation is returned when an Engine violates the
	// append-only, same-id, monotonic-step contract between input and output state.
	ErrEngineOutputContractViolation = errors.New("engine output contract violation")

	// ErrMaxStepsExceeded is returned when the react loop reaches its
	// per-turn step budget.
	ErrMaxStepsExceeded = errors.New("react loop exceeded max steps")
	// ErrTurnTimeout is returned when a turn exceeds T_turn.
	ErrTurnTimeout = errors.New("turn timed out")

	// ErrModelTransient marks a model error as retryable under R_model.
	ErrModelTransient = errors.New("model transient error")
	// ErrModelError is a non-transient model failure; propagates to the caller.
	ErrModelError = errors.New("model error")

	// ErrSchemaValidation is returned when tool arguments fail input_schema validation.
	ErrSchemaValidation = errors.New("tool schema validation failed")
	// ErrToolHandlerError wraps a handler-raised error captured into a ToolResult.
	ErrToolHandlerError = errors.New("tool handler error")
	// ErrToolTimeout is returned when a handler does not report by T_tool.
	ErrToolTimeout = errors.New("tool timed out")
	// ErrToolCancelled is returned when a batch is cancelled before a handler reports.
	ErrToolCancelled = errors.New("tool cancelled")
	// ErrToolUnregistered is returned when a tool name does not resolve in the registry.
	ErrToolUnregistered = errors.New("tool is not registered")
	// ErrToolNameEmpty is returned when a tool call carries no name.
	ErrToolNameEmpty = errors.New("tool name is empty")
	// ErrToolConsentDenied is returned when a consent hook rejects a call.
	ErrToolConsentDenied = errors.New("tool consent denied")

	// ErrTodoInvalidTransition is returned for a disallowed todo status change.
	ErrTodoInvalidTransition = errors.New("invalid todo status transition")
	// ErrTodoConcurrentInProgress is returned when a write would leave more
	// than one todo in_progress.
	ErrTodoConcurrentInProgress = errors.New("only one todo may be in_progress")
	// ErrTodoNotFound is returned when a todo id does not resolve.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrFileNotFound is returned by read_file for an unknown path.
	ErrFileNotFound = errors.New("file not found")

	// ErrSubAgentNotFound is returned when a task() call names an unknown subagent_type.
	ErrSubAgentNotFound = errors.New("subagent type not found")
	// ErrSubAgentNameConflict is returned when two SubAgentSpecs share a name.
	ErrSubAgentNameConflict = errors.New("subagent name already registered")
	// ErrSubAgentRecursiveTask is returned when a subagent without an explicit
	// task tool attempts to delegate further.
	ErrSubAgentRecursiveTask = errors.New("subagent may not delegate without an explicit task tool")

	// ErrSessionNotFound is returned by a SessionStore when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when a session is already checked out elsewhere.
	ErrSessionBusy = errors.New("session busy")
	// ErrSessionLoad wraps a session deserialization failure.
	ErrSessionLoad = errors.New("session load failed")
)

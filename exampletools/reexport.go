package exampletools

import "deepagent/agent"

// PlanningTools re-exports the built-in TODO-list tools so callers outside
// the agent package can wire them without an internal import.
func PlanningTools() []agent.ToolDescriptor {
	return agent.PlanningTools()
}

// FilesystemTools re-exports the built-in virtual-filesystem tools. currentTurn
// reports the turn counter used to track last-write-wins conflicts; see
// agent.FilesystemTools.
func FilesystemTools(currentTurn func() int) []agent.ToolDescriptor {
	return agent.FilesystemTools(currentTurn)
}

package agent

// indexToolDefinitions builds a name-keyed lookup, used by
// NewSubAgentFactory to pick a sub-agent's tools out of the lead's
// definitions by name. Argument-shape validation against InputSchema lives in
// tooling/registry, next to the registry that owns each tool's schema.
func indexToolDefinitions(definitions []ToolDefinition) map[string]ToolDefinition {
	out := make(map[string]ToolDefinition, len(definitions))
	for i := range definitions {
		out[definitions[i].Name] = definitions[i]
	}
	return out
}

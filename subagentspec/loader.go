// Package subagentspec loads declarative sub-agent definitions from YAML
// into agent.SubAgentConfig values, so a deployment can add or change
// sub-agents without a Go code change.
package subagentspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deepagent/agent"
)

// Spec is one sub-agent's YAML document shape.
type Spec struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
	Model        string   `yaml:"model"`
	Tools        []string `yaml:"tools"`
	ShareFiles   bool     `yaml:"share_files"`
	MaxSteps     int      `yaml:"max_steps"`
}

// File is the top-level shape of a sub-agent definitions file: a list
// under the "subagents" key, mirroring the teacher lineage's
// defaults-plus-map agents.yaml convention but flattened to a list since
// sub-agents here have no per-agent backend/skills/memory config to merge.
type File struct {
	Subagents []Spec `yaml:"subagents"`
}

// Compile converts one Spec into an agent.SubAgentConfig.
func (s Spec) Compile() (agent.SubAgentConfig, error) {
	if s.Name == "" {
		return agent.SubAgentConfig{}, fmt.Errorf("subagentspec: subagent entry missing name")
	}
	return agent.SubAgentConfig{
		Name:         s.Name,
		Description:  s.Description,
		SystemPrompt: s.SystemPrompt,
		Model:        agent.ModelHandle(s.Model),
		Tools:        append([]string(nil), s.Tools...),
		ShareFiles:   s.ShareFiles,
		MaxSteps:     s.MaxSteps,
	}, nil
}

// Load reads and parses a subagents YAML file at path, returning each
// entry compiled into an agent.SubAgentConfig in file order.
func Load(path string) ([]agent.SubAgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("subagentspec: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse compiles a subagents YAML document already in memory.
func Parse(data []byte) ([]agent.SubAgentConfig, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("subagentspec: parse yaml: %w", err)
	}
	configs := make([]agent.SubAgentConfig, len(file.Subagents))
	seen := make(map[string]struct{}, len(file.Subagents))
	for i, spec := range file.Subagents {
		compiled, err := spec.Compile()
		if err != nil {
			return nil, fmt.Errorf("subagentspec: entry %d: %w", i, err)
		}
		if _, exists := seen[compiled.Name]; exists {
			return nil, fmt.Errorf("subagentspec: duplicate subagent name %q", compiled.Name)
		}
		seen[compiled.Name] = struct{}{}
		configs[i] = compiled
	}
	return configs, nil
}

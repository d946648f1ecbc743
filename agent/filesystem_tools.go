package agent

import (
	"context"
	"fmt"
)

// FilesystemTools returns the read_file/write_file/list_files descriptors
// operating on AgentState's in-memory virtual filesystem. These are
// deliberately not backed by the OS: a sub-agent never gets a path into the
// host filesystem, only into the scratch space its AgentState owns.
func FilesystemTools(currentTurn func() int) []ToolDescriptor {
	return []ToolDescriptor{
		writeFileTool(currentTurn),
		readFileTool(),
		listFilesTool(),
	}
}

func writeFileTool(currentTurn func() int) ToolDescriptor {
	return ToolDescriptor{
		Name:        "write_file",
		Description: "Write content to a path in the virtual filesystem.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			path, _ := input["path"].(string)
			content, _ := input["content"].(string)
			if path == "" {
				return nil, fmt.Errorf("%w: path must be non-empty", ErrSchemaValidation)
			}
			turn := 0
			if currentTurn != nil {
				turn = currentTurn()
			}
			toolCtx.State.WriteFileLocked(path, []byte(content), turn)
			return map[string]any{"path": path, "bytes_written": len(content)}, nil
		},
	}
}

func readFileTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "read_file",
		Description: "Read a path from the virtual filesystem.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			path, _ := input["path"].(string)
			content, err := toolCtx.State.ReadFileLocked(path)
			if err != nil {
				return nil, err
			}
			return string(content), nil
		},
	}
}

func listFilesTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "list_files",
		Description: "List paths in the virtual filesystem, optionally filtered by prefix.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prefix": map[string]any{"type": "string"},
			},
		},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			prefix, _ := input["prefix"].(string)
			return toolCtx.State.ListFilesLocked(prefix), nil
		},
	}
}

package agent_test

import (
	"context"
	"testing"

	"deepagent/agent"
)

func TestFilesystemTools_WriteThenReadFile(t *testing.T) {
	t.Parallel()

	turn := 0
	state := agent.NewAgentState()
	tools := agent.FilesystemTools(func() int { return turn })
	write := findTool(t, tools, "write_file")
	read := findTool(t, tools, "read_file")

	callLocked(t, state, write, map[string]any{"path": "notes.md", "content": "hello"})

	result := callLocked(t, state, read, map[string]any{"path": "notes.md"})
	if result != "hello" {
		t.Fatalf("unexpected content: %v", result)
	}
}

func TestFilesystemTools_ReadMissingFileErrors(t *testing.T) {
	t.Parallel()

	state := agent.NewAgentState()
	read := findTool(t, agent.FilesystemTools(nil), "read_file")

	state.Lock()
	defer state.Unlock()
	_, err := read.Handler(context.Background(), agent.ToolContext{State: state}, map[string]any{"path": "missing.md"})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFilesystemTools_WriteFileRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	state := agent.NewAgentState()
	write := findTool(t, agent.FilesystemTools(nil), "write_file")

	state.Lock()
	defer state.Unlock()
	_, err := write.Handler(context.Background(), agent.ToolContext{State: state}, map[string]any{"path": "", "content": "x"})
	if err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFilesystemTools_ListFilesFiltersByPrefix(t *testing.T) {
	t.Parallel()

	state := agent.NewAgentState()
	tools := agent.FilesystemTools(nil)
	write := findTool(t, tools, "write_file")
	list := findTool(t, tools, "list_files")

	callLocked(t, state, write, map[string]any{"path": "notes/a.md", "content": "a"})
	callLocked(t, state, write, map[string]any{"path": "notes/b.md", "content": "b"})
	callLocked(t, state, write, map[string]any{"path": "other/c.md", "content": "c"})

	result := callLocked(t, state, list, map[string]any{"prefix": "notes/"})
	paths, ok := result.([]string)
	if !ok {
		t.Fatalf("expected []string, got %T", result)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths under notes/, got %d: %v", len(paths), paths)
	}
}

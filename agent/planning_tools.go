package agent

import (
	"context"
	"fmt"
)

// PlanningTools returns the write_todos/read_todos/update_todo_status
// descriptors. All three are EffectClassState: the executor holds the
// AgentState lease for the duration of each call, so state-class calls in
// one batch run one at a time. The order in which they take the lease is
// not tied to their position in the batch.
func PlanningTools() []ToolDescriptor {
	return []ToolDescriptor{
		writeTodosTool(),
		readTodosTool(),
		updateTodoStatusTool(),
	}
}

func writeTodosTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "write_todos",
		Description: "Replace the current plan with a new ordered list of todo items.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{"type": "array"},
			},
			"required": []string{"items"},
		},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			items, err := parseTodoItems(input["items"])
			if err != nil {
				return nil, err
			}
			if err := toolCtx.State.WriteTodosLocked(items); err != nil {
				return nil, err
			}
			return map[string]any{"count": len(items)}, nil
		},
	}
}

func readTodosTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "read_todos",
		Description: "Read the current plan.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, _ map[string]any) (any, error) {
			return toolCtx.State.ReadTodosLocked(), nil
		},
	}
}

func updateTodoStatusTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "update_todo_status",
		Description: "Transition one todo item to a new status.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":     map[string]any{"type": "string"},
				"status": map[string]any{"type": "string"},
			},
			"required": []string{"id", "status"},
		},
		EffectClass: EffectClassState,
		Handler: func(_ context.Context, toolCtx ToolContext, input map[string]any) (any, error) {
			id, _ := input["id"].(string)
			status, _ := input["status"].(string)
			if err := toolCtx.State.UpdateTodoStatusLocked(id, TodoStatus(status)); err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "status": status}, nil
		},
	}
}

func parseTodoItems(raw any) ([]Todo, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: items must be an array", ErrSchemaValidation)
	}
	out := make([]Todo, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item must be an object", ErrSchemaValidation)
		}
		id, _ := m["id"].(string)
		content, _ := m["content"].(string)
		status, _ := m["status"].(string)
		if status == "" {
			status = string(TodoStatusPending)
		}
		out = append(out, Todo{ID: id, Content: content, Status: TodoStatus(status)})
	}
	return out, nil
}

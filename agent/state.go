package agent

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TodoStatus is the lifecycle state of one planning item.
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
	TodoStatusCancelled  TodoStatus = "cancelled"
)

// Todo is a tracked planning item.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// CloneTodo returns a value copy (Todo has no reference fields, kept for
// symmetry with CloneMessage/CloneBlock call sites).
func CloneTodo(in Todo) Todo { return in }

// FileRecord is one virtual-filesystem entry.
type FileRecord struct {
	Content       []byte `json:"content"`
	LastWriteTurn int    `json:"last_write_turn"`
}

// todoTransitions enforces the permitted status graph:
// pending -> in_progress, in_progress -> {completed, cancelled}, pending -> cancelled.
var todoTransitions = map[TodoStatus]map[TodoStatus]struct{}{
	TodoStatusPending: {
		TodoStatusInProgress: {},
		TodoStatusCancelled:  {},
	},
	TodoStatusInProgress: {
		TodoStatusCompleted: {},
		TodoStatusCancelled: {},
	},
	TodoStatusCompleted:  {},
	TodoStatusCancelled:  {},
}

// AgentState is the three-slice state bag shared across a run's turns (but
// never across sub-agent instances). The mutex is the single-writer lease:
// the executor Locks it for the duration of one state-effect handler
// invocation and Unlocks it
// immediately after, so readers and writers within a batch observe a
// well-defined prefix order and the lease is free again before the next
// batch (or a nested sub-agent) needs it.
type AgentState struct {
	mu *sync.Mutex

	todos   []Todo
	files   map[string]FileRecord
	scratch []byte // JSON object document, manipulated via gjson/sjson paths.
}

// NewAgentState returns an empty state bag with its own lease.
func NewAgentState() *AgentState {
	return &AgentState{
		mu:      &sync.Mutex{},
		files:   map[string]FileRecord{},
		scratch: []byte("{}"),
	}
}

// Lock acquires the state lease. Callers must Unlock in all paths, typically
// via defer immediately after a successful Lock (see executor.go). A
// sub-agent state built with ShareFiles shares this lease with its parent
// (see NewSharedFilesAgentState), so Lock here blocks out the parent too.
func (s *AgentState) Lock() { s.mu.Lock() }

// Unlock releases the state lease.
func (s *AgentState) Unlock() { s.mu.Unlock() }

// --- lease-free snapshots, for Agent.state's public read-only accessor ---

// TodosSnapshot returns a defensive copy of the current todo list.
func (s *AgentState) TodosSnapshot() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// FilesSnapshot returns a defensive copy of the file path set (without content).
func (s *AgentState) FilesSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// ScratchGet reads one path out of the scratch JSON document.
func (s *AgentState) ScratchGet(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratchGetLocked(path)
}

// --- lease-held mutations, called by tool handlers while the executor
// holds the lease on their behalf. These do not lock: a handler that calls
// them outside of a held lease is a conformance bug in the handler, not a
// data race the lock could paper over (the handler also needs the lease
// for its own reads-before-write).

// WriteTodosLocked replaces the todo list wholesale (write_todos).
func (s *AgentState) WriteTodosLocked(items []Todo) error {
	seenInProgress := false
	for _, item := range items {
		if item.Status == TodoStatusInProgress {
			if seenInProgress {
				return fmt.Errorf("%w: item %q", ErrTodoConcurrentInProgress, item.ID)
			}
			seenInProgress = true
		}
	}
	next := make([]Todo, len(items))
	copy(next, items)
	s.todos = next
	return nil
}

// ReadTodosLocked returns the current todo list (read_todos).
func (s *AgentState) ReadTodosLocked() []Todo {
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// UpdateTodoStatusLocked transitions one todo's status (update_todo_status).
func (s *AgentState) UpdateTodoStatusLocked(id string, to TodoStatus) error {
	for i := range s.todos {
		if s.todos[i].ID != id {
			continue
		}
		from := s.todos[i].Status
		if from == to {
			return fmt.Errorf("%w: %s -> %s", ErrTodoInvalidTransition, from, to)
		}
		allowed, ok := todoTransitions[from]
		if !ok {
			return fmt.Errorf("%w: unknown source status %q", ErrTodoInvalidTransition, from)
		}
		if _, ok := allowed[to]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrTodoInvalidTransition, from, to)
		}
		if to == TodoStatusInProgress {
			for j := range s.todos {
				if j != i && s.todos[j].Status == TodoStatusInProgress {
					return fmt.Errorf("%w: %q already in_progress", ErrTodoConcurrentInProgress, s.todos[j].ID)
				}
			}
		}
		s.todos[i].Status = to
		return nil
	}
	return fmt.Errorf("%w: %q", ErrTodoNotFound, id)
}

// WriteFileLocked writes one virtual file. Per original_source's file_reducer
// (merge, not replace) this only ever touches the one path given: other
// paths written by sibling calls in the same batch are left untouched, so a
// batch of disjoint writes merges cleanly under the lease.
func (s *AgentState) WriteFileLocked(path string, content []byte, turn int) {
	buf := make([]byte, len(content))
	copy(buf, content)
	s.files[path] = FileRecord{Content: buf, LastWriteTurn: turn}
}

// ReadFileLocked returns one virtual file's content.
func (s *AgentState) ReadFileLocked(path string) ([]byte, error) {
	record, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFileNotFound, path)
	}
	out := make([]byte, len(record.Content))
	copy(out, record.Content)
	return out, nil
}

// ListFilesLocked returns paths matching an optional prefix, sorted.
func (s *AgentState) ListFilesLocked(prefix string) []string {
	var out []string
	for path := range s.files {
		if prefix == "" || hasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func hasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

// ScratchSetLocked writes one path into the scratch JSON document.
func (s *AgentState) ScratchSetLocked(path string, value any) error {
	next, err := sjson.SetBytes(s.scratch, path, value)
	if err != nil {
		return fmt.Errorf("scratch set %q: %w", path, err)
	}
	s.scratch = next
	return nil
}

func (s *AgentState) scratchGetLocked(path string) (any, bool) {
	result := gjson.GetBytes(s.scratch, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// CloneAgentState returns a deep, lease-free copy with its own independent
// lease — no field or lock is shared with in. Used where a caller needs a
// fully isolated snapshot to mutate freely (see NewSharedFilesAgentState for
// the sub-agent case that instead shares the parent's files and lease).
func CloneAgentState(in *AgentState) *AgentState {
	if in == nil {
		return NewAgentState()
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	out := &AgentState{
		mu:      &sync.Mutex{},
		todos:   make([]Todo, len(in.todos)),
		files:   make(map[string]FileRecord, len(in.files)),
		scratch: make([]byte, len(in.scratch)),
	}
	copy(out.todos, in.todos)
	maps.Copy(out.files, in.files)
	copy(out.scratch, in.scratch)
	return out
}

// NewSharedFilesAgentState returns a state bag for a sub-agent run whose
// Files map and lease are the same as parent's: writes either side makes
// under the shared lease are visible to the other once task() returns (and,
// since the lease is held for the whole handler invocation, even while the
// delegated run is in flight relative to any concurrent state-class tool
// call in the parent's own batch). Todos and scratch are never shared: the
// child starts with its own empty todo list and a fresh scratch document.
func NewSharedFilesAgentState(parent *AgentState) *AgentState {
	if parent == nil {
		return NewAgentState()
	}
	return &AgentState{
		mu:      parent.mu,
		files:   parent.files,
		scratch: []byte("{}"),
	}
}

package agent

// SessionSnapshot is the opaque, schema-versioned envelope persisted by a
// SessionStore for one session id: the full message transcript plus the
// AgentState scratch slots, reloadable as the starting point for
// the next turn. Unknown fields on load are ignored by the decoder in
// session.FileManager, not rejected, so an older snapshot stays loadable
// after this type grows new optional fields.
type SessionSnapshot struct {
	SchemaVersion int `json:"schema_version"`

	SessionID      string    `json:"session_id"`
	Messages       []Message `json:"messages"`
	Todos          []Todo    `json:"todos,omitempty"`
	Files          map[string][]byte `json:"files,omitempty"`
	FileWriteTurns map[string]int    `json:"file_write_turns,omitempty"`
	Scratch        []byte    `json:"scratch,omitempty"`

	CreatedAtUnix     int64 `json:"created_at_unix"`
	LastTouchedAtUnix int64 `json:"last_touched_at_unix"`
}

// CurrentSessionSchemaVersion is stamped onto every snapshot this runtime
// writes. session.FileManager.Load accepts any schema_version <= this one.
const CurrentSessionSchemaVersion = 1

// NewSessionSnapshot packages a transcript and agent state into a
// persistable envelope.
func NewSessionSnapshot(sessionID string, messages []Message, state *AgentState, createdAtUnix, lastTouchedAtUnix int64) SessionSnapshot {
	snapshot := SessionSnapshot{
		SchemaVersion:     CurrentSessionSchemaVersion,
		SessionID:         sessionID,
		Messages:          CloneMessages(messages),
		CreatedAtUnix:     createdAtUnix,
		LastTouchedAtUnix: lastTouchedAtUnix,
	}
	if state == nil {
		return snapshot
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	snapshot.Todos = make([]Todo, len(state.todos))
	copy(snapshot.Todos, state.todos)
	if len(state.files) > 0 {
		snapshot.Files = make(map[string][]byte, len(state.files))
		snapshot.FileWriteTurns = make(map[string]int, len(state.files))
		for path, record := range state.files {
			buf := make([]byte, len(record.Content))
			copy(buf, record.Content)
			snapshot.Files[path] = buf
			snapshot.FileWriteTurns[path] = record.LastWriteTurn
		}
	}
	snapshot.Scratch = append([]byte(nil), state.scratch...)
	return snapshot
}

// RestoreAgentState rebuilds an AgentState from a snapshot.
func RestoreAgentState(snapshot SessionSnapshot) *AgentState {
	state := NewAgentState()
	state.todos = make([]Todo, len(snapshot.Todos))
	copy(state.todos, snapshot.Todos)
	for path, content := range snapshot.Files {
		buf := make([]byte, len(content))
		copy(buf, content)
		state.files[path] = FileRecord{Content: buf, LastWriteTurn: snapshot.FileWriteTurns[path]}
	}
	if len(snapshot.Scratch) > 0 {
		state.scratch = append([]byte(nil), snapshot.Scratch...)
	}
	return state
}

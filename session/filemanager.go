// Package session persists SessionSnapshot envelopes to the local
// filesystem, one JSON file per session id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"deepagent/agent"
)

// FileManager implements agent.SessionStore by writing one JSON file per
// session id under dir. Writes are atomic: the snapshot is written to a
// temp file in the same directory and renamed over the final path, so a
// crash mid-write never leaves a truncated session file.
type FileManager struct {
	dir string
	mu  sync.Mutex
}

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// NewFileManager returns a FileManager rooted at dir, creating it if it
// does not already exist.
func NewFileManager(dir string) (*FileManager, error) {
	if dir == "" {
		return nil, errors.New("session: storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create storage dir: %w", err)
	}
	return &FileManager{dir: dir}, nil
}

// StoragePath returns the path a session id is (or would be) stored at,
// without touching the filesystem. Useful for backup or inspection.
func (m *FileManager) StoragePath(sessionID string) (string, error) {
	if !validSessionID.MatchString(sessionID) {
		return "", fmt.Errorf("session: invalid session id %q", sessionID)
	}
	return filepath.Join(m.dir, "session_"+sessionID+".json"), nil
}

// Save writes snapshot to sessionID's file, overwriting any prior snapshot.
func (m *FileManager) Save(ctx context.Context, sessionID string, snapshot agent.SessionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := m.StoragePath(sessionID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmp, err := os.CreateTemp(m.dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("session: rename temp file: %w", err)
	}
	return nil
}

// Load reads sessionID's snapshot. Unknown fields are ignored, not
// rejected, so an older snapshot written under a lower schema version
// stays loadable after SessionSnapshot grows optional fields.
func (m *FileManager) Load(ctx context.Context, sessionID string) (agent.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return agent.SessionSnapshot{}, err
	}
	path, err := m.StoragePath(sessionID)
	if err != nil {
		return agent.SessionSnapshot{}, err
	}

	m.mu.Lock()
	data, err := os.ReadFile(path)
	m.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return agent.SessionSnapshot{}, fmt.Errorf("%w: %q", agent.ErrSessionNotFound, sessionID)
		}
		return agent.SessionSnapshot{}, fmt.Errorf("session: read %q: %w", sessionID, err)
	}

	var snapshot agent.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return agent.SessionSnapshot{}, errors.Join(agent.ErrSessionLoad, fmt.Errorf("session %q: %w", sessionID, err))
	}
	if snapshot.SchemaVersion > agent.CurrentSessionSchemaVersion {
		return agent.SessionSnapshot{}, fmt.Errorf("%w: session %q has schema_version %d, runtime supports up to %d",
			agent.ErrSessionLoad, sessionID, snapshot.SchemaVersion, agent.CurrentSessionSchemaVersion)
	}
	return snapshot, nil
}

// Delete removes sessionID's file. Deleting an unknown session is not an
// error: the caller's desired end state (no stored session) already holds.
func (m *FileManager) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := m.StoragePath(sessionID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: delete %q: %w", sessionID, err)
	}
	return nil
}

var _ agent.SessionStore = (*FileManager)(nil)

package devtools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const stateFile = "dev_state.json"

type Snapshot struct {
	DeckID    string `json:"deck_id"`
	Session   string `json:"session"`
	Position  int    `json:"position"`
	Previous  int    `json:"previous"`
	Total     int    `json:"total"`
	Running   bool   `json:"running"`
	LastEvent string `json:"last_event"`
	Seq       int    `json:"seq"`
	Error     string `json:"error,omitempty"`
}

type Manager struct {
	mu   sync.Mutex
	dir  string
	snap Snapshot
}

// NewManager persists under dir, or ~/.cache/termdeck when dir is empty.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Update applies fn and bumps the sequence number so pollers can tell a new
// state from a repeated one.
func (m *Manager) Update(fn func(*Snapshot)) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		fn(&m.snap)
	}
	m.snap.Seq++
	return m.snap
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Manager) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := m.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".cache", "termdeck")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(m.Snapshot())
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, stateFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, stateFile))
}

// Path is where Persist writes.
func (m *Manager) Path() string {
	if m.dir == "" {
		return ""
	}
	return filepath.Join(m.dir, stateFile)
}

var _ Recorder = (*Manager)(nil)

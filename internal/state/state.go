// Package state remembers the last project and sprint the CLI worked on so
// follow-up commands can omit them. Only the CLI reads it; the engine is
// always handed explicit values.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const stateFile = "state.json"

// Selection is the persisted last-used selection.
type Selection struct {
	Project   string    `json:"project,omitempty"`
	Sprint    string    `json:"sprint,omitempty"`
	Source    string    `json:"source,omitempty"` // task file or export last read
	UpdatedAt time.Time `json:"updated_at"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// Load reads the selection stored in dir. A missing file yields an empty
// selection bound to dir.
func Load(dir string) (*Selection, error) {
	path := filepath.Join(dir, stateFile)
	s := &Selection{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return s, nil
}

// Exists checks if a state file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, stateFile))
	return err == nil
}

// Save persists the selection to disk.
func (s *Selection) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// Remember records the values that were actually used and saves. Empty
// arguments keep the previous value.
func (s *Selection) Remember(project, sprint, source string, now time.Time) error {
	s.mu.Lock()
	if project != "" {
		s.Project = project
	}
	if sprint != "" {
		s.Sprint = sprint
	}
	if source != "" {
		s.Source = source
	}
	s.UpdatedAt = now
	s.mu.Unlock()
	return s.Save()
}

// Resolve fills empty arguments from the remembered selection. Explicit
// values always win.
func (s *Selection) Resolve(project, sprint string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project == "" {
		project = s.Project
	}
	if sprint == "" {
		sprint = s.Sprint
	}
	return project, sprint
}

// Clean removes the state file from dir.
func Clean(dir string) error {
	err := os.Remove(filepath.Join(dir, stateFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

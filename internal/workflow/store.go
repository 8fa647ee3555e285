package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// Store persists workflows as one JSON document per workflow under a state
// directory. Writes go through a temp file plus rename so a crash mid-write
// never leaves a half-written state file behind.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes a workflow's full state durably.
func (s *Store) Save(w *Workflow) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", w.ID, err)
	}

	path := s.path(w.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit workflow state: %w", err)
	}
	return nil
}

// Load reads a workflow by ID. Unknown IDs return WORKFLOW_NOT_FOUND;
// unreadable state returns PERSISTENCE_CORRUPTED.
func (s *Store) Load(id string) (*Workflow, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.New(fault.WorkflowNotFound, "workflow %s not found", id)
		}
		return nil, fault.Wrap(fault.PersistenceCorrupted, err, "failed to read state for workflow %s", id)
	}

	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fault.Wrap(fault.PersistenceCorrupted, err, "state file for workflow %s is corrupted", id)
	}
	return &w, nil
}

// List loads every stored workflow. Corrupted entries fail the listing so
// operators notice instead of silently losing workflows.
func (s *Store) List() ([]*Workflow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dir: %w", err)
	}

	var workflows []*Workflow
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		w, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

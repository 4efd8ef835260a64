package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a consistent copy of the store contents.
type Snapshot struct {
	ImportID       string     `json:"importId,omitempty"`
	FileName       string     `json:"fileName,omitempty"`
	ImportedAt     time.Time  `json:"importedAt,omitzero"`
	Features       FeatureSet `json:"features"`
	MissingHeaders []string   `json:"missingHeaders"`
	Tasks          []Task     `json:"tasks"`
}

// Store holds the tasks of the latest import and the feature toggles. Every mutation
// swaps the whole task list under the lock so readers never see a half-applied change.
type Store struct {
	mu         sync.RWMutex
	importID   string
	fileName   string
	importedAt time.Time
	missing    []string
	tasks      []Task
	features   FeatureSet
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// SetTasks replaces every stored task. Setup subtasks are aligned with the current
// feature toggles.
func (s *Store) SetTasks(tasks []Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = withFeatures(tasks, s.features)
}

// Replace installs the result of an import and returns the new snapshot.
func (s *Store) Replace(fileName string, result Result) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importID = uuid.NewString()
	s.fileName = fileName
	s.importedAt = s.now()
	s.missing = append([]string(nil), result.MissingHeaders...)
	s.tasks = withFeatures(result.Tasks, s.features)
	return s.snapshotLocked()
}

// ToggleFeature flips f and rewrites every task to match. It reports whether f is now on.
func (s *Store) ToggleFeature(f Feature) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = s.features.Toggle(f)
	s.tasks = withFeatures(s.tasks, s.features)
	return s.features.Has(f)
}

func (s *Store) Features() FeatureSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	out := Snapshot{
		ImportID:       s.importID,
		FileName:       s.fileName,
		ImportedAt:     s.importedAt,
		Features:       s.features,
		MissingHeaders: append([]string{}, s.missing...),
		Tasks:          make([]Task, len(s.tasks)),
	}
	for i, t := range s.tasks {
		out.Tasks[i] = t.clone()
	}
	return out
}

func withFeatures(tasks []Task, set FeatureSet) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.WithFeatures(set)
	}
	return out
}

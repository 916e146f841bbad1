package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists trained models.
type Store interface {
	// Save writes m, replacing any previous model.
	Save(m *Model) error

	// Load returns the saved model, or nil if none exists.
	Load() (*Model, error)
}

// FileStore writes models as JSON to a single path.
type FileStore struct {
	Path string
}

// NewFileStore creates a file store. An empty path disables persistence.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Save writes m atomically through a temp file in the same directory.
func (s *FileStore) Save(m *Model) error {
	if s.Path == "" {
		return nil
	}

	dir := filepath.Dir(s.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("rename model: %w", err)
	}
	return nil
}

// Load reads the model file. A missing file is not an error.
func (s *FileStore) Load() (*Model, error) {
	if s.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", s.Path, err)
	}
	return &m, nil
}

// MemoryStore keeps saved models in memory.
type MemoryStore struct {
	mu    sync.Mutex
	saves []Model
	err   error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailWith makes subsequent saves return err.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Save(m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, *m)
	return nil
}

func (s *MemoryStore) Load() (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil, nil
	}
	m := s.saves[len(s.saves)-1]
	return &m, nil
}

// Saves returns how many models were saved.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

package cart

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-faster/errors"
)

// MemoryStorage keeps lines in memory.
type MemoryStorage struct {
	mu    sync.Mutex
	lines []Line
	saves int
}

// Load implements Storage.
func (m *MemoryStorage) Load() ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines), nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = slices.Clone(lines)
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FileStorage persists lines as a JSON document on local disk.
type FileStorage struct {
	Path string
}

// Load implements Storage. A missing file is an empty cart.
func (f FileStorage) Load() ([]Line, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cart")
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return lines, nil
}

// Save implements Storage. The file is replaced atomically.
func (f FileStorage) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return errors.Wrap(err, "create cart dir")
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write cart")
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return errors.Wrap(err, "replace cart")
	}
	return nil
}

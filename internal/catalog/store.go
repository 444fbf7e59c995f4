package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CustomStore persists user-added entities as a JSON array. Writes go through
// a temp file and rename so a crash never leaves a truncated overlay.
type CustomStore struct {
	path string
}

// NewCustomStore returns a store backed by the given JSON file. The file does
// not need to exist yet.
func NewCustomStore(path string) *CustomStore {
	return &CustomStore{path: path}
}

// Load reads the overlay. A missing file yields an empty list.
func (s *CustomStore) Load() ([]Entity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var entities []Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for i := range entities {
		entities[i].Custom = true
	}
	return entities, nil
}

// Save replaces the overlay atomically.
func (s *CustomStore) Save(entities []Entity) error {
	if entities == nil {
		entities = []Entity{}
	}
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return fmt.Errorf("encode custom entities: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

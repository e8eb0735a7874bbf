package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// FileStore keeps human players in a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory of path if needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create players directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// SavePlayers overwrites the file with records
func (fs *FileStore) SavePlayers(records []PlayerRecord) error {
	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write players file: %w", err)
	}
	return os.Rename(tmp, fs.path)
}

// LoadPlayers reads the file; a missing file yields no records
func (fs *FileStore) LoadPlayers() ([]PlayerRecord, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read players file: %w", err)
	}

	var records []PlayerRecord
	if err := sonic.ConfigStd.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}
	return records, nil
}

package boards

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/wricardo/kalah-game/game/service"
)

// FilePersistence implements Persistence using one file per board
type FilePersistence struct {
	boardsDir string
}

// NewFilePersistence creates a new file-based board persistence layer
func NewFilePersistence(boardsDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(boardsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create boards directory: %w", err)
	}
	return &FilePersistence{boardsDir: boardsDir}, nil
}

// Save writes the board snapshot
func (fp *FilePersistence) Save(game *service.Game) error {
	if game == nil {
		return fmt.Errorf("game cannot be nil")
	}

	jsonData, err := sonic.ConfigStd.MarshalIndent(Snapshot(game), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board data: %w", err)
	}

	tmp := fp.getFilePath(game.ID) + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write board file: %w", err)
	}
	if err := os.Rename(tmp, fp.getFilePath(game.ID)); err != nil {
		return fmt.Errorf("failed to replace board file: %w", err)
	}
	return nil
}

// Load reads a board snapshot and rebuilds it
func (fp *FilePersistence) Load(id string, resolve Resolver) (*service.Game, error) {
	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	var data PersistedBoard
	if err := sonic.ConfigStd.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board data: %w", err)
	}

	game, err := Restore(&data, resolve)
	if err != nil {
		return nil, fmt.Errorf("failed to restore board %s: %w", id, err)
	}
	return game, nil
}

// Delete removes a board file
func (fp *FilePersistence) Delete(id string) error {
	if err := os.Remove(fp.getFilePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("failed to delete board file: %w", err)
	}
	return nil
}

// ListAll returns all persisted board IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.boardsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read boards directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

// Exists checks if a board file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.boardsDir, filepath.Base(id)+".json")
}

package boards

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/service"
)

var ErrBoardNotFound = errors.New("board not found")

var _ service.BoardManager = (*Manager)(nil)

// Manager handles the board lifecycle
type Manager struct {
	games       map[string]*service.Game
	order       []string
	persistence Persistence
	now         func() time.Time
	mu          sync.RWMutex
}

// NewManager creates a new in-memory board manager
func NewManager() *Manager {
	return &Manager{
		games: make(map[string]*service.Game),
		now:   time.Now,
	}
}

// NewManagerWithPersistence creates a board manager that writes every board
// through persistence
func NewManagerWithPersistence(persistence Persistence) *Manager {
	m := NewManager()
	m.persistence = persistence
	return m
}

// Create builds and initializes a new board with a fresh id
func (m *Manager) Create(player1, player2, start engine.Player, presetID string, preset *engine.Preset) (*service.Game, error) {
	board, err := engine.NewBoard(player1, player2, start)
	if err != nil {
		return nil, err
	}
	if preset == nil {
		err = board.InitDefault()
	} else {
		err = board.InitPreset(preset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize board: %w", err)
	}

	now := m.now()
	game := &service.Game{
		ID:        uuid.New().String(),
		Board:     board,
		PresetID:  presetID,
		Preset:    preset,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.games[game.ID] = game
	m.order = append(m.order, game.ID)
	m.mu.Unlock()

	return game, nil
}

// Get retrieves a board by ID
func (m *Manager) Get(id string) (*service.Game, error) {
	m.mu.RLock()
	game, exists := m.games[id]
	m.mu.RUnlock()

	if exists {
		return game, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, id)
}

// List returns all boards in creation order
func (m *Manager) List() []*service.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Game, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.games[id])
	}
	return result
}

// ListForPlayer returns the boards p plays on in creation order
func (m *Manager) ListForPlayer(p engine.Player) []*service.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*service.Game
	for _, id := range m.order {
		if game := m.games[id]; game.Board.HasPlayer(p) {
			result = append(result, game)
		}
	}
	return result
}

// Delete removes a board from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, inMemory := m.games[id]
	m.removeLocked(id)
	m.mu.Unlock()

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted board: %w", err)
		}
		return nil
	}

	if !inMemory {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	return nil
}

// Save persists a board. The caller must hold the game lock.
func (m *Manager) Save(game *service.Game) error {
	if m.persistence == nil {
		return nil
	}
	return m.persistence.Save(game)
}

// SaveAll persists every board, taking each game lock in turn
func (m *Manager) SaveAll() error {
	if m.persistence == nil {
		return nil
	}

	errorCount := 0
	for _, game := range m.List() {
		game.Lock()
		err := m.persistence.Save(game)
		game.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("board", game.ID).Msg("failed to save board")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d boards", errorCount)
	}
	return nil
}

// CleanupFinished drops finished boards from memory once they have not
// changed for maxAge. Persisted snapshots are kept.
func (m *Manager) CleanupFinished(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	removed := 0

	for _, game := range m.List() {
		game.Lock()
		stale := game.Board.ActivePlayer() == nil && game.UpdatedAt.Before(cutoff)
		game.Unlock()
		if !stale {
			continue
		}

		m.mu.Lock()
		m.removeLocked(game.ID)
		m.mu.Unlock()
		removed++
	}
	return removed
}

// Count returns the number of boards in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// LoadPersistedBoards restores every persisted board whose players resolve
func (m *Manager) LoadPersistedBoards(resolve Resolver) error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted boards: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var loaded []*service.Game
	for _, id := range ids {
		if _, exists := m.games[id]; exists {
			continue
		}

		game, err := m.persistence.Load(id, resolve)
		if err != nil {
			log.Warn().Err(err).Str("board", id).Msg("failed to load persisted board")
			continue
		}
		loaded = append(loaded, game)
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].CreatedAt.Before(loaded[j].CreatedAt)
	})
	for _, game := range loaded {
		m.games[game.ID] = game
		m.order = append(m.order, game.ID)
	}

	loadedCount := len(loaded)

	if loadedCount > 0 {
		log.Info().Int("count", loadedCount).Msg("loaded persisted boards")
	}
	return nil
}

func (m *Manager) removeLocked(id string) {
	if _, ok := m.games[id]; !ok {
		return
	}
	delete(m.games, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

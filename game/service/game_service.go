package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
)

var (
	ErrNotActivePlayer     = errors.New("player is not active")
	ErrMissingSecondPlayer = errors.New("second player name is required")
)

// GameService defines all game-related operations
type GameService interface {
	// Security
	Login(ctx context.Context, name, password string) (*LoginResult, error)
	ListPlayers(ctx context.Context, token string) ([]string, error)

	// Boards
	CreateBoard(ctx context.Context, token, secondPlayerName, presetID string) (*BoardInfo, error)
	ListBoards(ctx context.Context, token string) ([]*BoardInfo, error)
	GetBoard(ctx context.Context, token, boardID string) (*BoardInfo, error)
	Turn(ctx context.Context, token, boardID string, pitIndex int) (*TurnResult, error)

	// Presets
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
}

// SecurityManager authenticates players
type SecurityManager interface {
	Login(name, password string) (string, *player.HumanPlayer, error)
	ValidateToken(token string) (*player.HumanPlayer, error)
	FindPlayer(name string) (engine.Player, error)
	PlayerNames() []string
}

// BoardManager stores boards. Save expects the caller to hold the game lock.
type BoardManager interface {
	Create(player1, player2, start engine.Player, presetID string, preset *engine.Preset) (*Game, error)
	Get(id string) (*Game, error)
	ListForPlayer(p engine.Player) []*Game
	Save(game *Game) error
	Delete(id string) error
}

// PresetManager loads opening positions
type PresetManager interface {
	LoadPreset(id string) (*engine.Preset, error)
	ListPresets() ([]*PresetInfo, error)
	GetDefault() (string, *engine.Preset)
}

// Recorder receives game events for archiving
type Recorder interface {
	RecordStart(ctx context.Context, game *Game) error
	RecordMove(ctx context.Context, game *Game, move MoveInfo) error
	RecordEnd(ctx context.Context, game *Game) error
}

// Game is a board together with its bookkeeping
type Game struct {
	ID        string
	Board     *engine.Board
	PresetID  string
	Preset    *engine.Preset
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// Lock serializes turns on the game
func (g *Game) Lock() {
	g.mu.Lock()
}

func (g *Game) Unlock() {
	g.mu.Unlock()
}

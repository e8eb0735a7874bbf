package boards

import (
	"time"

	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/service"
)

// Resolver finds a player by name when a board is restored
type Resolver func(name string) (engine.Player, error)

// Persistence defines the interface for persisting boards
type Persistence interface {
	// Save persists a board; the caller holds the game lock
	Save(game *service.Game) error

	// Load rebuilds a board, resolving its players by name
	Load(id string, resolve Resolver) (*service.Game, error)

	Delete(id string) error

	// ListAll returns all persisted board IDs
	ListAll() ([]string, error)

	Exists(id string) bool
}

// PersistedBoard is the JSON structure of a stored board
type PersistedBoard struct {
	ID           string           `json:"id"`
	PresetID     string           `json:"preset_id"`
	Preset       *engine.Preset   `json:"preset,omitempty"`
	Player1      string           `json:"player1"`
	Player2      string           `json:"player2"`
	ActivePlayer string           `json:"active_player,omitempty"`
	TurnNumber   int              `json:"turn_number"`
	RegularPits  map[string][]int `json:"regular_pits"`
	Stores       map[string]int   `json:"stores"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Snapshot converts a game into its stored form
func Snapshot(g *service.Game) *PersistedBoard {
	st := g.Board.State()
	return &PersistedBoard{
		ID:           g.ID,
		PresetID:     g.PresetID,
		Preset:       g.Preset,
		Player1:      g.Board.Player1().Name(),
		Player2:      g.Board.Player2().Name(),
		ActivePlayer: st.ActivePlayer,
		TurnNumber:   st.TurnNumber,
		RegularPits:  st.RegularPits,
		Stores:       st.Stores,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// Restore rebuilds a game from its stored form
func Restore(data *PersistedBoard, resolve Resolver) (*service.Game, error) {
	p1, err := resolve(data.Player1)
	if err != nil {
		return nil, err
	}
	p2, err := resolve(data.Player2)
	if err != nil {
		return nil, err
	}

	var active engine.Player
	switch data.ActivePlayer {
	case "":
	case p1.Name():
		active = p1
	case p2.Name():
		active = p2
	default:
		return nil, engine.ErrInvalidStartPlayer
	}

	start := active
	if start == nil {
		start = p1
	}
	board, err := engine.NewBoard(p1, p2, start)
	if err != nil {
		return nil, err
	}
	if err := board.Init(
		data.RegularPits[p1.Name()], data.Stores[p1.Name()],
		data.RegularPits[p2.Name()], data.Stores[p2.Name()],
	); err != nil {
		return nil, err
	}
	if err := board.Resume(active, data.TurnNumber); err != nil {
		return nil, err
	}

	return &service.Game{
		ID:        data.ID,
		Board:     board,
		PresetID:  data.PresetID,
		Preset:    data.Preset,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}, nil
}

package service

import (
	"time"

	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	Player      string `json:"player"`
}

// PlayerInfo describes one side of a board
type PlayerInfo struct {
	Name     string `json:"name"`
	Computer bool   `json:"computer"`
}

// BoardInfo provides information about a board
type BoardInfo struct {
	ID        string        `json:"id"`
	Preset    string        `json:"preset"`
	Players   []PlayerInfo  `json:"players"`
	State     *engine.State `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MoveInfo is one applied turn
type MoveInfo struct {
	Player     string         `json:"player"`
	Computer   bool           `json:"computer"`
	PitIndex   int            `json:"pit_index"`
	Sown       int            `json:"sown"`
	TurnNumber int            `json:"turn_number"`
	Landing    engine.Landing `json:"landing"`
	ExtraTurn  bool           `json:"extra_turn"`
	Captured   int            `json:"captured"`
	GameOver   bool           `json:"game_over"`
}

// TurnResult contains the caller's move, any computer replies and the
// resulting board
type TurnResult struct {
	Moves []MoveInfo `json:"moves"`
	Board *BoardInfo `json:"board"`
}

// PresetInfo provides information about an opening preset
type PresetInfo struct {
	Filename     string `json:"filename"`
	PresetID     string `json:"preset_id"` // The identifier to use for board creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	PitsPerSide  int    `json:"pits_per_side"`
	StonesPerPit int    `json:"stones_per_pit"`
	Default      bool   `json:"default"`
}

// NewBoardInfo snapshots a game. The caller must hold the game lock.
func NewBoardInfo(g *Game) *BoardInfo {
	b := g.Board
	return &BoardInfo{
		ID:     g.ID,
		Preset: g.PresetID,
		Players: []PlayerInfo{
			{Name: b.Player1().Name(), Computer: player.IsComputer(b.Player1())},
			{Name: b.Player2().Name(), Computer: player.IsComputer(b.Player2())},
		},
		State:     b.State(),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func newMoveInfo(res engine.TurnResult) MoveInfo {
	return MoveInfo{
		Player:     res.Player.Name(),
		Computer:   player.IsComputer(res.Player),
		PitIndex:   res.PitIndex,
		Sown:       res.Sown,
		TurnNumber: res.TurnNumber,
		Landing:    res.Landing,
		ExtraTurn:  res.ExtraTurn,
		Captured:   res.Captured,
		GameOver:   res.GameOver,
	}
}

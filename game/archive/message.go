package archive

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/wricardo/kalah-game/game/service"
)

// Event kinds
const (
	EventStart = "start"
	EventMove  = "move"
	EventEnd   = "end"
)

// Message is one archived game event
type Message struct {
	Event     string            `json:"event"`
	BoardID   string            `json:"board_id"`
	Timestamp time.Time         `json:"timestamp"`
	Preset    string            `json:"preset,omitempty"`
	Players   []string          `json:"players,omitempty"`
	Move      *service.MoveInfo `json:"move,omitempty"`
	Stores    map[string]int    `json:"stores,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Winner    string            `json:"winner,omitempty"`
}

// ParseMessage decodes a message produced by String
func ParseMessage(str string) (m Message, err error) {
	err = sonic.UnmarshalString(str, &m)
	return
}

func (m Message) String() string {
	str, _ := sonic.MarshalString(m)
	return str
}

// startMessage and the other constructors expect the game lock to be held
func startMessage(g *service.Game, now time.Time) Message {
	return Message{
		Event:     EventStart,
		BoardID:   g.ID,
		Timestamp: now,
		Preset:    g.PresetID,
		Players:   []string{g.Board.Player1().Name(), g.Board.Player2().Name()},
	}
}

func moveMessage(g *service.Game, move service.MoveInfo, now time.Time) Message {
	return Message{
		Event:     EventMove,
		BoardID:   g.ID,
		Timestamp: now,
		Move:      &move,
	}
}

func endMessage(g *service.Game, now time.Time) Message {
	b := g.Board
	m := Message{
		Event:     EventEnd,
		BoardID:   g.ID,
		Timestamp: now,
		Stores: map[string]int{
			b.Player1().Name(): b.StoreStones(b.Player1()),
			b.Player2().Name(): b.StoreStones(b.Player2()),
		},
		Outcome: b.Outcome().String(),
	}
	if w := b.Winner(); w != nil {
		m.Winner = w.Name()
	}
	return m
}

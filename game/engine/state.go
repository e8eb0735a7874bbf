package engine

import (
	"fmt"
	"strings"
)

// State is a serializable snapshot of a board, keyed by player name
type State struct {
	Players      []string         `json:"players"`
	ActivePlayer string           `json:"active_player,omitempty"`
	TurnNumber   int              `json:"turn_number"`
	GameOver     bool             `json:"game_over"`
	Winner       string           `json:"winner,omitempty"`
	Draw         bool             `json:"draw"`
	RegularPits  map[string][]int `json:"regular_pits"`
	Stores       map[string]int   `json:"stores"`
}

// State captures the current board as a State
func (b *Board) State() *State {
	players := []Player{b.player1, b.player2}
	st := &State{
		Players:     make([]string, 0, len(players)),
		TurnNumber:  b.turnNumber,
		GameOver:    b.IsGameOver(),
		RegularPits: make(map[string][]int, len(players)),
		Stores:      make(map[string]int, len(players)),
	}
	for _, p := range players {
		st.Players = append(st.Players, p.Name())
		st.RegularPits[p.Name()] = b.RegularPits(p)
		st.Stores[p.Name()] = b.StoreStones(p)
	}
	if b.active != nil {
		st.ActivePlayer = b.active.Name()
	}
	switch b.Outcome() {
	case Won:
		st.Winner = b.Winner().Name()
	case Draw:
		st.Draw = true
	}
	return st
}

// String draws the board with player2's pits on top, right to left, so the
// sowing direction reads counter-clockwise.
func (b *Board) String() string {
	if b.sides == nil {
		return fmt.Sprintf("%s vs %s (not initialized)", b.player1.Name(), b.player2.Name())
	}
	return b.State().String()
}

// String renders the snapshot the same way Board.String does
func (s *State) String() string {
	if len(s.Players) != 2 {
		return "(empty board)"
	}
	p1, p2 := s.Players[0], s.Players[1]
	top := s.RegularPits[p2]
	bottom := s.RegularPits[p1]
	cells := func(counts []int, reverse bool) string {
		parts := make([]string, len(counts))
		for i, n := range counts {
			idx := i
			if reverse {
				idx = len(counts) - 1 - i
			}
			parts[idx] = fmt.Sprintf("%2d", n)
		}
		return "[" + strings.Join(parts, "][") + "]"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "      %s  %s\n", cells(top, true), p2)
	fmt.Fprintf(&sb, "[%2d]  %s  [%2d]\n", s.Stores[p2], strings.Repeat(" ", len(top)*4), s.Stores[p1])
	fmt.Fprintf(&sb, "      %s  %s\n", cells(bottom, false), p1)
	switch {
	case s.ActivePlayer != "":
		fmt.Fprintf(&sb, "turn %d, %s to move", s.TurnNumber, s.ActivePlayer)
	case s.Draw:
		fmt.Fprintf(&sb, "turn %d, draw", s.TurnNumber)
	case s.Winner != "":
		fmt.Fprintf(&sb, "turn %d, %s wins", s.TurnNumber, s.Winner)
	}
	return sb.String()
}

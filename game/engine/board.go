package engine

import "fmt"

// Default opening position
const (
	DefaultPitsPerSide  = 6
	DefaultStonesPerPit = 6
)

// Outcome describes where a game stands
type Outcome int

const (
	InProgress Outcome = iota
	Won
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Landing classifies the pit that received the last sown stone
type Landing string

const (
	LandedOwnStore    Landing = "own_store"
	LandedOwnPit      Landing = "own_pit"
	LandedOpponentPit Landing = "opponent_pit"
)

// TurnResult describes what a single Turn call did
type TurnResult struct {
	Player     Player  `json:"-"`
	PitIndex   int     `json:"pit_index"`
	Sown       int     `json:"sown"`
	TurnNumber int     `json:"turn_number"`
	Landing    Landing `json:"landing"`
	ExtraTurn  bool    `json:"extra_turn"`
	Captured   int     `json:"captured"`
	GameOver   bool    `json:"game_over"`
}

// View is the read-only part of a board that move choosers need
type View interface {
	ActivePlayer() Player
	RegularPits(p Player) []int
	StoreStones(p Player) int
}

// Board is a Kalah board for two players
type Board struct {
	player1    Player
	player2    Player
	active     Player
	turnNumber int
	sides      map[Player]*side
}

var _ View = (*Board)(nil)

// NewBoard creates an uninitialized board. start must be player1 or player2.
func NewBoard(player1, player2, start Player) (*Board, error) {
	if player1 == nil || player2 == nil || start == nil {
		return nil, ErrNilPlayer
	}
	if player1 == player2 {
		return nil, ErrSamePlayers
	}
	if start != player1 && start != player2 {
		return nil, ErrInvalidStartPlayer
	}
	return &Board{
		player1: player1,
		player2: player2,
		active:  start,
	}, nil
}

// Init builds the pit graph from per-player regular pit sizes and store
// counts. It can be called only once per board.
func (b *Board) Init(sizes1 []int, store1 int, sizes2 []int, store2 int) error {
	if b.sides != nil {
		return ErrAlreadyInitialized
	}
	if len(sizes1) != len(sizes2) {
		return fmt.Errorf("%w: %d != %d", ErrPitCountMismatch, len(sizes1), len(sizes2))
	}
	if err := validateSizes(sizes1, store1); err != nil {
		return err
	}
	if err := validateSizes(sizes2, store2); err != nil {
		return err
	}

	s1 := buildSide(b.player1, sizes1, store1)
	s2 := buildSide(b.player2, sizes2, store2)
	closeRing(s1, s2)
	closeRing(s2, s1)
	linkOpposites(s1, s2)

	b.sides = map[Player]*side{
		b.player1: s1,
		b.player2: s2,
	}
	return nil
}

// InitDefault sets up the standard opening: six pits of six stones per side
// and empty stores.
func (b *Board) InitDefault() error {
	sizes := func() []int {
		s := make([]int, DefaultPitsPerSide)
		for i := range s {
			s[i] = DefaultStonesPerPit
		}
		return s
	}
	return b.Init(sizes(), 0, sizes(), 0)
}

// Resume restores the turn state of a board rebuilt from a snapshot. active
// may be nil only when one side is already empty.
func (b *Board) Resume(active Player, turnNumber int) error {
	if b.sides == nil {
		return ErrNotInitialized
	}
	if turnNumber < 0 {
		return fmt.Errorf("turn number cannot be negative: %d", turnNumber)
	}
	switch {
	case active == nil:
		if !b.IsGameOver() {
			return fmt.Errorf("no active player on a game in progress")
		}
	case active != b.player1 && active != b.player2:
		return ErrInvalidStartPlayer
	}
	b.active = active
	b.turnNumber = turnNumber
	if b.IsGameOver() {
		b.active = nil
	}
	return nil
}

// Turn sows the active player's regular pit at pitIndex and applies the
// extra turn, capture and end-of-game rules. A rejected move leaves the board
// untouched.
func (b *Board) Turn(pitIndex int) (TurnResult, error) {
	if b.sides == nil {
		return TurnResult{}, ErrNotInitialized
	}
	if b.active == nil || b.IsGameOver() {
		return TurnResult{}, ErrGameOver
	}

	player := b.active
	own := b.sides[player]
	if pitIndex < 0 || pitIndex >= len(own.pits) {
		return TurnResult{}, fmt.Errorf("%w: %d not in [0, %d)", ErrPitOutOfRange, pitIndex, len(own.pits))
	}
	source := own.pits[pitIndex]
	if source.Stones() == 0 {
		return TurnResult{}, fmt.Errorf("%w: pit %d", ErrIllegalMove, pitIndex)
	}

	b.turnNumber++
	result := TurnResult{
		Player:     player,
		PitIndex:   pitIndex,
		Sown:       source.Stones(),
		TurnNumber: b.turnNumber,
	}

	last := b.sow(player, source)
	switch {
	case last == Pit(own.store):
		result.Landing = LandedOwnStore
	case last.Owner() == player:
		result.Landing = LandedOwnPit
	default:
		result.Landing = LandedOpponentPit
	}

	if b.finishIfOver() {
		result.GameOver = true
		return result, nil
	}

	if result.Landing == LandedOwnStore {
		result.ExtraTurn = true
		return result, nil
	}

	if landed, ok := last.(*RegularPit); ok && result.Landing == LandedOwnPit && landed.Stones() == 1 {
		result.Captured = landed.PickupStones() + landed.OppositePit().PickupStones()
		own.store.AddStones(result.Captured)
		if b.finishIfOver() {
			result.GameOver = true
			return result, nil
		}
	}

	b.active = b.Opponent(player)
	return result, nil
}

// sow empties source and drops its stones one by one along player's lap,
// returning the pit that received the last stone.
func (b *Board) sow(player Player, source *RegularPit) Pit {
	n := source.PickupStones()
	var cur Pit = source
	for i := 0; i < n; i++ {
		cur = cur.NextPit(player)
		cur.AddOneStone()
	}
	return cur
}

// finishIfOver sweeps the remaining stones of the non-empty side into its
// owner's store once either side is empty, and ends the game.
func (b *Board) finishIfOver() bool {
	if !b.IsGameOver() {
		return false
	}
	for _, s := range b.sides {
		for _, p := range s.pits {
			s.store.AddStones(p.PickupStones())
		}
	}
	b.active = nil
	return true
}

// ActivePlayer returns the player to move, or nil once the game is over
func (b *Board) ActivePlayer() Player {
	return b.active
}

// TurnNumber returns how many turns have been played
func (b *Board) TurnNumber() int {
	return b.turnNumber
}

// Player1 returns the first player
func (b *Board) Player1() Player {
	return b.player1
}

// Player2 returns the second player
func (b *Board) Player2() Player {
	return b.player2
}

// Opponent returns the other player of the board, or nil for a stranger
func (b *Board) Opponent(p Player) Player {
	switch p {
	case b.player1:
		return b.player2
	case b.player2:
		return b.player1
	}
	return nil
}

// HasPlayer reports whether p plays on this board
func (b *Board) HasPlayer(p Player) bool {
	return p != nil && (p == b.player1 || p == b.player2)
}

// PitsPerSide returns the number of regular pits each player owns
func (b *Board) PitsPerSide() int {
	if b.sides == nil {
		return 0
	}
	return len(b.sides[b.player1].pits)
}

// RegularPits returns a snapshot of p's regular pit counts in sowing order
func (b *Board) RegularPits(p Player) []int {
	s, ok := b.sides[p]
	if !ok {
		return nil
	}
	out := make([]int, len(s.pits))
	for i, pit := range s.pits {
		out[i] = pit.Stones()
	}
	return out
}

// StoreStones returns the number of stones in p's store
func (b *Board) StoreStones(p Player) int {
	s, ok := b.sides[p]
	if !ok {
		return 0
	}
	return s.store.Stones()
}

// TotalStones counts every stone on the board
func (b *Board) TotalStones() int {
	total := 0
	for _, s := range b.sides {
		total += s.store.Stones()
		for _, p := range s.pits {
			total += p.Stones()
		}
	}
	return total
}

// IsGameOver reports whether either side has no stones left in its regular
// pits. An uninitialized board has no pits at all and counts as over.
func (b *Board) IsGameOver() bool {
	if b.sides == nil {
		return true
	}
	for _, s := range b.sides {
		empty := true
		for _, p := range s.pits {
			if p.Stones() > 0 {
				empty = false
				break
			}
		}
		if empty {
			return true
		}
	}
	return false
}

// Outcome returns InProgress, Won or Draw
func (b *Board) Outcome() Outcome {
	if !b.IsGameOver() {
		return InProgress
	}
	if b.StoreStones(b.player1) == b.StoreStones(b.player2) {
		return Draw
	}
	return Won
}

// Winner returns the player with the larger store, or nil when the game is
// still in progress or ended in a draw. Use Outcome to tell those apart.
func (b *Board) Winner() Player {
	if b.Outcome() != Won {
		return nil
	}
	if b.StoreStones(b.player1) > b.StoreStones(b.player2) {
		return b.player1
	}
	return b.player2
}

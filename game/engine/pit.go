package engine

// Player is a game participant. The engine compares players by identity and
// only ever asks them for a display name.
type Player interface {
	Name() string
}

// Pit holds stones and knows, for each player, which pit comes next when
// that player is sowing.
type Pit interface {
	Stones() int
	AddOneStone()
	NextPit(p Player) Pit
	Owner() Player

	setNextPit(p Player, next Pit)
}

type pitBase struct {
	owner  Player
	stones int
	next   map[Player]Pit
}

func newPitBase(owner Player, stones int) pitBase {
	return pitBase{
		owner:  owner,
		stones: stones,
		next:   make(map[Player]Pit, 2),
	}
}

// Stones returns the current stone count
func (p *pitBase) Stones() int {
	return p.stones
}

// AddOneStone drops a single stone into the pit
func (p *pitBase) AddOneStone() {
	p.stones++
}

// NextPit returns the successor of this pit on the given player's lap,
// or nil if the pit is not part of that lap.
func (p *pitBase) NextPit(player Player) Pit {
	return p.next[player]
}

// Owner returns the player on whose side the pit sits
func (p *pitBase) Owner() Player {
	return p.owner
}

func (p *pitBase) setNextPit(player Player, next Pit) {
	p.next[player] = next
}

// RegularPit is a pit that can be sown from and captured.
type RegularPit struct {
	pitBase
	opposite *RegularPit
}

// NewRegularPit creates a regular pit on owner's side
func NewRegularPit(owner Player, stones int) *RegularPit {
	return &RegularPit{pitBase: newPitBase(owner, stones)}
}

// PickupStones empties the pit and returns how many stones it held
func (p *RegularPit) PickupStones() int {
	n := p.stones
	p.stones = 0
	return n
}

// OppositePit returns the mirrored pit on the other side of the board
func (p *RegularPit) OppositePit() *RegularPit {
	return p.opposite
}

// SetOppositePit links both pits to each other.
func (p *RegularPit) SetOppositePit(other *RegularPit) {
	p.opposite = other
	if other != nil {
		other.opposite = p
	}
}

// StorePit accumulates a player's stones. It is never sown from or captured.
type StorePit struct {
	pitBase
}

// NewStorePit creates the store of owner
func NewStorePit(owner Player, stones int) *StorePit {
	return &StorePit{pitBase: newPitBase(owner, stones)}
}

// AddStones adds n stones at once (captures and the final sweep)
func (p *StorePit) AddStones(n int) {
	p.stones += n
}

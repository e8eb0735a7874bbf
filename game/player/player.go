package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wricardo/kalah-game/game/engine"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/rand"
)

var ErrNoLegalMove = errors.New("no legal move available")

// ComputerPlayer chooses its own moves from a read-only view of the board
type ComputerPlayer interface {
	engine.Player
	NextMoveIndex(view engine.View) (int, error)
}

// IsComputer reports whether p picks its own moves
func IsComputer(p engine.Player) bool {
	_, ok := p.(ComputerPlayer)
	return ok
}

// HumanPlayer is a player driven by a network client
type HumanPlayer struct {
	name         string
	passwordHash []byte
}

// NewHumanPlayer hashes password with the given bcrypt cost
func NewHumanPlayer(name, password string, cost int) (*HumanPlayer, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", name, err)
	}
	return &HumanPlayer{name: name, passwordHash: hash}, nil
}

// RestoreHumanPlayer rebuilds a player from a stored hash
func RestoreHumanPlayer(name string, passwordHash []byte) *HumanPlayer {
	return &HumanPlayer{name: name, passwordHash: passwordHash}
}

func (p *HumanPlayer) Name() string {
	return p.name
}

// CheckPassword compares password against the stored hash
func (p *HumanPlayer) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(p.passwordHash, []byte(password)) == nil
}

func (p *HumanPlayer) PasswordHash() []byte {
	return p.passwordHash
}

// RandomPlayer picks a uniformly random non-empty pit. It is safe to share
// across boards.
type RandomPlayer struct {
	name string
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewRandomPlayer creates a random player seeded with seed
func NewRandomPlayer(name string, seed uint64) *RandomPlayer {
	return &RandomPlayer{
		name: name,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomPlayer) Name() string {
	return p.name
}

// NextMoveIndex returns the index of a non-empty regular pit of the active player
func (p *RandomPlayer) NextMoveIndex(view engine.View) (int, error) {
	active := view.ActivePlayer()
	if active == nil {
		return 0, ErrNoLegalMove
	}

	var legal []int
	for i, stones := range view.RegularPits(active) {
		if stones > 0 {
			legal = append(legal, i)
		}
	}
	if len(legal) == 0 {
		return 0, ErrNoLegalMove
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return legal[p.rng.Intn(len(legal))], nil
}

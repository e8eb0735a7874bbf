package security

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
	"golang.org/x/crypto/bcrypt"
)

// ComputerName is the name of the built-in random computer player
const ComputerName = "Computer"

var (
	ErrMissingToken   = errors.New("access token is required")
	ErrInvalidToken   = errors.New("access token is incorrect")
	ErrWrongPassword  = errors.New("password is not correct")
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already exists")
	ErrComputerPlayer = errors.New("name is used by a computer player")
	ErrEmptyName      = errors.New("player name is required")
)

// PlayerRecord is the stored form of a human player
type PlayerRecord struct {
	Name         string `json:"name"`
	PasswordHash []byte `json:"password_hash"`
}

// PlayerStore persists human players
type PlayerStore interface {
	SavePlayers(records []PlayerRecord) error
	LoadPlayers() ([]PlayerRecord, error)
}

// Registry maps names to players and tokens to human players
type Registry struct {
	players  map[string]engine.Player
	tokens   map[string]*player.HumanPlayer
	cost     int
	store    PlayerStore
	newToken func() string
	mu       sync.RWMutex
}

// Option configures a Registry
type Option func(*Registry)

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(r *Registry) {
		r.cost = cost
	}
}

// WithComputer registers an additional computer player
func WithComputer(c player.ComputerPlayer) Option {
	return func(r *Registry) {
		r.players[c.Name()] = c
	}
}

// WithPlayerStore enables persistence of human players
func WithPlayerStore(store PlayerStore) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithTokenGenerator replaces uuid tokens, mostly for tests
func WithTokenGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newToken = gen
	}
}

// NewRegistry creates a registry holding the built-in computer player.
// Options are applied after it is registered, so WithComputer can replace it.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		players:  make(map[string]engine.Player),
		tokens:   make(map[string]*player.HumanPlayer),
		cost:     bcrypt.DefaultCost,
		newToken: func() string { return uuid.New().String() },
	}
	r.players[ComputerName] = player.NewRandomPlayer(ComputerName, uint64(time.Now().UnixNano()))

	for _, option := range options {
		option(r)
	}
	return r
}

// Login returns a new access token for name, registering the player on
// first use.
func (r *Registry) Login(name, password string) (string, *player.HumanPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.players[name]
	if !ok {
		human, err := r.registerLocked(name, password)
		if err != nil {
			return "", nil, err
		}
		return r.issueLocked(human), human, nil
	}

	human, ok := existing.(*player.HumanPlayer)
	if !ok {
		return "", nil, fmt.Errorf("%w: '%s'", ErrComputerPlayer, name)
	}
	if !human.CheckPassword(password) {
		return "", nil, ErrWrongPassword
	}
	return r.issueLocked(human), human, nil
}

// Register adds a new human player without issuing a token
func (r *Registry) Register(name, password string) (*player.HumanPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(name, password)
}

func (r *Registry) registerLocked(name, password string) (*player.HumanPlayer, error) {
	if _, exists := r.players[name]; exists {
		return nil, fmt.Errorf("%w: '%s'", ErrPlayerExists, name)
	}

	human, err := player.NewHumanPlayer(name, password, r.cost)
	if err != nil {
		return nil, err
	}
	r.players[name] = human
	log.Info().Str("player", name).Msg("registered player")

	if r.store != nil {
		if err := r.store.SavePlayers(r.recordsLocked()); err != nil {
			log.Warn().Err(err).Str("player", name).Msg("failed to persist players")
		}
	}
	return human, nil
}

func (r *Registry) issueLocked(human *player.HumanPlayer) string {
	token := r.newToken()
	r.tokens[token] = human
	return token
}

// ValidateToken returns the player that owns token
func (r *Registry) ValidateToken(token string) (*player.HumanPlayer, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	human, ok := r.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return human, nil
}

// FindPlayer looks a player up by name
func (r *Registry) FindPlayer(name string) (engine.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrPlayerNotFound, name)
	}
	return p, nil
}

// PlayerNames returns every registered name in ascending order
func (r *Registry) PlayerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.players))
	for name := range r.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered players, computers included
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// LoadPersistedPlayers restores human players from the configured store.
// Names already taken are skipped.
func (r *Registry) LoadPersistedPlayers() error {
	if r.store == nil {
		return nil
	}

	records, err := r.store.LoadPlayers()
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, rec := range records {
		if _, exists := r.players[rec.Name]; exists || rec.Name == "" {
			continue
		}
		r.players[rec.Name] = player.RestoreHumanPlayer(rec.Name, rec.PasswordHash)
		loaded++
	}
	if loaded > 0 {
		log.Info().Int("count", loaded).Msg("loaded persisted players")
	}
	return nil
}

func (r *Registry) recordsLocked() []PlayerRecord {
	records := make([]PlayerRecord, 0, len(r.players))
	for _, p := range r.players {
		if human, ok := p.(*player.HumanPlayer); ok {
			records = append(records, PlayerRecord{Name: human.Name(), PasswordHash: human.PasswordHash()})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

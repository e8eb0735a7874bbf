package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
	"golang.org/x/exp/rand"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	security SecurityManager
	boards   BoardManager
	presets  PresetManager
	recorder Recorder
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithRecorder archives game events through r
func WithRecorder(r Recorder) Option {
	return func(s *gameServiceImpl) {
		s.recorder = r
	}
}

// WithSeed makes the choice of the starting player reproducible
func WithSeed(seed uint64) Option {
	return func(s *gameServiceImpl) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		s.now = now
	}
}

// NewGameService creates a new game service instance
func NewGameService(security SecurityManager, boards BoardManager, presets PresetManager, options ...Option) GameService {
	s := &gameServiceImpl{
		security: security,
		boards:   boards,
		presets:  presets,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Login issues an access token, registering unknown players
func (s *gameServiceImpl) Login(ctx context.Context, name, password string) (*LoginResult, error) {
	token, p, err := s.security.Login(name, password)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, Player: p.Name()}, nil
}

// ListPlayers returns all registered player names
func (s *gameServiceImpl) ListPlayers(ctx context.Context, token string) ([]string, error) {
	if _, err := s.security.ValidateToken(token); err != nil {
		return nil, err
	}
	return s.security.PlayerNames(), nil
}

// CreateBoard opens a board between the caller and secondPlayerName. The
// starting player is chosen at random; if it is a computer it moves right away.
func (s *gameServiceImpl) CreateBoard(ctx context.Context, token, secondPlayerName, presetID string) (*BoardInfo, error) {
	caller, err := s.security.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if secondPlayerName == "" {
		return nil, ErrMissingSecondPlayer
	}
	opponent, err := s.security.FindPlayer(secondPlayerName)
	if err != nil {
		return nil, err
	}

	var preset *engine.Preset
	if presetID == "" {
		presetID, preset = s.presets.GetDefault()
	} else {
		preset, err = s.presets.LoadPreset(presetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load preset %s: %w", presetID, err)
		}
	}

	var start engine.Player = caller
	if s.coinFlip() {
		start = opponent
	}

	game, err := s.boards.Create(caller, opponent, start, presetID, preset)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	game.Lock()
	defer game.Unlock()

	log.Info().
		Str("board", game.ID).
		Str("player1", caller.Name()).
		Str("player2", opponent.Name()).
		Str("start", start.Name()).
		Str("preset", presetID).
		Msg("board created")

	if s.recorder != nil {
		if err := s.recorder.RecordStart(ctx, game); err != nil {
			log.Warn().Err(err).Str("board", game.ID).Msg("failed to record game start")
		}
	}

	if _, err := s.playComputerTurns(ctx, game); err != nil {
		// the caller gets no id for this board
		if derr := s.boards.Delete(game.ID); derr != nil {
			log.Warn().Err(derr).Str("board", game.ID).Msg("failed to remove board after opening failure")
		}
		return nil, err
	}
	s.touch(game)

	return NewBoardInfo(game), nil
}

// ListBoards returns the boards the caller plays on, oldest first
func (s *gameServiceImpl) ListBoards(ctx context.Context, token string) ([]*BoardInfo, error) {
	caller, err := s.security.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	games := s.boards.ListForPlayer(caller)
	result := make([]*BoardInfo, 0, len(games))
	for _, g := range games {
		g.Lock()
		result = append(result, NewBoardInfo(g))
		g.Unlock()
	}
	return result, nil
}

// GetBoard returns a single board. Any authenticated player may look at it.
func (s *gameServiceImpl) GetBoard(ctx context.Context, token, boardID string) (*BoardInfo, error) {
	if _, err := s.security.ValidateToken(token); err != nil {
		return nil, err
	}

	game, err := s.boards.Get(boardID)
	if err != nil {
		return nil, err
	}

	game.Lock()
	defer game.Unlock()
	return NewBoardInfo(game), nil
}

// Turn plays pitIndex for the caller, then lets computer players reply
func (s *gameServiceImpl) Turn(ctx context.Context, token, boardID string, pitIndex int) (*TurnResult, error) {
	caller, err := s.security.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	game, err := s.boards.Get(boardID)
	if err != nil {
		return nil, err
	}

	game.Lock()
	defer game.Unlock()

	board := game.Board
	if board.ActivePlayer() == nil {
		return nil, fmt.Errorf("board %s: %w", game.ID, engine.ErrGameOver)
	}
	if board.ActivePlayer() != engine.Player(caller) {
		return nil, fmt.Errorf("%w: '%s' on board %s", ErrNotActivePlayer, caller.Name(), game.ID)
	}

	res, err := board.Turn(pitIndex)
	if err != nil {
		return nil, err
	}

	moves := []MoveInfo{s.applied(ctx, game, res)}
	replies, err := s.playComputerTurns(ctx, game)
	moves = append(moves, replies...)
	s.touch(game)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Moves: moves,
		Board: NewBoardInfo(game),
	}, nil
}

// ListPresets returns the available opening positions
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	return s.presets.ListPresets()
}

// playComputerTurns keeps moving while a computer player is active. The
// caller must hold the game lock.
func (s *gameServiceImpl) playComputerTurns(ctx context.Context, game *Game) ([]MoveInfo, error) {
	var moves []MoveInfo
	for {
		computer, ok := game.Board.ActivePlayer().(player.ComputerPlayer)
		if !ok {
			return moves, nil
		}

		idx, err := computer.NextMoveIndex(game.Board)
		if err != nil {
			return moves, fmt.Errorf("computer player %s failed to choose a move: %w", computer.Name(), err)
		}
		res, err := game.Board.Turn(idx)
		if err != nil {
			return moves, fmt.Errorf("computer player %s made an invalid move: %w", computer.Name(), err)
		}
		moves = append(moves, s.applied(ctx, game, res))
	}
}

// applied logs and archives one engine turn
func (s *gameServiceImpl) applied(ctx context.Context, game *Game, res engine.TurnResult) MoveInfo {
	move := newMoveInfo(res)

	log.Debug().
		Str("board", game.ID).
		Str("player", move.Player).
		Int("pit", move.PitIndex).
		Int("turn", move.TurnNumber).
		Str("landing", string(move.Landing)).
		Int("captured", move.Captured).
		Bool("game_over", move.GameOver).
		Msg("turn")

	if s.recorder != nil {
		if err := s.recorder.RecordMove(ctx, game, move); err != nil {
			log.Warn().Err(err).Str("board", game.ID).Msg("failed to record move")
		}
	}

	if move.GameOver {
		b := game.Board
		ev := log.Info().
			Str("board", game.ID).
			Str("outcome", b.Outcome().String()).
			Str("player1", b.Player1().Name()).
			Int("store1", b.StoreStones(b.Player1())).
			Str("player2", b.Player2().Name()).
			Int("store2", b.StoreStones(b.Player2()))
		if w := b.Winner(); w != nil {
			ev = ev.Str("winner", w.Name())
		}
		ev.Msg("game over")

		if s.recorder != nil {
			if err := s.recorder.RecordEnd(ctx, game); err != nil {
				log.Warn().Err(err).Str("board", game.ID).Msg("failed to record game end")
			}
		}
	}
	return move
}

// touch stamps and persists the game. The caller must hold the game lock.
func (s *gameServiceImpl) touch(game *Game) {
	game.UpdatedAt = s.now()
	if err := s.boards.Save(game); err != nil {
		log.Warn().Err(err).Str("board", game.ID).Msg("failed to persist board")
	}
}

func (s *gameServiceImpl) coinFlip() bool {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(2) == 1
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
	"github.com/wricardo/kalah-game/game/security"
	"golang.org/x/crypto/bcrypt"
)

var errFakeNotFound = errors.New("not found")

// fakeBoards is an in-memory BoardManager
type fakeBoards struct {
	mu    sync.Mutex
	games []*Game
	saves int
}

func (f *fakeBoards) Create(p1, p2, start engine.Player, presetID string, preset *engine.Preset) (*Game, error) {
	b, err := engine.NewBoard(p1, p2, start)
	if err != nil {
		return nil, err
	}
	if err := b.InitPreset(preset); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	g := &Game{ID: fmt.Sprintf("board-%d", len(f.games)+1), Board: b, PresetID: presetID, Preset: preset}
	f.games = append(f.games, g)
	return g, nil
}

func (f *fakeBoards) Get(id string) (*Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, errFakeNotFound
}

func (f *fakeBoards) ListForPlayer(p engine.Player) []*Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Game
	for _, g := range f.games {
		if g.Board.HasPlayer(p) {
			out = append(out, g)
		}
	}
	return out
}

func (f *fakeBoards) Save(g *Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return nil
}

func (f *fakeBoards) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.games {
		if g.ID == id {
			f.games = append(f.games[:i], f.games[i+1:]...)
			return nil
		}
	}
	return errFakeNotFound
}

func (f *fakeBoards) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.games)
}

// stuckComputer never finds a move
type stuckComputer struct{}

func (stuckComputer) Name() string { return security.ComputerName }

func (stuckComputer) NextMoveIndex(view engine.View) (int, error) {
	return 0, player.ErrNoLegalMove
}

// fakePresets serves a fixed set of presets
type fakePresets struct {
	presets map[string]*engine.Preset
}

func (f *fakePresets) LoadPreset(id string) (*engine.Preset, error) {
	p, ok := f.presets[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return p, nil
}

func (f *fakePresets) ListPresets() ([]*PresetInfo, error) {
	var out []*PresetInfo
	for id, p := range f.presets {
		out = append(out, &PresetInfo{PresetID: id, Name: p.Name, PitsPerSide: p.PitsPerSide})
	}
	return out, nil
}

func (f *fakePresets) GetDefault() (string, *engine.Preset) {
	return "classic", f.presets["classic"]
}

// MockRecorder implements Recorder for testing
type MockRecorder struct {
	mu     sync.Mutex
	starts int
	moves  []MoveInfo
	ends   int
}

func (m *MockRecorder) RecordStart(ctx context.Context, game *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return nil
}

func (m *MockRecorder) RecordMove(ctx context.Context, game *Game, move MoveInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves = append(m.moves, move)
	return nil
}

func (m *MockRecorder) RecordEnd(ctx context.Context, game *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
	return errors.New("archive down")
}

type fixture struct {
	svc      GameService
	registry *security.Registry
	boards   *fakeBoards
	recorder *MockRecorder
}

func newFixture(t *testing.T, seed uint64) *fixture {
	t.Helper()
	f := &fixture{
		registry: security.NewRegistry(
			security.WithBcryptCost(bcrypt.MinCost),
			security.WithComputer(player.NewRandomPlayer(security.ComputerName, seed)),
		),
		boards:   &fakeBoards{},
		recorder: &MockRecorder{},
	}
	presets := &fakePresets{presets: map[string]*engine.Preset{
		"classic": engine.ClassicPreset(),
		"tiny":    {Name: "tiny", PitsPerSide: 2, StonesPerPit: 1},
	}}
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.svc = NewGameService(f.registry, f.boards, presets,
		WithRecorder(f.recorder),
		WithSeed(seed),
		WithClock(func() time.Time { return clock }),
	)
	return f
}

func (f *fixture) login(t *testing.T, name string) string {
	t.Helper()
	res, err := f.svc.Login(context.Background(), name, "pw-"+name)
	require.NoError(t, err)
	require.Equal(t, name, res.Player)
	return res.AccessToken
}

func TestLoginAndListPlayers(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	token := f.login(t, "Gamer 1")

	names, err := f.svc.ListPlayers(ctx, token)
	require.NoError(t, err)
	assert.Contains(t, names, "Gamer 1")
	assert.Contains(t, names, security.ComputerName)

	_, err = f.svc.ListPlayers(ctx, "")
	assert.ErrorIs(t, err, security.ErrMissingToken)

	_, err = f.svc.ListPlayers(ctx, "wrongToken")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	_, err = f.svc.Login(ctx, security.ComputerName, "pass")
	assert.ErrorIs(t, err, security.ErrComputerPlayer)
}

func TestCreateBoard_Errors(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	token := f.login(t, "alice")

	_, err := f.svc.CreateBoard(ctx, token, "", "")
	assert.ErrorIs(t, err, ErrMissingSecondPlayer)

	_, err = f.svc.CreateBoard(ctx, token, "nobody", "")
	assert.ErrorIs(t, err, security.ErrPlayerNotFound)

	_, err = f.svc.CreateBoard(ctx, token, security.ComputerName, "missing")
	assert.ErrorIs(t, err, errFakeNotFound)

	_, err = f.svc.CreateBoard(ctx, token, "alice", "")
	assert.ErrorIs(t, err, engine.ErrSamePlayers)

	_, err = f.svc.CreateBoard(ctx, "bad", security.ComputerName, "")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestCreateBoard_AgainstHuman(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	alice := f.login(t, "alice")
	f.login(t, "bob")

	info, err := f.svc.CreateBoard(ctx, alice, "bob", "")
	require.NoError(t, err)

	assert.Equal(t, "board-1", info.ID)
	assert.Equal(t, "classic", info.Preset)
	assert.Equal(t, []PlayerInfo{{Name: "alice"}, {Name: "bob"}}, info.Players)
	assert.Contains(t, []string{"alice", "bob"}, info.State.ActivePlayer)
	assert.Equal(t, 0, info.State.TurnNumber)
	assert.Equal(t, []int{6, 6, 6, 6, 6, 6}, info.State.RegularPits["bob"])
	assert.Equal(t, 1, f.recorder.starts)
	assert.Equal(t, 1, f.boards.saves)
}

func TestCreateBoard_StartPlayerIsRandom(t *testing.T) {
	f := newFixture(t, 99)
	ctx := context.Background()
	alice := f.login(t, "alice")
	f.login(t, "bob")

	starts := map[string]int{}
	for i := 0; i < 40; i++ {
		info, err := f.svc.CreateBoard(ctx, alice, "bob", "")
		require.NoError(t, err)
		starts[info.State.ActivePlayer]++
	}
	assert.Greater(t, starts["alice"], 5)
	assert.Greater(t, starts["bob"], 5)
}

func TestCreateBoard_FailedOpeningRemovesBoard(t *testing.T) {
	registry := security.NewRegistry(
		security.WithBcryptCost(bcrypt.MinCost),
		security.WithComputer(stuckComputer{}),
	)
	boards := &fakeBoards{}
	presets := &fakePresets{presets: map[string]*engine.Preset{"classic": engine.ClassicPreset()}}
	svc := NewGameService(registry, boards, presets, WithSeed(1))

	login, err := svc.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	var failed, created int
	for i := 0; i < 40; i++ {
		info, err := svc.CreateBoard(context.Background(), login.AccessToken, security.ComputerName, "")
		if err != nil {
			assert.ErrorIs(t, err, player.ErrNoLegalMove)
			assert.Nil(t, info)
			failed++
			continue
		}
		assert.Equal(t, "alice", info.State.ActivePlayer)
		created++
	}

	require.Greater(t, failed, 0, "the computer starts on some boards")
	require.Greater(t, created, 0)
	assert.Equal(t, created, boards.count(), "boards whose opening failed are not kept")
}

func TestGameOverLogUsesFixedKeys(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	f := newFixture(t, 3)
	alice := f.login(t, "board")
	bob := f.login(t, "outcome")

	info, err := f.svc.CreateBoard(context.Background(), alice, "outcome", "tiny")
	require.NoError(t, err)
	tokens := map[string]string{"board": alice, "outcome": bob}
	for !info.State.GameOver {
		active := info.State.ActivePlayer
		pits := info.State.RegularPits[active]
		pit := 0
		for pits[pit] == 0 {
			pit++
		}
		res, err := f.svc.Turn(context.Background(), tokens[active], info.ID, pit)
		require.NoError(t, err)
		info = res.Board
	}

	var entry map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		entry = nil
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "game over" {
			break
		}
	}
	require.Equal(t, "game over", entry["message"])
	assert.Equal(t, info.ID, entry["board"])
	assert.Equal(t, "board", entry["player1"])
	assert.Equal(t, "outcome", entry["player2"])
	assert.EqualValues(t, info.State.Stores["board"], entry["store1"])
	assert.EqualValues(t, info.State.Stores["outcome"], entry["store2"])
}

func TestCreateBoard_ComputerMovesFirst(t *testing.T) {
	for seed := uint64(0); seed < 10; seed++ {
		f := newFixture(t, seed)
		token := f.login(t, "alice")

		info, err := f.svc.CreateBoard(context.Background(), token, security.ComputerName, "")
		require.NoError(t, err)

		assert.True(t, info.Players[1].Computer)
		if info.State.GameOver {
			continue
		}
		assert.Equal(t, "alice", info.State.ActivePlayer, "computer keeps moving until the human is active")
		if info.State.TurnNumber > 0 {
			assert.NotEmpty(t, f.recorder.moves)
			assert.True(t, f.recorder.moves[0].Computer)
		}
	}
}

func TestTurn(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	info, err := f.svc.CreateBoard(ctx, alice, "bob", "")
	require.NoError(t, err)

	active, idle := alice, bob
	if info.State.ActivePlayer == "bob" {
		active, idle = bob, alice
	}

	_, err = f.svc.Turn(ctx, idle, info.ID, 0)
	assert.ErrorIs(t, err, ErrNotActivePlayer)

	_, err = f.svc.Turn(ctx, active, info.ID, 6)
	assert.ErrorIs(t, err, engine.ErrPitOutOfRange)

	_, err = f.svc.Turn(ctx, active, "nope", 0)
	assert.ErrorIs(t, err, errFakeNotFound)

	res, err := f.svc.Turn(ctx, active, info.ID, 0)
	require.NoError(t, err)
	require.Len(t, res.Moves, 1)
	assert.Equal(t, 0, res.Moves[0].PitIndex)
	assert.Equal(t, 6, res.Moves[0].Sown)
	assert.Equal(t, engine.LandedOwnStore, res.Moves[0].Landing, "six stones from pit 0 end in the store")
	assert.True(t, res.Moves[0].ExtraTurn)
	assert.Equal(t, 1, res.Board.State.TurnNumber)
	assert.Equal(t, info.State.ActivePlayer, res.Board.State.ActivePlayer)

	_, err = f.svc.Turn(ctx, active, info.ID, 0)
	assert.ErrorIs(t, err, engine.ErrIllegalMove)
}

func TestTurn_AgainstComputerUntilGameOver(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	token := f.login(t, "alice")

	info, err := f.svc.CreateBoard(ctx, token, security.ComputerName, "tiny")
	require.NoError(t, err)

	for steps := 0; !info.State.GameOver; steps++ {
		require.Less(t, steps, 100)
		require.Equal(t, "alice", info.State.ActivePlayer)

		pit := -1
		for i, n := range info.State.RegularPits["alice"] {
			if n > 0 {
				pit = i
				break
			}
		}
		require.GreaterOrEqual(t, pit, 0)

		res, err := f.svc.Turn(ctx, token, info.ID, pit)
		require.NoError(t, err)
		assert.False(t, res.Moves[0].Computer)
		for _, m := range res.Moves[1:] {
			assert.True(t, m.Computer)
		}
		info = res.Board
	}

	total := info.State.Stores["alice"] + info.State.Stores[security.ComputerName]
	assert.Equal(t, 4, total)
	assert.Empty(t, info.State.ActivePlayer)
	assert.Equal(t, 1, f.recorder.ends, "recorder errors do not fail the turn")

	_, err = f.svc.Turn(ctx, token, info.ID, 0)
	assert.ErrorIs(t, err, engine.ErrGameOver)
}

func TestListAndGetBoards(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")
	carol := f.login(t, "carol")

	first, err := f.svc.CreateBoard(ctx, alice, "bob", "")
	require.NoError(t, err)
	second, err := f.svc.CreateBoard(ctx, carol, "alice", "tiny")
	require.NoError(t, err)

	boards, err := f.svc.ListBoards(ctx, alice)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, first.ID, boards[0].ID)
	assert.Equal(t, second.ID, boards[1].ID)

	boards, err = f.svc.ListBoards(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, boards, 1)

	got, err := f.svc.GetBoard(ctx, bob, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "tiny", got.Preset)

	presets, err := f.svc.ListPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, 2)
}

func TestTurn_ConcurrentCallsAreSerialized(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	info, err := f.svc.CreateBoard(ctx, alice, "bob", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := alice
			if i%2 == 1 {
				token = bob
			}
			if _, err := f.svc.Turn(ctx, token, info.ID, i%6); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	final, err := f.svc.GetBoard(ctx, alice, info.ID)
	require.NoError(t, err)
	assert.Equal(t, succeeded, final.State.TurnNumber)

	total := 0
	for _, name := range []string{"alice", "bob"} {
		total += final.State.Stores[name]
		for _, n := range final.State.RegularPits[name] {
			total += n
		}
	}
	assert.Equal(t, 72, total)
}

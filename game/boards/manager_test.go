package boards

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/kalah-game/game/engine"
)

type testPlayer struct {
	name string
}

func (p *testPlayer) Name() string { return p.name }

type roster map[string]engine.Player

func newRoster(names ...string) roster {
	r := roster{}
	for _, n := range names {
		r[n] = &testPlayer{name: n}
	}
	return r
}

func (r roster) resolve(name string) (engine.Player, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown player %s", name)
	}
	return p, nil
}

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager()
	players := newRoster("alice", "bob")

	game, err := m.Create(players["alice"], players["bob"], players["bob"], "classic", engine.ClassicPreset())
	require.NoError(t, err)
	assert.NotEmpty(t, game.ID)
	assert.Equal(t, "classic", game.PresetID)
	assert.Equal(t, players["bob"], game.Board.ActivePlayer())
	assert.Equal(t, 72, game.Board.TotalStones())

	got, err := m.Get(game.ID)
	require.NoError(t, err)
	assert.Same(t, game, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.Equal(t, 1, m.Count())
}

func TestManager_CreateErrors(t *testing.T) {
	m := NewManager()
	players := newRoster("alice", "bob")

	_, err := m.Create(players["alice"], players["alice"], players["alice"], "", nil)
	assert.ErrorIs(t, err, engine.ErrSamePlayers)

	_, err = m.Create(players["alice"], players["bob"], players["alice"], "bad", &engine.Preset{Name: "bad"})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestManager_CreateWithoutPresetUsesDefault(t *testing.T) {
	m := NewManager()
	players := newRoster("alice", "bob")

	game, err := m.Create(players["alice"], players["bob"], players["alice"], "", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, game.Board.PitsPerSide())
}

func TestManager_ListForPlayerKeepsCreationOrder(t *testing.T) {
	m := NewManager()
	players := newRoster("alice", "bob", "carol")

	var aliceBoards []string
	for i := 0; i < 5; i++ {
		g, err := m.Create(players["alice"], players["bob"], players["alice"], "", nil)
		require.NoError(t, err)
		aliceBoards = append(aliceBoards, g.ID)

		_, err = m.Create(players["bob"], players["carol"], players["bob"], "", nil)
		require.NoError(t, err)
	}

	var got []string
	for _, g := range m.ListForPlayer(players["alice"]) {
		got = append(got, g.ID)
	}
	assert.Equal(t, aliceBoards, got)
	assert.Len(t, m.ListForPlayer(players["bob"]), 10)
	assert.Len(t, m.ListForPlayer(players["carol"]), 5)
	assert.Empty(t, m.ListForPlayer(&testPlayer{name: "alice"}), "players are matched by identity")
}

func TestManager_Delete(t *testing.T) {
	m := NewManager()
	players := newRoster("alice", "bob")

	g, err := m.Create(players["alice"], players["bob"], players["alice"], "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Delete(g.ID))
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.List())
	assert.ErrorIs(t, m.Delete(g.ID), ErrBoardNotFound)
}

func TestManager_CleanupFinished(t *testing.T) {
	m := NewManager()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	players := newRoster("alice", "bob")

	finished, err := m.Create(players["alice"], players["bob"], players["alice"], "tiny",
		&engine.Preset{Name: "tiny", PitsPerSide: 1, StonesPerPit: 1})
	require.NoError(t, err)
	_, err = finished.Board.Turn(0)
	require.NoError(t, err)
	require.Nil(t, finished.Board.ActivePlayer())

	running, err := m.Create(players["alice"], players["bob"], players["alice"], "", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, m.CleanupFinished(time.Hour), "nothing is old yet")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.CleanupFinished(time.Hour))

	_, err = m.Get(finished.ID)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	_, err = m.Get(running.ID)
	assert.NoError(t, err)
}

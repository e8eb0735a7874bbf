package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/kalah-game/game/boards"
	"github.com/wricardo/kalah-game/game/config"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/security"
	"github.com/wricardo/kalah-game/game/service"
	"golang.org/x/crypto/bcrypt"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	LoginFunc       func(ctx context.Context, name, password string) (*service.LoginResult, error)
	ListPlayersFunc func(ctx context.Context, token string) ([]string, error)
	CreateBoardFunc func(ctx context.Context, token, secondPlayerName, presetID string) (*service.BoardInfo, error)
	ListBoardsFunc  func(ctx context.Context, token string) ([]*service.BoardInfo, error)
	GetBoardFunc    func(ctx context.Context, token, boardID string) (*service.BoardInfo, error)
	TurnFunc        func(ctx context.Context, token, boardID string, pitIndex int) (*service.TurnResult, error)
	ListPresetsFunc func(ctx context.Context) ([]*service.PresetInfo, error)
}

func (m *MockGameService) Login(ctx context.Context, name, password string) (*service.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, name, password)
	}
	return &service.LoginResult{AccessToken: "token-" + name, Player: name}, nil
}

func (m *MockGameService) ListPlayers(ctx context.Context, token string) ([]string, error) {
	if m.ListPlayersFunc != nil {
		return m.ListPlayersFunc(ctx, token)
	}
	return []string{}, nil
}

func (m *MockGameService) CreateBoard(ctx context.Context, token, secondPlayerName, presetID string) (*service.BoardInfo, error) {
	if m.CreateBoardFunc != nil {
		return m.CreateBoardFunc(ctx, token, secondPlayerName, presetID)
	}
	return &service.BoardInfo{ID: "board-1", Preset: presetID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListBoards(ctx context.Context, token string) ([]*service.BoardInfo, error) {
	if m.ListBoardsFunc != nil {
		return m.ListBoardsFunc(ctx, token)
	}
	return []*service.BoardInfo{}, nil
}

func (m *MockGameService) GetBoard(ctx context.Context, token, boardID string) (*service.BoardInfo, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, token, boardID)
	}
	return &service.BoardInfo{ID: boardID}, nil
}

func (m *MockGameService) Turn(ctx context.Context, token, boardID string, pitIndex int) (*service.TurnResult, error) {
	if m.TurnFunc != nil {
		return m.TurnFunc(ctx, token, boardID, pitIndex)
	}
	return &service.TurnResult{Board: &service.BoardInfo{ID: boardID}}, nil
}

func (m *MockGameService) ListPresets(ctx context.Context) ([]*service.PresetInfo, error) {
	if m.ListPresetsFunc != nil {
		return m.ListPresetsFunc(ctx)
	}
	return []*service.PresetInfo{}, nil
}

func do(t *testing.T, handler http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{security.ErrMissingToken, http.StatusBadRequest},
		{security.ErrComputerPlayer, http.StatusBadRequest},
		{service.ErrNotActivePlayer, http.StatusBadRequest},
		{service.ErrMissingSecondPlayer, http.StatusBadRequest},
		{fmt.Errorf("pit 3: %w", engine.ErrIllegalMove), http.StatusBadRequest},
		{engine.ErrPitOutOfRange, http.StatusBadRequest},
		{engine.ErrSamePlayers, http.StatusBadRequest},
		{security.ErrInvalidToken, http.StatusForbidden},
		{security.ErrWrongPassword, http.StatusForbidden},
		{security.ErrPlayerNotFound, http.StatusNotFound},
		{fmt.Errorf("board x: %w", boards.ErrBoardNotFound), http.StatusNotFound},
		{fmt.Errorf("failed to load preset: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{security.ErrPlayerExists, http.StatusConflict},
		{engine.ErrGameOver, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestHandleAccessToken(t *testing.T) {
	var gotName, gotPassword string
	mock := &MockGameService{
		LoginFunc: func(ctx context.Context, name, password string) (*service.LoginResult, error) {
			gotName, gotPassword = name, password
			if password != "secret" {
				return nil, security.ErrWrongPassword
			}
			return &service.LoginResult{AccessToken: "abc", Player: name}, nil
		},
	}
	server := NewServer(mock, nil)

	w := do(t, server, "GET", "/v1/security/access_token?name=alice", map[string]string{HeaderPassword: "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", gotName)
	assert.Equal(t, "secret", gotPassword)
	assert.Equal(t, "abc", decode[service.LoginResult](t, w).AccessToken)

	w = do(t, server, "GET", "/v1/security/access_token?name=alice", map[string]string{HeaderPassword: "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, security.ErrWrongPassword.Error(), decode[map[string]string](t, w)["error"])

	w = do(t, server, "GET", "/v1/security/access_token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateBoard(t *testing.T) {
	mock := &MockGameService{
		CreateBoardFunc: func(ctx context.Context, token, second, preset string) (*service.BoardInfo, error) {
			assert.Equal(t, "tok", token)
			assert.Equal(t, "bob", second)
			assert.Equal(t, "quick", preset)
			return &service.BoardInfo{ID: "b1", Preset: preset}, nil
		},
	}
	server := NewServer(mock, nil)

	w := do(t, server, "POST", "/v1/board?secondPlayerName=bob&preset=quick", map[string]string{HeaderAccessToken: "tok"})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		BoardID string             `json:"board_id"`
		Board   *service.BoardInfo `json:"board"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "b1", body.BoardID)
	assert.Equal(t, "quick", body.Board.Preset)
}

func TestHandleTurnParameters(t *testing.T) {
	var gotPit int
	mock := &MockGameService{
		TurnFunc: func(ctx context.Context, token, boardID string, pit int) (*service.TurnResult, error) {
			gotPit = pit
			return &service.TurnResult{Board: &service.BoardInfo{ID: boardID}}, nil
		},
	}
	server := NewServer(mock, nil)

	w := do(t, server, "PUT", "/v1/board/b1/turn?nextTurnPitNum=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, gotPit)

	w = do(t, server, "PUT", "/v1/board/b1/turn", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, "PUT", "/v1/board/b1/turn?nextTurnPitNum=four", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, "GET", "/v1/board/b1/turn?nextTurnPitNum=1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleListRoutes(t *testing.T) {
	mock := &MockGameService{
		ListPlayersFunc: func(ctx context.Context, token string) ([]string, error) {
			if token == "" {
				return nil, security.ErrMissingToken
			}
			return []string{"Computer", "alice"}, nil
		},
		ListBoardsFunc: func(ctx context.Context, token string) ([]*service.BoardInfo, error) {
			return []*service.BoardInfo{{ID: "b1"}, {ID: "b2"}}, nil
		},
		ListPresetsFunc: func(ctx context.Context) ([]*service.PresetInfo, error) {
			return []*service.PresetInfo{{PresetID: "classic", Default: true}}, nil
		},
	}
	server := NewServer(mock, nil)

	w := do(t, server, "GET", "/v1/security/players", map[string]string{HeaderAccessToken: "tok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Computer", "alice"}, decode[[]string](t, w))

	w = do(t, server, "GET", "/v1/security/players", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, "GET", "/v1/board/list", map[string]string{HeaderAccessToken: "tok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.BoardInfo](t, w), 2)

	w = do(t, server, "GET", "/v1/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "classic", decode[[]service.PresetInfo](t, w)[0].PresetID)

	w = do(t, server, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleWebSocketWithoutHub(t *testing.T) {
	mock := &MockGameService{
		GetBoardFunc: func(ctx context.Context, token, boardID string) (*service.BoardInfo, error) {
			return nil, boards.ErrBoardNotFound
		},
	}

	w := do(t, NewServer(mock, nil), "GET", "/ws?board=b1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// newStack wires the real registry, board manager and preset manager
func newStack(t *testing.T) *Server {
	t.Helper()
	presets, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	registry := security.NewRegistry(security.WithBcryptCost(bcrypt.MinCost))
	svc := service.NewGameService(registry, boards.NewManager(), presets, service.WithSeed(7))
	return NewServer(svc, nil)
}

func login(t *testing.T, server http.Handler, name, password string) string {
	t.Helper()
	w := do(t, server, "GET", "/v1/security/access_token?name="+name, map[string]string{HeaderPassword: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[service.LoginResult](t, w).AccessToken
}

func TestIntegration_TwoHumans(t *testing.T) {
	server := newStack(t)
	tokens := map[string]string{
		"alice": login(t, server, "alice", "a"),
		"bob":   login(t, server, "bob", "b"),
	}

	w := do(t, server, "GET", "/v1/security/access_token?name=alice", map[string]string{HeaderPassword: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, server, "GET", "/v1/security/players", map[string]string{HeaderAccessToken: tokens["alice"]})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Computer", "alice", "bob"}, decode[[]string](t, w))

	w = do(t, server, "POST", "/v1/board?secondPlayerName=bob", map[string]string{HeaderAccessToken: tokens["alice"]})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		BoardID string             `json:"board_id"`
		Board   *service.BoardInfo `json:"board"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	boardURL := "/v1/board/" + created.BoardID

	state := created.Board.State
	assert.Equal(t, []string{"alice", "bob"}, state.Players)
	assert.Equal(t, []int{6, 6, 6, 6, 6, 6}, state.RegularPits["alice"])
	assert.Equal(t, 0, state.TurnNumber)

	first := state.ActivePlayer
	require.Contains(t, tokens, first)
	second := "bob"
	if first == "bob" {
		second = "alice"
	}

	// The waiting player cannot move
	w = do(t, server, "PUT", boardURL+"/turn?nextTurnPitNum=0", map[string]string{HeaderAccessToken: tokens[second]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Pit 0 holds six stones and ends in the store
	w = do(t, server, "PUT", boardURL+"/turn?nextTurnPitNum=0", map[string]string{HeaderAccessToken: tokens[first]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[service.TurnResult](t, w)
	require.Len(t, res.Moves, 1)
	assert.Equal(t, engine.LandedOwnStore, res.Moves[0].Landing)
	assert.True(t, res.Moves[0].ExtraTurn)
	assert.Equal(t, first, res.Board.State.ActivePlayer)
	assert.Equal(t, []int{0, 7, 7, 7, 7, 7}, res.Board.State.RegularPits[first])
	assert.Equal(t, 1, res.Board.State.Stores[first])

	// Pit 0 is now empty
	w = do(t, server, "PUT", boardURL+"/turn?nextTurnPitNum=0", map[string]string{HeaderAccessToken: tokens[first]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, "PUT", boardURL+"/turn?nextTurnPitNum=6", map[string]string{HeaderAccessToken: tokens[first]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Seven stones from pit 1 reach the opponent's first two pits
	w = do(t, server, "PUT", boardURL+"/turn?nextTurnPitNum=1", map[string]string{HeaderAccessToken: tokens[first]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode[service.TurnResult](t, w)
	assert.Equal(t, engine.LandedOpponentPit, res.Moves[0].Landing)
	assert.Equal(t, second, res.Board.State.ActivePlayer)
	assert.Equal(t, 2, res.Board.State.Stores[first])
	assert.Equal(t, []int{7, 7, 6, 6, 6, 6}, res.Board.State.RegularPits[second])

	w = do(t, server, "GET", boardURL, map[string]string{HeaderAccessToken: tokens[second]})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[service.BoardInfo](t, w).State.TurnNumber)

	w = do(t, server, "GET", "/v1/board/list", map[string]string{HeaderAccessToken: tokens["bob"]})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.BoardInfo](t, w), 1)
}

func TestIntegration_Errors(t *testing.T) {
	server := newStack(t)
	alice := login(t, server, "alice", "a")
	auth := map[string]string{HeaderAccessToken: alice}

	tests := []struct {
		name   string
		method string
		target string
		header map[string]string
		want   int
	}{
		{"missing token", "GET", "/v1/board/list", nil, http.StatusBadRequest},
		{"bad token", "GET", "/v1/board/list", map[string]string{HeaderAccessToken: "nope"}, http.StatusForbidden},
		{"unknown board", "GET", "/v1/board/missing", auth, http.StatusNotFound},
		{"unknown opponent", "POST", "/v1/board?secondPlayerName=zed", auth, http.StatusNotFound},
		{"missing opponent", "POST", "/v1/board", auth, http.StatusBadRequest},
		{"unknown preset", "POST", "/v1/board?secondPlayerName=Computer&preset=nope", auth, http.StatusNotFound},
		{"self challenge", "POST", "/v1/board?secondPlayerName=alice", auth, http.StatusBadRequest},
		{"computer login", "GET", "/v1/security/access_token?name=Computer", nil, http.StatusBadRequest},
		{"turn on unknown board", "PUT", "/v1/board/missing/turn?nextTurnPitNum=0", auth, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, tt.method, tt.target, tt.header)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestIntegration_AgainstComputer(t *testing.T) {
	server := newStack(t)
	auth := map[string]string{HeaderAccessToken: login(t, server, "alice", "a")}

	w := do(t, server, "POST", "/v1/board?secondPlayerName=Computer", auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		BoardID string             `json:"board_id"`
		Board   *service.BoardInfo `json:"board"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Board.Players[1].Computer)

	// Play the first non-empty pit until the game ends; the computer always
	// answers within the same request.
	board := created.Board
	for turns := 0; !board.State.GameOver; turns++ {
		require.Less(t, turns, 500)
		require.Equal(t, "alice", board.State.ActivePlayer)

		pit := -1
		for i, n := range board.State.RegularPits["alice"] {
			if n > 0 {
				pit = i
				break
			}
		}
		require.GreaterOrEqual(t, pit, 0)

		w := do(t, server, "PUT", fmt.Sprintf("/v1/board/%s/turn?nextTurnPitNum=%d", created.BoardID, pit), auth)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[service.TurnResult](t, w)
		assert.Equal(t, "alice", res.Moves[0].Player)
		board = res.Board
	}

	total := board.State.Stores["alice"] + board.State.Stores["Computer"]
	assert.Equal(t, 72, total)

	w = do(t, server, "PUT", fmt.Sprintf("/v1/board/%s/turn?nextTurnPitNum=0", created.BoardID), auth)
	assert.Equal(t, http.StatusConflict, w.Code)
}

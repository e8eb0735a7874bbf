package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/kalah-game/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Kalah",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Kalah - MCP Interface

This is a thin client that proxies all requests to the Kalah REST API server.

Start with login: it registers the name on first use and returns an access
token. Pass that token as access_token to every other tool.

AVAILABLE TOOLS:
- login: Get an access token
- list_players: Names you can challenge ("Computer" plays random moves)
- list_presets: Opening positions
- create_board: Open a board against another player
- list_boards: Boards you play on
- board_state: Show one board
- make_turn: Sow one of your pits (0-based index)
- game_rules: The rules of Kalah`),
	)

	c.registerTools()
}

func tokenProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Access token returned by login",
	}
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "login",
		Description: "Log in (or register on first use) and get an access token",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Player name",
				},
				"password": map[string]interface{}{
					"type":        "string",
					"description": "Password",
				},
			},
			Required: []string{"name", "password"},
		},
	}, c.handleLogin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_players",
		Description: "List registered player names",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_token": tokenProperty(),
			},
			Required: []string{"access_token"},
		},
	}, c.handleListPlayers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List opening positions that can be used when creating a board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_board",
		Description: "Open a new board against another player. The first player is chosen at random.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_token": tokenProperty(),
				"second_player_name": map[string]interface{}{
					"type":        "string",
					"description": "Opponent name, e.g. Computer",
				},
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Opening preset id (optional, default classic)",
				},
			},
			Required: []string{"access_token", "second_player_name"},
		},
	}, c.handleCreateBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_boards",
		Description: "List the boards you play on",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_token": tokenProperty(),
			},
			Required: []string{"access_token"},
		},
	}, c.handleListBoards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Show a board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_token": tokenProperty(),
				"board_id": map[string]interface{}{
					"type":        "string",
					"description": "Board ID",
				},
			},
			Required: []string{"access_token", "board_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "make_turn",
		Description: "Sow the stones of one of your pits. Computer replies are played immediately.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_token": tokenProperty(),
				"board_id": map[string]interface{}{
					"type":        "string",
					"description": "Board ID",
				},
				"pit_index": map[string]interface{}{
					"type":        "integer",
					"description": "0-based index of your pit, counted from your left",
				},
			},
			Required: []string{"access_token", "board_id", "pit_index"},
		},
	}, c.handleMakeTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules of Kalah",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall sends a request without a body; the REST API takes its
// parameters from the query string and headers.
func (c *Client) apiCall(ctx context.Context, method, path string, headers map[string]string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func authHeader(token string) map[string]string {
	return map[string]string{"access-token": token}
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// Tool handlers

func (c *Client) handleLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	name, _ := args["name"].(string)
	password, _ := args["password"].(string)

	var login service.LoginResult
	err := c.apiCall(ctx, "GET", "/v1/security/access_token?name="+url.QueryEscape(name),
		map[string]string{"password": password}, &login)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Logged in as %s\nAccess token: %s\n", login.Player, login.AccessToken)), nil
}

func (c *Client) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, _ := arguments(request)["access_token"].(string)

	var players []string
	if err := c.apiCall(ctx, "GET", "/v1/security/players", authHeader(token), &players); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Players (%d):\n", len(players))
	for _, p := range players {
		result += fmt.Sprintf("- %s\n", p)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.PresetInfo
	if err := c.apiCall(ctx, "GET", "/v1/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Presets (%d):\n", len(presets))
	for _, p := range presets {
		def := ""
		if p.Default {
			def = " (default)"
		}
		fmt.Fprintf(&sb, "- %s%s: %d pits x %d stones. %s\n", p.PresetID, def, p.PitsPerSide, p.StonesPerPit, p.Description)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleCreateBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	token, _ := args["access_token"].(string)
	second, _ := args["second_player_name"].(string)
	preset, _ := args["preset"].(string)

	query := url.Values{}
	query.Set("secondPlayerName", second)
	if preset != "" {
		query.Set("preset", preset)
	}

	var created struct {
		BoardID string             `json:"board_id"`
		Board   *service.BoardInfo `json:"board"`
	}
	if err := c.apiCall(ctx, "POST", "/v1/board?"+query.Encode(), authHeader(token), &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created board " + created.BoardID + "\n\n" + formatBoard(created.Board)), nil
}

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, _ := arguments(request)["access_token"].(string)

	var list []*service.BoardInfo
	if err := c.apiCall(ctx, "GET", "/v1/board/list", authHeader(token), &list); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Boards (%d):\n", len(list))
	for _, b := range list {
		fmt.Fprintf(&sb, "- %s: %s, %s\n", b.ID, strings.Join(b.State.Players, " vs "), boardStatus(b))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	token, _ := args["access_token"].(string)
	boardID, _ := args["board_id"].(string)

	var board service.BoardInfo
	if err := c.apiCall(ctx, "GET", "/v1/board/"+url.PathEscape(boardID), authHeader(token), &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(&board)), nil
}

func (c *Client) handleMakeTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	token, _ := args["access_token"].(string)
	boardID, _ := args["board_id"].(string)

	pit, err := intArg(args["pit_index"])
	if err != nil {
		return mcp.NewToolResultError("pit_index: " + err.Error()), nil
	}

	path := fmt.Sprintf("/v1/board/%s/turn?nextTurnPitNum=%d", url.PathEscape(boardID), pit)
	var result service.TurnResult
	if err := c.apiCall(ctx, "PUT", path, authHeader(token), &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameRules), nil
}

const gameRules = `KALAH RULES

The board has two rows of pits, one per player, and a store for each player.
Your row is the bottom one in the drawings; pit 0 is your leftmost pit and
your store is on your right. The opponent's row is drawn right to left.

A TURN
Pick one of your non-empty pits. All its stones are taken out and sown one by
one counter-clockwise: into your following pits, then your store, then the
opponent's pits. The opponent's store is skipped.

EXTRA TURN
If the last stone lands in your own store you move again.

CAPTURE
If the last stone lands in one of your own pits that was empty, that stone and
all stones in the opposite pit go to your store.

END OF GAME
As soon as either row is empty, every stone left on the other row goes to its
owner's store. The player with more stones in the store wins; equal stores
are a draw.`

// intArg accepts JSON numbers and numeric strings
func intArg(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("must be a whole number, got %v", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	case nil:
		return 0, fmt.Errorf("required")
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func boardStatus(b *service.BoardInfo) string {
	s := b.State
	switch {
	case s.ActivePlayer != "":
		return fmt.Sprintf("turn %d, %s to move", s.TurnNumber, s.ActivePlayer)
	case s.Draw:
		return "draw"
	case s.Winner != "":
		return s.Winner + " won"
	}
	return "over"
}

func formatBoard(b *service.BoardInfo) string {
	if b == nil || b.State == nil {
		return "(no board)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Board %s (preset %s)\n\n", b.ID, b.Preset)
	sb.WriteString(b.State.String())
	sb.WriteString("\n\nStores:")
	for _, name := range b.State.Players {
		fmt.Fprintf(&sb, " %s=%d", name, b.State.Stores[name])
	}
	sb.WriteString("\n")
	if b.State.GameOver {
		sb.WriteString("GAME OVER\n")
	}
	return sb.String()
}

func formatTurnResult(r *service.TurnResult) string {
	var sb strings.Builder
	for _, m := range r.Moves {
		fmt.Fprintf(&sb, "Turn %d: %s sowed pit %d (%d stones), last stone in %s", m.TurnNumber, m.Player, m.PitIndex, m.Sown, strings.ReplaceAll(string(m.Landing), "_", " "))
		if m.ExtraTurn {
			sb.WriteString(", extra turn")
		}
		if m.Captured > 0 {
			fmt.Fprintf(&sb, ", captured %d", m.Captured)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(formatBoard(r.Board))
	return sb.String()
}

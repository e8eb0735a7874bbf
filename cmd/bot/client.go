package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/wricardo/kalah-game/api"
	"github.com/wricardo/kalah-game/game/service"
)

// Client talks to the REST API as a single player
type Client struct {
	baseURL string
	token   string
	player  string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login registers or authenticates name and keeps the access token
func (c *Client) Login(ctx context.Context, name, password string) error {
	var result service.LoginResult
	err := c.do(ctx, http.MethodGet, "/v1/security/access_token?"+url.Values{"name": {name}}.Encode(),
		map[string]string{api.HeaderPassword: password}, &result)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.token = result.AccessToken
	c.player = result.Player
	return nil
}

// CreateBoard starts a game against opponent with the given preset
func (c *Client) CreateBoard(ctx context.Context, opponent, preset string) (*service.BoardInfo, error) {
	query := url.Values{"secondPlayerName": {opponent}}
	if preset != "" {
		query.Set("preset", preset)
	}

	var created struct {
		BoardID string             `json:"board_id"`
		Board   *service.BoardInfo `json:"board"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/board?"+query.Encode(), c.auth(), &created); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return created.Board, nil
}

func (c *Client) GetBoard(ctx context.Context, id string) (*service.BoardInfo, error) {
	var board service.BoardInfo
	if err := c.do(ctx, http.MethodGet, "/v1/board/"+url.PathEscape(id), c.auth(), &board); err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

func (c *Client) Turn(ctx context.Context, id string, pit int) (*service.TurnResult, error) {
	path := fmt.Sprintf("/v1/board/%s/turn?nextTurnPitNum=%s", url.PathEscape(id), strconv.Itoa(pit))

	var result service.TurnResult
	if err := c.do(ctx, http.MethodPut, path, c.auth(), &result); err != nil {
		return nil, fmt.Errorf("turn: %w", err)
	}
	return &result, nil
}

func (c *Client) auth() map[string]string {
	return map[string]string{api.HeaderAccessToken: c.token}
}

// do sends a bodyless request and decodes the JSON response into result
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if sonic.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s (%d)", errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if result == nil {
		return nil
	}
	return sonic.Unmarshal(body, result)
}

// Package mcp exposes the Kalah REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: each tool call becomes one REST request
// against a running server, and the JSON answer is rendered as text with an
// ASCII drawing of the board.
//
// Tools:
//   - login: access token for a name and password
//   - list_players, list_presets, game_rules
//   - create_board, list_boards, board_state
//   - make_turn: sow one pit; computer replies are included
//
// Every tool except login, list_presets and game_rules takes the token as
// its access_token argument.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

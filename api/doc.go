// Package api provides the HTTP REST API for Kalah boards.
//
// All game endpoints live under /v1 and answer JSON. Authenticated calls
// carry the token issued by the access_token endpoint in the access-token
// header.
//
// Security:
//   - GET /v1/security/access_token?name=<name> with a password header.
//     Unknown names are registered on first login.
//   - GET /v1/security/players lists registered player names.
//
// Boards:
//   - GET /v1/board/list lists the boards the caller plays on
//   - POST /v1/board?secondPlayerName=<name>&preset=<id> opens a board
//   - GET /v1/board/{boardId} returns a board
//   - PUT /v1/board/{boardId}/turn?nextTurnPitNum=<i> plays pit i (0-based)
//
// Presets:
//   - GET /v1/presets lists opening positions
//
// Other:
//   - GET /ws?board=<id> streams board updates over a websocket
//   - GET /health
//
// Errors are returned as {"error": "message"} with a status code chosen by
// StatusFor: 400 for bad input or an out-of-turn move, 403 for a bad token
// or password, 404 for unknown players, boards or presets, 409 when the
// game is already over.
package api

// Package service implements the Kalah game service used by the REST API,
// the MCP tools and the bots.
//
// GameService authenticates callers by access token, creates boards between
// a caller and a named opponent, and plays turns. Turns on one board are
// serialized by the board's own lock; after every human move the service
// keeps playing for computer players until a human is to move again or the
// game ends.
//
// The service depends on small interfaces (SecurityManager, BoardManager,
// PresetManager, Recorder) implemented by the security, boards, config and
// archive packages, which keeps it testable with in-memory fakes.
package service

package engine

import "errors"

// Configuration errors
var (
	ErrNilPlayer          = errors.New("player cannot be nil")
	ErrSamePlayers        = errors.New("players must be different")
	ErrInvalidStartPlayer = errors.New("start player must be one of the board players")
	ErrPitCountMismatch   = errors.New("both players must have the same number of regular pits")
	ErrNoPits             = errors.New("at least one regular pit per player is required")
	ErrNegativeStones     = errors.New("stone counts cannot be negative")
	ErrAlreadyInitialized = errors.New("board is already initialized")
	ErrNotInitialized     = errors.New("board is not initialized")
	ErrUnknownPlayer      = errors.New("player does not belong to this board")
)

// Move errors
var (
	ErrIllegalMove   = errors.New("illegal move: pit is empty")
	ErrPitOutOfRange = errors.New("illegal move: pit index out of range")
	ErrGameOver      = errors.New("game already over")
)

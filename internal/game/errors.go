package game

import "errors"

// Contract violations. These indicate a caller bug rather than a game-state
// edge case; user-reachable invalid actions are no-ops instead.
var (
	ErrOutOfBounds     = errors.New("position out of bounds")
	ErrInvalidSettings = errors.New("invalid board settings")
	ErrTooManyMines    = errors.New("mine count must be less than cell count")
	ErrInvalidLayout   = errors.New("invalid mine layout")
)

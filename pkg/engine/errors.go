package engine

import (
	"errors"
	"fmt"
)

// Rule violations. All of them are recoverable by the caller; a rejected
// command leaves the state it was given untouched.
var (
	ErrInvalidPlayerCount = errors.New("invalid player count")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrRollNotAllowed     = errors.New("roll not allowed")
	ErrInvalidMove        = errors.New("invalid move")
	ErrInvalidDice        = errors.New("invalid dice value")
	ErrInvalidState       = errors.New("invalid game state")

	// ErrNoLegalMoves is informational: the live roll cannot be used and the
	// caller should run ResolveNoMoves.
	ErrNoLegalMoves = errors.New("no legal moves")
)

func errUnknownColor(s string) error {
	return fmt.Errorf("unknown color %q", s)
}

package session

import "errors"

// Orchestration errors. Engine sentinels (engine.ErrNotYourTurn and
// friends) pass through unchanged.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game not started")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNameTaken        = errors.New("name already taken")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidMode      = errors.New("invalid game mode")
)

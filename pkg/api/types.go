// Package api provides the HTTP/JSON API, the room WebSocket feed and the
// simulation event stream for the Ludo server.
package api

import (
	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
)

// ============================================================================
// Request Types
// ============================================================================

// CreateRoomRequest is the request body for opening a room.
type CreateRoomRequest struct {
	Name   string `json:"name,omitempty"` // Display name (default "<player>'s room")
	Player string `json:"player"`         // Host name
	Mode   string `json:"mode,omitempty"` // classic, speed or family
}

// PlayerRequest identifies the acting player for join, leave, start and
// roll.
type PlayerRequest struct {
	Player string `json:"player"`
}

// AddBotRequest is the request body for seating a computer player.
type AddBotRequest struct {
	Player     string `json:"player"`               // Must be the host
	Difficulty string `json:"difficulty,omitempty"` // easy, medium or hard
}

// MoveRequest is the request body for moving a piece.
type MoveRequest struct {
	Player string `json:"player"`
	Piece  *int   `json:"piece"` // 0-3
}

// SimulateRequest is the request body for a self-play run.
type SimulateRequest struct {
	Seats    []string `json:"seats"`              // Difficulty per seat
	Trials   int      `json:"trials,omitempty"`   // Games to play (default 100)
	Workers  int      `json:"workers,omitempty"`  // Parallel workers
	Seed     uint64   `json:"seed,omitempty"`     // 0 = random
	MaxTurns int      `json:"maxTurns,omitempty"` // Rolls before a game is abandoned
}

// ReviewRequest grades a move in the position encoded by StateID. The
// position must have a live roll for its current player.
type ReviewRequest struct {
	StateID string `json:"stateId"`
	Piece   int    `json:"piece"`
}

// ============================================================================
// Response Types
// ============================================================================

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Ready   bool       `json:"ready"`
	Clients int        `json:"clients"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// RoomsResponse lists rooms.
type RoomsResponse struct {
	Rooms []storage.Room `json:"rooms"`
}

// JoinResponse is returned when a player takes a seat.
type JoinResponse struct {
	Room storage.Room `json:"room"`
	Seat int          `json:"seat"`
}

// StateResponse is the snapshot returned by GET /api/rooms/{id}/state.
type StateResponse struct {
	Room    storage.Room      `json:"room"`
	State   *engine.GameState `json:"state"`
	StateID string            `json:"stateId"`
}

// StateIDResponse is returned for GET /api/rooms/{id}/state?format=id.
type StateIDResponse struct {
	RoomID  string `json:"roomId"`
	StateID string `json:"stateId"`
}

// HintResponse ranks the acting player's moves for the live roll.
type HintResponse struct {
	Dice  int                `json:"dice"`
	Best  *agent.ScoredMove  `json:"best,omitempty"`
	Moves []agent.ScoredMove `json:"moves"`
}

// StatusResponse acknowledges a command without a body of its own.
type StatusResponse struct {
	Status string `json:"status"`
}
